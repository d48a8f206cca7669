// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cowsnap/lib/cow"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	opTypeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	os.Exit(run())
}

func run() int {
	var filePath string
	var verbose bool

	flagSet := pflag.NewFlagSet("cowsnap-inspect", pflag.ContinueOnError)
	flagSet.StringVar(&filePath, "file", "", "path to a COW container file")
	flagSet.BoolVar(&verbose, "verbose", false, "print every operation, not just the summary")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return 0
	}

	if filePath == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: --file is required"))
		printHelp(flagSet)
		return 2
	}

	if err := inspect(filePath, verbose); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("error: %v", err)))
		return 1
	}
	return 0
}

func inspect(filePath string, verbose bool) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	reader := cow.NewReader()
	if err := reader.Parse(cow.NewFileSource(f)); err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}

	header := reader.Header()
	fmt.Println(headerStyle.Render("COW container"))
	printField("file", filePath)
	printField("file size", fmt.Sprintf("%d bytes", reader.FileSize()))
	printField("version", fmt.Sprintf("%d.%d", header.MajorVersion, header.MinorVersion))
	printField("block size", fmt.Sprintf("%d bytes", header.BlockSize))
	printField("ops offset", fmt.Sprintf("%d", header.OpsOffset))
	printField("ops size", fmt.Sprintf("%d bytes", header.OpsSize))

	it, err := reader.OpIter()
	if err != nil {
		return fmt.Errorf("reading operation table: %w", err)
	}
	printField("operation count", fmt.Sprintf("%d", it.Count()))

	counts := map[cow.OpType]int{}
	for _, op := range it.All() {
		counts[op.Type]++
		if verbose {
			printOperation(op)
		}
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("operation summary"))
	for _, opType := range []cow.OpType{cow.OpCopy, cow.OpReplace, cow.OpZero, cow.OpLabel} {
		if n := counts[opType]; n > 0 {
			printField(opType.String(), fmt.Sprintf("%d", n))
		}
	}

	return nil
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", labelStyle.Render(label+":"), value)
}

func printOperation(op cow.Operation) {
	line := fmt.Sprintf("  %s new_block=%d source=%d",
		opTypeStyle.Render(op.Type.String()), op.NewBlock, op.Source)
	if op.HasPayload() {
		line += fmt.Sprintf(" compression=%s data_length=%d", op.Compression, op.DataLength)
	}
	fmt.Println(line)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `cowsnap-inspect — dump a COW snapshot container's header and operation table.

Usage:
  cowsnap-inspect --file PATH [--verbose]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
