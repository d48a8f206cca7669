// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cowsnap/lib/config"
	"github.com/bureau-foundation/cowsnap/lib/snapuserdclient"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	subcommand, rest := args[0], args[1:]
	if subcommand == "--help" || subcommand == "-h" {
		printUsage()
		return 0
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var configPath string
	globalFlags := pflag.NewFlagSet("cowsnap-mergectl", pflag.ContinueOnError)
	globalFlags.StringVar(&configPath, "config", "", "path to cowsnap-mergectl config file (overrides COWSNAP_CONFIG)")

	switch subcommand {
	case "start-daemon":
		return runStartDaemon(rest, globalFlags, configPath, logger)
	case "initialize":
		return runInitialize(rest, globalFlags, configPath, logger)
	case "stop":
		return runStop(rest, globalFlags, configPath, logger)
	case "restart":
		return runRestart(rest, globalFlags, configPath, logger)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown subcommand %q\n", subcommand)
		printUsage()
		return 2
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	if os.Getenv("COWSNAP_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func newClient(configPath string, logger *slog.Logger) (*snapuserdclient.Client, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return snapuserdclient.NewClient(clientCfg, logger), nil
}

func runStartDaemon(args []string, globalFlags *pflag.FlagSet, configPath string, logger *slog.Logger) int {
	flagSet := pflag.NewFlagSet("start-daemon", pflag.ContinueOnError)
	flagSet.AddFlagSet(globalFlags)
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	configPath, _ = globalFlags.GetString("config")

	client, err := newClient(configPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if err := client.StartDaemon(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println("daemon reachable")
	return 0
}

func runInitialize(args []string, globalFlags *pflag.FlagSet, configPath string, logger *slog.Logger) int {
	var cowDevice, baseDevice, controlDevice string
	flagSet := pflag.NewFlagSet("initialize", pflag.ContinueOnError)
	flagSet.AddFlagSet(globalFlags)
	flagSet.StringVar(&cowDevice, "cow", "", "path to the COW device node")
	flagSet.StringVar(&baseDevice, "base", "", "path to the base device node")
	flagSet.StringVar(&controlDevice, "control", "", "path to the dm-user control device node")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	configPath, _ = globalFlags.GetString("config")
	if cowDevice == "" || baseDevice == "" || controlDevice == "" {
		fmt.Fprintln(os.Stderr, "error: --cow, --base, and --control are all required")
		return 2
	}

	client, err := newClient(configPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if err := client.Initialize(context.Background(), cowDevice, baseDevice, controlDevice); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println("initialized")
	return 0
}

func runStop(args []string, globalFlags *pflag.FlagSet, configPath string, logger *slog.Logger) int {
	var firstStage bool
	flagSet := pflag.NewFlagSet("stop", pflag.ContinueOnError)
	flagSet.AddFlagSet(globalFlags)
	flagSet.BoolVar(&firstStage, "first-stage", false, "connect directly to the first-stage socket, skipping the query handshake")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	configPath, _ = globalFlags.GetString("config")

	client, err := newClient(configPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if err := client.Stop(context.Background(), firstStage); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println("stopped")
	return 0
}

func runRestart(args []string, globalFlags *pflag.FlagSet, configPath string, logger *slog.Logger) int {
	var triplesFlag []string
	flagSet := pflag.NewFlagSet("restart", pflag.ContinueOnError)
	flagSet.AddFlagSet(globalFlags)
	flagSet.StringArrayVar(&triplesFlag, "triple", nil,
		"cow_device:base_device:control_device (repeatable, applied in order)")
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	configPath, _ = globalFlags.GetString("config")
	if len(triplesFlag) == 0 {
		fmt.Fprintln(os.Stderr, "error: at least one --triple is required")
		return 2
	}

	triples, err := parseTriples(triplesFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	client, err := newClient(configPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	if err := client.Restart(context.Background(), triples); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println("restarted")
	return 0
}

func parseTriples(raw []string) ([]snapuserdclient.DeviceTriple, error) {
	triples := make([]snapuserdclient.DeviceTriple, 0, len(raw))
	for _, entry := range raw {
		parts := splitTriple(entry)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid --triple %q: want cow:base:control", entry)
		}
		triples = append(triples, snapuserdclient.DeviceTriple{
			CowDevice:     parts[0],
			BaseDevice:    parts[1],
			ControlDevice: parts[2],
		})
	}
	return triples, nil
}

func splitTriple(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cowsnap-mergectl — drive the snapuserd control protocol.

Usage:
  cowsnap-mergectl <subcommand> [flags]

Subcommands:
  start-daemon                  spawn the first-stage daemon and wait for it
  initialize --cow --base --control
                                 bind a device triple to the active daemon
  stop [--first-stage]          send stop to a daemon
  restart --triple C:B:D [--triple ...]
                                 drive the two-stage daemon transition

Global flags:
  --config PATH   config file (overrides COWSNAP_CONFIG)
`)
}
