// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/cowsnap/lib/snapuserdclient"
)

// Config is the on-disk configuration for cowsnap-mergectl. Every
// field mirrors a [snapuserdclient.Config] tunable; duration fields
// are plain strings parsed with [time.ParseDuration] so the file
// stays readable YAML scalars ("2s", "500ms") rather than integer
// nanoseconds.
type Config struct {
	// FirstStageSocket and SecondStageSocket are the Unix socket
	// addresses of the two daemon instances, dialed unchanged (a
	// leading '@' selects the Linux abstract namespace).
	FirstStageSocket  string `yaml:"first_stage_socket"`
	SecondStageSocket string `yaml:"second_stage_socket"`

	// PacketSize bounds the size of a single send/recv, in bytes.
	PacketSize int `yaml:"packet_size"`

	// ReceiveTimeout and DialTimeout are parsed via time.ParseDuration.
	ReceiveTimeout string `yaml:"receive_timeout"`
	DialTimeout    string `yaml:"dial_timeout"`

	// MaxConnectRetries and PollInterval bound start_daemon's polling.
	MaxConnectRetries int    `yaml:"max_connect_retries"`
	PollInterval      string `yaml:"poll_interval"`

	// DaemonPath is the executable start_daemon exec's.
	DaemonPath string `yaml:"daemon_path"`
}

// Default returns a Config populated with snapuserdclient's built-in
// defaults. Used as the base before a config file is applied, so
// every field has a sensible value even when the file only overrides
// a subset.
func Default() *Config {
	return &Config{
		FirstStageSocket:  "snapuserd",
		SecondStageSocket: "snapuserd2",
		PacketSize:        snapuserdclient.DefaultPacketSize,
		ReceiveTimeout:    snapuserdclient.DefaultReceiveTimeout.String(),
		DialTimeout:       snapuserdclient.DefaultDialTimeout.String(),
		MaxConnectRetries: snapuserdclient.DefaultMaxConnectRetries,
		PollInterval:      snapuserdclient.DefaultPollInterval.String(),
		DaemonPath:        snapuserdclient.DefaultDaemonPath,
	}
}

// Load loads configuration from the COWSNAP_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There is no fallback: if COWSNAP_CONFIG is not set, this
// fails, ensuring deterministic, auditable configuration with no
// hidden overrides.
func Load() (*Config, error) {
	path := os.Getenv("COWSNAP_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("COWSNAP_CONFIG environment variable not set; " +
			"set it to the path of a cowsnap-mergectl config file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ClientConfig converts the loaded configuration into a
// [snapuserdclient.Config], parsing its duration fields.
func (c *Config) ClientConfig() (snapuserdclient.Config, error) {
	receiveTimeout, err := time.ParseDuration(c.ReceiveTimeout)
	if err != nil {
		return snapuserdclient.Config{}, fmt.Errorf("receive_timeout: %w", err)
	}
	dialTimeout, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return snapuserdclient.Config{}, fmt.Errorf("dial_timeout: %w", err)
	}
	pollInterval, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return snapuserdclient.Config{}, fmt.Errorf("poll_interval: %w", err)
	}

	return snapuserdclient.Config{
		FirstStageSocket:  c.FirstStageSocket,
		SecondStageSocket: c.SecondStageSocket,
		PacketSize:        c.PacketSize,
		ReceiveTimeout:    receiveTimeout,
		DialTimeout:       dialTimeout,
		MaxConnectRetries: c.MaxConnectRetries,
		PollInterval:      pollInterval,
		DaemonPath:        c.DaemonPath,
	}, nil
}
