// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for
// cowsnap-mergectl.
//
// Configuration is loaded from a single file specified by either the
// COWSNAP_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no fallback discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// Key exports:
//
//   - [Config] -- the on-disk fields, one per snapuserdclient tunable
//   - [Default] -- returns a Config with snapuserdclient's built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.ClientConfig] -- converts to a snapuserdclient.Config
package config
