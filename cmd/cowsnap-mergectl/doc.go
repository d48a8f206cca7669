// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// cowsnap-mergectl drives the snapuserd control protocol from the
// command line: spawning the first-stage daemon, binding device
// triples to it, requesting the second-stage transition, and stopping
// a daemon. It is a thin exercise surface over lib/snapuserdclient,
// the same role the original snapshot_manager tooling played around
// SnapuserdClient.
package main
