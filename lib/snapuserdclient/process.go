// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapuserdclient

import "os/exec"

// newDaemonCommand builds the command used to spawn the daemon
// binary. Unlike a raw fork()+exec() pair, exec.Command's Start
// either launches a genuinely live child process or fails
// synchronously in the caller with no partially-forked child to leak
// — the "forked child error path" hazard the original C implementation
// has (a failed exec() in the child falling through and returning from
// the spawning function without terminating) has no Go analog here.
//
// The daemon is long-lived and never exits under normal operation, so
// the returned command is only ever Start()ed, never Wait()ed on.
func newDaemonCommand(path string, args []string) *exec.Cmd {
	return exec.Command(path, args...)
}
