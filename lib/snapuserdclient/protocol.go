// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapuserdclient

import "strings"

// Literal command strings sent to the daemon. These are wire-protocol
// constants — changing them breaks compatibility with the daemon.
const (
	cmdQuery            = "query"
	cmdStop             = "stop"
	cmdTerminateRequest = "terminate-request"
	cmdStartPrefix      = "start,"
)

// replyStatus classifies a daemon reply by its first line, exact-token
// matched (per spec redesign note: substring search on "fail" is
// ambiguous if the daemon ever echoes command text).
type replyStatus int

const (
	replyUnknown replyStatus = iota
	replyActive
	replyPassive
	replySuccess
	replyFail
)

// classifyReply extracts the first line of raw and matches it exactly
// against the four known reply tokens. A "fail" or "success" reply may
// carry trailing detail after the token (e.g. "fail,no such device");
// only the leading token is matched.
func classifyReply(raw string) replyStatus {
	line := raw
	if idx := strings.IndexAny(line, "\r\n"); idx >= 0 {
		line = line[:idx]
	}
	token := line
	if idx := strings.IndexByte(line, ','); idx >= 0 {
		token = line[:idx]
	}

	switch token {
	case "active":
		return replyActive
	case "passive":
		return replyPassive
	case "success":
		return replySuccess
	case "fail":
		return replyFail
	default:
		return replyUnknown
	}
}

// startCommand builds the "start,<cow_dev>,<base_dev>,<control_dev>"
// command string for initialize().
func startCommand(cowDevice, baseDevice, controlDevice string) string {
	return cmdStartPrefix + cowDevice + "," + baseDevice + "," + controlDevice
}
