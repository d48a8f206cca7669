// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapuserdclient speaks the length-delimited text control
// protocol used to coordinate a live snapuserd daemon handoff
// ("first-stage" to "second-stage") during an OTA merge.
//
// [Client] connects to a local Unix domain socket, sends a liveness
// "query" followed by one literal ASCII command over that connection
// (a stop aimed directly at the first-stage daemon skips the query),
// and reads each reply within a receive deadline. [Client.Restart] drives the full two-stage transition:
// mark the outgoing daemon passive, spawn the incoming daemon, poll
// until it answers, then re-bind each device triple to it.
//
// Every method opens a fresh connection and closes it on every exit
// path — there is no connection pooling and no long-lived socket
// state to leak.
package snapuserdclient
