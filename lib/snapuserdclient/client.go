// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapuserdclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Client speaks the snapuserd control protocol. Each method opens a
// fresh Unix domain socket connection, sends the "query" handshake
// and then one command over that same connection (a fixed sequence
// of such connections for [Client.Restart]), and closes the
// connection on every exit path. A Client holds no
// long-lived socket state and is safe to reuse across calls, but not
// for concurrent use by multiple goroutines.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// NewClient constructs a Client. cfg's zero-value fields are replaced
// with documented defaults (see [NewConfig]). logger must not be nil.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{cfg: NewConfig(cfg), logger: logger}
}

// dialSocket connects to the Unix socket address socketName within
// the configured dial timeout. The address is used unchanged: a
// filesystem path, or a Linux abstract name when it begins with '@'.
func (c *Client) dialSocket(ctx context.Context, socketName string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketName)
	if err != nil {
		return nil, newError(ErrIO, "dial", fmt.Errorf("connecting to %s: %w", socketName, err))
	}
	return conn, nil
}

// sendRecv writes msg to conn and reads one reply within the
// configured receive timeout. It never closes conn — the caller owns
// the connection lifetime.
func (c *Client) sendRecv(conn net.Conn, msg string) (string, error) {
	if _, err := conn.Write([]byte(msg)); err != nil {
		return "", newError(ErrIO, "send", fmt.Errorf("sending %q: %w", msg, err))
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReceiveTimeout)); err != nil {
		return "", newError(ErrIO, "recv", fmt.Errorf("setting read deadline: %w", err))
	}

	buf := make([]byte, c.cfg.PacketSize)
	n, err := conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return "", newError(ErrTimeout, "recv", fmt.Errorf("waiting for reply to %q: %w", msg, err))
		}
		return "", newError(ErrIO, "recv", fmt.Errorf("reading reply to %q: %w", msg, err))
	}

	return string(buf[:n]), nil
}

// queryOne connects to socketName, sends a liveness query, and
// classifies the reply. On success the connection is returned open
// and the caller takes ownership and must close it; on error it is
// closed before returning.
func (c *Client) queryOne(ctx context.Context, socketName string) (net.Conn, replyStatus, error) {
	conn, err := c.dialSocket(ctx, socketName)
	if err != nil {
		return nil, replyUnknown, err
	}

	reply, err := c.sendRecv(conn, cmdQuery)
	if err != nil {
		conn.Close()
		return nil, replyUnknown, err
	}

	status := classifyReply(reply)
	return conn, status, nil
}

// connect tries the first-stage socket, then the second-stage socket,
// returning a live connection to whichever one answers "active". A
// "passive" reply closes that connection and continues the fallback
// chain; a "fail", unrecognized reply, or I/O error does the same.
// The returned connection is owned by the caller.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	for _, socketName := range []string{c.cfg.FirstStageSocket, c.cfg.SecondStageSocket} {
		conn, status, err := c.queryOne(ctx, socketName)
		if err != nil {
			c.logger.Debug("query failed, trying next socket", "socket", socketName, "error", err)
			continue
		}
		if status == replyActive {
			return conn, nil
		}
		conn.Close()
		c.logger.Debug("daemon not active", "socket", socketName, "status", status)
	}
	return nil, newError(ErrIO, "connect", fmt.Errorf("no active daemon on %q or %q", c.cfg.FirstStageSocket, c.cfg.SecondStageSocket))
}

// startDaemon forks the daemon binary bound to socketName, then polls
// connect() with a linearly growing interval (PollInterval,
// 2*PollInterval, ...) up to MaxConnectRetries attempts. Returns
// success as soon as one connect succeeds; surfaces ErrSpawn if the
// exec fails or the retry budget is exhausted.
func (c *Client) startDaemon(ctx context.Context, socketName string) error {
	cmd := newDaemonCommand(c.cfg.DaemonPath, c.cfg.DaemonArgs(socketName))
	if err := cmd.Start(); err != nil {
		return newError(ErrSpawn, "start_daemon", fmt.Errorf("exec %s: %w", c.cfg.DaemonPath, err))
	}
	// snapuserd is a long-lived daemon and never exits under normal
	// operation; we don't wait on it, matching the original client.

	for attempt := 1; attempt <= c.cfg.MaxConnectRetries; attempt++ {
		conn, err := c.connect(ctx)
		if err == nil {
			conn.Close()
			return nil
		}

		if attempt == c.cfg.MaxConnectRetries {
			break
		}
		delay := time.Duration(attempt) * c.cfg.PollInterval
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return newError(ErrSpawn, "start_daemon", ctx.Err())
		}
	}

	return newError(ErrSpawn, "start_daemon", fmt.Errorf(
		"daemon on %s did not become reachable after %d attempts", socketName, c.cfg.MaxConnectRetries))
}

// StartDaemon spawns the first-stage daemon and waits for it to
// become reachable.
func (c *Client) StartDaemon(ctx context.Context) error {
	return c.startDaemon(ctx, c.cfg.FirstStageSocket)
}

// Initialize connects to whichever daemon is active and binds a
// device triple to it for merge.
func (c *Client) Initialize(ctx context.Context, cowDevice, baseDevice, controlDevice string) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	msg := startCommand(cowDevice, baseDevice, controlDevice)
	reply, err := c.sendRecv(conn, msg)
	if err != nil {
		return err
	}

	if classifyReply(reply) != replySuccess {
		return newError(ErrProtocol, "initialize", fmt.Errorf("daemon rejected %q: %s", msg, reply))
	}

	c.logger.Debug("daemon initialized", "cow_device", cowDevice, "base_device", baseDevice, "control_device", controlDevice)
	return nil
}

// Stop sends "stop" to terminate a daemon. No reply is expected. If
// firstStageDaemon is true, it connects directly to the first-stage
// socket without the query handshake (the daemon may already be
// passive and would reject a query); otherwise it uses the normal
// connect path.
func (c *Client) Stop(ctx context.Context, firstStageDaemon bool) error {
	var conn net.Conn
	var err error
	if firstStageDaemon {
		conn, err = c.dialSocket(ctx, c.cfg.FirstStageSocket)
	} else {
		conn, err = c.connect(ctx)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(cmdStop)); err != nil {
		return newError(ErrIO, "stop", fmt.Errorf("sending stop: %w", err))
	}
	return nil
}

// DeviceTriple names the three device paths passed to Initialize
// during Restart.
type DeviceTriple struct {
	CowDevice     string
	BaseDevice    string
	ControlDevice string
}

// Restart drives the two-stage daemon transition:
//
//  1. Connect to the active (first-stage) daemon, send
//     "terminate-request", and require a "success" reply. This marks
//     the daemon passive without terminating it.
//  2. Spawn the second-stage daemon and poll until it is reachable.
//  3. Call Initialize for each device triple against the second-stage
//     daemon, stopping at the first failure.
//
// After step 1 the first-stage daemon answers "passive" to "query",
// so connect() automatically skips to the second-stage socket for
// steps 2 and 3. There is no automatic rollback: the caller is
// responsible for cleanup if Restart fails partway through.
func (c *Client) Restart(ctx context.Context, triples []DeviceTriple) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	reply, err := c.sendRecv(conn, cmdTerminateRequest)
	conn.Close()
	if err != nil {
		return err
	}
	if classifyReply(reply) != replySuccess {
		return newError(ErrProtocol, "restart", fmt.Errorf("terminate-request did not succeed: %s", reply))
	}

	if err := c.startDaemon(ctx, c.cfg.SecondStageSocket); err != nil {
		return err
	}
	c.logger.Info("second-stage daemon reachable", "socket", c.cfg.SecondStageSocket)

	for _, triple := range triples {
		if err := c.Initialize(ctx, triple.CowDevice, triple.BaseDevice, triple.ControlDevice); err != nil {
			return fmt.Errorf("restart: initializing %+v: %w", triple, err)
		}
	}

	return nil
}
