// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapuserdclient

import (
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/cowsnap/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// mockDaemon is a scripted Unix-socket server. handler is invoked once
// per accepted connection with the exact bytes of a single message; its
// return value is written back verbatim as the reply. A zero-length
// return value sends no reply, mirroring [Client.Stop]'s fire-and-forget
// semantics.
type mockDaemon struct {
	socketPath string
	listener   net.Listener
}

func startMockDaemon(t *testing.T, socketPath string, handler func(msg string) string) *mockDaemon {
	t.Helper()

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listening on %s: %v", socketPath, err)
	}

	d := &mockDaemon{socketPath: socketPath, listener: l}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				n, err := c.Read(buf)
				if err != nil {
					return
				}
				reply := handler(string(buf[:n]))
				if reply != "" {
					c.Write([]byte(reply))
				}
			}(conn)
		}
	}()

	t.Cleanup(func() { l.Close() })
	return d
}

func testConfig(dir string) Config {
	return Config{
		FirstStageSocket:  filepath.Join(dir, "first.sock"),
		SecondStageSocket: filepath.Join(dir, "second.sock"),
		DialTimeout:       time.Second,
		ReceiveTimeout:    time.Second,
		MaxConnectRetries: 3,
		PollInterval:      10 * time.Millisecond,
	}
}

func TestClient_Connect_FirstStageActive(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string {
		if msg == cmdQuery {
			return "active"
		}
		return "fail"
	})

	c := NewClient(cfg, discardLogger())
	conn, err := c.connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.Close()
}

func TestClient_Connect_FallsBackToSecondStage(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string { return "passive" })
	startMockDaemon(t, cfg.SecondStageSocket, func(msg string) string { return "active" })

	c := NewClient(cfg, discardLogger())
	conn, err := c.connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.Close()
}

func TestClient_Connect_NoDaemonReachable(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)

	c := NewClient(cfg, discardLogger())
	_, err := c.connect(context.Background())
	if err == nil {
		t.Fatalf("expected connect to fail with no listening sockets")
	}
	if kind, ok := Kind(err); !ok || kind != ErrIO {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestClient_Initialize_Success(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)

	var gotMsg string
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string {
		if msg == cmdQuery {
			return "active"
		}
		gotMsg = msg
		return "success"
	})

	c := NewClient(cfg, discardLogger())
	err := c.Initialize(context.Background(), "/dev/cow0", "/dev/base0", "/dev/ctrl0")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	want := "start,/dev/cow0,/dev/base0,/dev/ctrl0"
	if gotMsg != want {
		t.Fatalf("daemon received %q, want %q", gotMsg, want)
	}
}

func TestClient_Initialize_DaemonRejects(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string {
		if msg == cmdQuery {
			return "active"
		}
		return "fail,no such device"
	})

	c := NewClient(cfg, discardLogger())
	err := c.Initialize(context.Background(), "/dev/cow0", "/dev/base0", "/dev/ctrl0")
	if kind, ok := Kind(err); !ok || kind != ErrProtocol {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestClient_Stop_FirstStageDaemon(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)

	received := make(chan string, 1)
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string {
		received <- msg
		return ""
	})

	c := NewClient(cfg, discardLogger())
	if err := c.Stop(context.Background(), true); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	msg := testutil.RequireReceive(t, received, 2*time.Second, "waiting for stop message")
	if msg != cmdStop {
		t.Fatalf("daemon received %q, want %q", msg, cmdStop)
	}
}

func TestClient_StartDaemon_BecomesReachableAfterRetries(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)

	attempts := 0
	spawned := make(chan struct{})
	cfg.DaemonPath = "/bin/true"
	cfg.DaemonArgs = func(socketName string) []string {
		// The mock daemon only starts listening 20ms after spawn,
		// between the second (10ms) and third (30ms) poll attempts,
		// exercising startDaemon's retry loop.
		go func() {
			<-time.After(20 * time.Millisecond)
			startMockDaemon(t, socketName, func(msg string) string {
				attempts++
				return "active"
			})
			close(spawned)
		}()
		return nil
	}

	c := NewClient(cfg, discardLogger())
	if err := c.StartDaemon(context.Background()); err != nil {
		t.Fatalf("StartDaemon: %v", err)
	}
	testutil.RequireClosed(t, spawned, 2*time.Second, "waiting for mock daemon to spawn")
}

func TestClient_StartDaemon_ExecFails(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	cfg.DaemonPath = filepath.Join(dir, "does-not-exist")

	c := NewClient(cfg, discardLogger())
	err := c.StartDaemon(context.Background())
	if kind, ok := Kind(err); !ok || kind != ErrSpawn {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestClient_StartDaemon_NeverReachable(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	cfg.DaemonPath = "/bin/true"
	cfg.MaxConnectRetries = 2
	cfg.PollInterval = 5 * time.Millisecond

	c := NewClient(cfg, discardLogger())
	err := c.StartDaemon(context.Background())
	if kind, ok := Kind(err); !ok || kind != ErrSpawn {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

// TestClient_Restart_TwoStageTransition drives the full two-stage
// handoff: the first-stage mock answers "active" to query and
// "success" to terminate-request, then flips to "passive"; the
// second-stage mock answers "active" to query and "success" to each
// start command.
func TestClient_Restart_TwoStageTransition(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	cfg.DaemonPath = "/bin/true"

	var firstStagePassive bool
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string {
		switch msg {
		case cmdQuery:
			if firstStagePassive {
				return "passive"
			}
			return "active"
		case cmdTerminateRequest:
			firstStagePassive = true
			return "success"
		default:
			return "fail"
		}
	})

	startCount := 0
	secondStageUp := make(chan struct{})
	cfg.DaemonArgs = func(socketName string) []string {
		go func() {
			startMockDaemon(t, socketName, func(msg string) string {
				if msg == cmdQuery {
					return "active"
				}
				startCount++
				return "success"
			})
			close(secondStageUp)
		}()
		return nil
	}

	c := NewClient(cfg, discardLogger())
	triples := []DeviceTriple{
		{CowDevice: "/dev/cow0", BaseDevice: "/dev/base0", ControlDevice: "/dev/ctrl0"},
		{CowDevice: "/dev/cow1", BaseDevice: "/dev/base1", ControlDevice: "/dev/ctrl1"},
		{CowDevice: "/dev/cow2", BaseDevice: "/dev/base2", ControlDevice: "/dev/ctrl2"},
	}

	if err := c.Restart(context.Background(), triples); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	testutil.RequireClosed(t, secondStageUp, 2*time.Second, "waiting for second-stage mock daemon to spawn")

	if startCount != len(triples) {
		t.Fatalf("second-stage daemon received %d start commands, want %d", startCount, len(triples))
	}
}

func TestClient_Restart_TerminateRequestFails(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string {
		if msg == cmdQuery {
			return "active"
		}
		return "fail"
	})

	c := NewClient(cfg, discardLogger())
	err := c.Restart(context.Background(), nil)
	if kind, ok := Kind(err); !ok || kind != ErrProtocol {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

// TestClient_Restart_AbortsOnFirstInitializeFailure exercises the
// deliberate deviation from the original client: Restart must not
// silently discard an Initialize failure and continue to the next
// device triple.
func TestClient_Restart_AbortsOnFirstInitializeFailure(t *testing.T) {
	dir := testutil.SocketDir(t)
	cfg := testConfig(dir)
	cfg.DaemonPath = "/bin/true"

	var firstStagePassive bool
	startMockDaemon(t, cfg.FirstStageSocket, func(msg string) string {
		switch msg {
		case cmdQuery:
			if firstStagePassive {
				return "passive"
			}
			return "active"
		case cmdTerminateRequest:
			firstStagePassive = true
			return "success"
		default:
			return "fail"
		}
	})

	initCount := 0
	cfg.DaemonArgs = func(socketName string) []string {
		startMockDaemon(t, socketName, func(msg string) string {
			if msg == cmdQuery {
				return "active"
			}
			initCount++
			return "fail,rejected"
		})
		return nil
	}

	c := NewClient(cfg, discardLogger())
	triples := []DeviceTriple{
		{CowDevice: "/dev/cow0", BaseDevice: "/dev/base0", ControlDevice: "/dev/ctrl0"},
		{CowDevice: "/dev/cow1", BaseDevice: "/dev/base1", ControlDevice: "/dev/ctrl1"},
	}

	err := c.Restart(context.Background(), triples)
	if err == nil {
		t.Fatalf("expected Restart to fail on rejected Initialize")
	}
	if initCount != 1 {
		t.Fatalf("expected exactly one Initialize attempt before aborting, got %d", initCount)
	}
}
