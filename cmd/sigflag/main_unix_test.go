//go:build !windows

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"tools.zach/dev/sigflag/internal/config"
	"tools.zach/dev/sigflag/internal/paths"
	"tools.zach/dev/sigflag/internal/shutdown"
	"tools.zach/dev/sigflag/internal/status"
)

// keepDefaultLogger restores the process-wide slog default that daemonMain
// replaces with its file logger.
func keepDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

// ///////////////////////////////////////////////
// daemonMain Tests
// ///////////////////////////////////////////////

func TestDaemonMainExitsAfterSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("delivers a real signal to the test process")
	}

	keepDefaultLogger(t)
	dir := t.TempDir()
	saveConfig(t, dir, func(c *config.Config) {
		c.Behavior.Signal = "SIGUSR1"
		c.Behavior.IntervalMS = 10
		c.Behavior.ExitOnShutdown = true
		c.Behavior.WatchConfig = false
	})

	out := &syncBuffer{}
	code := make(chan int, 1)
	go func() { code <- daemonMain(context.Background(), dir, out) }()

	// The listener is registered before the first status line.
	waitLines(t, out, 1)
	if err := unix.Kill(os.Getpid(), unix.SIGUSR1); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}

	select {
	case got := <-code:
		if got != 0 {
			t.Errorf("daemonMain() = %d, want 0", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemonMain did not return after the signal")
	}

	lines := out.lines()
	if lines[0] != status.Line(false) {
		t.Errorf("first line = %q, want %q", lines[0], status.Line(false))
	}
	if last := lines[len(lines)-1]; last != status.Line(true) {
		t.Errorf("last line = %q, want %q", last, status.Line(true))
	}
	if _, err := os.Stat(filepath.Join(dir, paths.PIDFile)); !os.IsNotExist(err) {
		t.Error("PID file should be removed on exit")
	}
	if _, err := os.Stat(filepath.Join(dir, paths.LogFile)); err != nil {
		t.Errorf("log file missing: %v", err)
	}
}

func TestDaemonMainWritesDefaultConfig(t *testing.T) {
	keepDefaultLogger(t)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := daemonMain(ctx, dir, &syncBuffer{}); got != 0 {
		t.Fatalf("daemonMain() = %d, want 0", got)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Behavior.Signal != "SIGTERM" {
		t.Errorf("Signal = %q, want SIGTERM", cfg.Behavior.Signal)
	}
}

func TestDaemonMainRefusesSecondInstance(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()
	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID() error: %v", err)
	}
	defer removePID(dp, token, f)

	if got := daemonMain(context.Background(), dp.Root, &syncBuffer{}); got != 1 {
		t.Errorf("daemonMain() = %d, want 1", got)
	}
}

// ///////////////////////////////////////////////
// rebindListener Tests
// ///////////////////////////////////////////////

func TestRebindListenerSameSignalKeepsListener(t *testing.T) {
	f := shutdown.NewFlag()
	l := shutdown.Listen(f, unix.SIGUSR1)
	defer l.Stop()

	if got := rebindListener(f, l, unix.SIGUSR1, unix.SIGUSR1); got != l {
		t.Error("rebindListener replaced the listener for an unchanged signal")
	}
}

func TestRebindListenerMovesToConfiguredSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("delivers a real signal to the test process")
	}

	f := shutdown.NewFlag()
	early := shutdown.Listen(f, unix.SIGUSR1)
	l := rebindListener(f, early, unix.SIGUSR1, unix.SIGUSR2)
	defer l.Stop()

	if l == early {
		t.Fatal("rebindListener kept the listener for the old signal")
	}
	if err := unix.Kill(os.Getpid(), unix.SIGUSR2); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("flag not set by the configured signal after rebind")
	}
}

func TestTrapDefaultSignalRecordsDelivery(t *testing.T) {
	if testing.Short() {
		t.Skip("delivers a real signal to the test process")
	}

	f := shutdown.NewFlag()
	l, sig := trapDefaultSignal(f)
	defer l.Stop()

	if sig != unix.SIGTERM {
		t.Fatalf("trapDefaultSignal() signal = %v, want SIGTERM", sig)
	}
	// Without the listener SIGTERM would terminate the test binary.
	if err := unix.Kill(os.Getpid(), unix.SIGTERM); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("flag not set by SIGTERM")
	}
}
