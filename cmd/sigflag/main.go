// Package main implements the sigflag daemon, which traps one termination
// signal, records it in a shutdown flag and reports that flag on stderr once
// per interval.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	rootpkg "tools.zach/dev/sigflag"
	"tools.zach/dev/sigflag/internal/atomicfile"
	"tools.zach/dev/sigflag/internal/config"
	"tools.zach/dev/sigflag/internal/logger"
	"tools.zach/dev/sigflag/internal/paths"
	"tools.zach/dev/sigflag/internal/shutdown"
	"tools.zach/dev/sigflag/internal/status"
	"tools.zach/dev/sigflag/internal/watch"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// resolveVersion returns [version] when it was set at build time, otherwise
// a "dev+<hash>" tag built from the VCS info embedded by the Go toolchain.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// pidToken generates a random hex token proving ownership of the PID file.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID opens the PID file, takes an exclusive advisory lock and writes
// "PID:TOKEN". The returned file must stay open to hold the lock.
func writePID(paths DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(paths.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	fail := func(step string, err error) (*os.File, error) {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("%s PID file: %w", step, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fail("truncate", err)
	}
	if _, err := fmt.Fprintf(f, "%d:%s", os.Getpid(), token); err != nil {
		return fail("write", err)
	}
	return f, nil
}

// removePID releases the lock and deletes the PID file if it still carries
// token.
func removePID(paths DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(paths.PID())
	if err != nil {
		return
	}
	if _, owner, ok := strings.Cut(string(data), ":"); ok && owner == token {
		os.Remove(paths.PID())
	}
}

// checkStalePID reports whether another instance holds the PID lock. A PID
// file whose lock can be taken belongs to a dead instance and is removed.
func checkStalePID(paths DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(paths.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(paths.PID())
		f.Close()
		pidStr, _, _ := strings.Cut(string(data), ":")
		if p, convErr := strconv.Atoi(pidStr); convErr == nil {
			return true, p
		}
		return true, 0
	}

	_ = unlockFile(f)
	f.Close()
	os.Remove(paths.PID())
	return false, 0
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns ~/.sigflag, or ./.sigflag when the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, PID file, and logs")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(resolveVersion())
		return
	}
	os.Exit(daemonMain(context.Background(), *dataDir, os.Stderr))
}

// daemonMain runs the daemon until the status loop returns and reports the
// process exit code. Status lines go to out.
func daemonMain(ctx context.Context, dataDir string, out io.Writer) int {
	dp := DataPaths{Root: dataDir}

	// Trapped before any startup work, so a delivery during startup is
	// recorded in the flag instead of terminating the process.
	sf := shutdown.NewFlag()
	listener, defaultSig := trapDefaultSignal(sf)
	defer func() { listener.Stop() }()

	if err := os.MkdirAll(dp.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		return 1
	}

	if alive, pid := checkStalePID(dp); alive {
		fmt.Fprintf(os.Stderr, "daemon already running (pid %d)\n", pid)
		return 1
	}

	if _, err := os.Stat(dp.Config()); os.IsNotExist(err) {
		if writeErr := atomicfile.Write(dp.Config(), rootpkg.DefaultConfigTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", writeErr)
		}
	}

	cfg, err := config.Load(dp.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		return 1
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Log.Level))
	log, logCloser := logger.NewLogger(dp.Log(), level, cfg.Log.MaxSizeMB)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("sigflag starting", "version", resolveVersion(), "data_dir", dp.Root, "pid", os.Getpid())

	sig, err := shutdown.ParseSignal(cfg.Behavior.Signal)
	if err != nil {
		logger.Fail(log, "resolve signal", "error", err)
		return 1
	}

	token := pidToken()
	pidFile, err := writePID(dp, token)
	if err != nil {
		logger.Fail(log, "failed to write PID file", "error", err)
		return 1
	}
	defer removePID(dp, token, pidFile)

	listener = rebindListener(sf, listener, defaultSig, sig)
	slog.Info("listening for termination signal", "signal", shutdown.SignalName(sig), "exit_on_shutdown", cfg.Behavior.ExitOnShutdown)

	d := &daemon{
		flag:     sf,
		reporter: status.NewReporter(out),
		cfg:      cfg,
		level:    level,
		dataDir:  dp.Root,
	}

	if cfg.Behavior.WatchConfig {
		w, err := watch.NewDirWatcher(dp.Root, paths.ConfigFile)
		if err != nil {
			slog.Warn("config watcher unavailable, reload disabled", "error", err)
		} else {
			defer w.Close()
			d.reload = w.Events()
			if w.Polling() {
				slog.Info("using polling mode for config watching")
			}
		}
	}

	d.run(ctx)
	slog.Info("sigflag exiting", "shutting_down", sf.IsSet())
	return 0
}

// trapDefaultSignal registers f for [shutdown.DefaultSignalName] and returns
// the listener along with the resolved signal.
func trapDefaultSignal(f *shutdown.Flag) (*shutdown.Listener, os.Signal) {
	sig, err := shutdown.ParseSignal(shutdown.DefaultSignalName)
	if err != nil {
		panic(fmt.Sprintf("default signal %s: %v", shutdown.DefaultSignalName, err))
	}
	return shutdown.Listen(f, sig), sig
}

// rebindListener moves the flag from signal from to signal to. The new
// registration is made before l stops, so a delivery of to never falls
// through to the default action. It returns l unchanged when from == to.
func rebindListener(f *shutdown.Flag, l *shutdown.Listener, from, to os.Signal) *shutdown.Listener {
	if from == to {
		return l
	}
	next := shutdown.Listen(f, to)
	l.Stop()
	return next
}

// ///////////////////////////////////////////////
// Status Loop
// ///////////////////////////////////////////////

// daemon holds the state carried across iterations of the status loop.
type daemon struct {
	flag     *shutdown.Flag
	reporter *status.Reporter

	// cfg is the active configuration; replaced wholesale on reload.
	cfg *config.Config
	// level backs the logger's minimum level so reload can change it.
	level *slog.LevelVar
	// dataDir is where config.toml is re-read from on reload.
	dataDir string
	// reload receives a value when config.toml changes; nil disables reload.
	reload <-chan struct{}
}

// run reports the shutdown flag, then waits one interval, forever. It returns
// when ctx is cancelled, or after the first report of a set flag when
// behavior.exit_on_shutdown is enabled.
func (d *daemon) run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval())
	defer ticker.Stop()

	for {
		if d.report() {
			return
		}
		if !d.wait(ctx, ticker) {
			return
		}
	}
}

// report writes one status line and reports whether the loop should exit.
func (d *daemon) report() bool {
	shuttingDown := d.flag.IsSet()
	if err := d.reporter.Report(shuttingDown); err != nil {
		slog.Warn("failed to write status", "error", err)
	}
	logger.Trace(slog.Default(), "status reported", "shutting_down", shuttingDown)

	if shuttingDown && d.cfg.Behavior.ExitOnShutdown {
		slog.Info("shutdown flag observed, exiting")
		return true
	}
	return false
}

// wait blocks until the next tick, handling config reloads in the meantime.
// It returns false when ctx is cancelled.
func (d *daemon) wait(ctx context.Context, ticker *time.Ticker) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-d.reload:
			d.reloadConfig(ticker)
		case <-ticker.C:
			return true
		}
	}
}

// reloadConfig re-reads config.toml and applies the settings that can change
// at runtime. A config that fails to load leaves the current one in place.
func (d *daemon) reloadConfig(ticker *time.Ticker) {
	cfg, err := config.Load(d.dataDir)
	if err != nil {
		slog.Warn("config reload failed, keeping previous config", "error", err)
		return
	}

	current, _ := shutdown.ParseSignal(d.cfg.Behavior.Signal)
	configured, _ := shutdown.ParseSignal(cfg.Behavior.Signal)
	if current != configured {
		slog.Warn("behavior.signal changed, restart to apply",
			"current", shutdown.SignalName(current),
			"configured", shutdown.SignalName(configured),
		)
	}
	cfg.Behavior.Signal = d.cfg.Behavior.Signal

	d.level.Set(logger.ParseLevel(cfg.Log.Level))
	if cfg.Interval() != d.cfg.Interval() {
		ticker.Reset(cfg.Interval())
	}
	d.cfg = cfg

	slog.Info("config reloaded",
		slog.Group("behavior",
			"interval_ms", cfg.Behavior.IntervalMS,
			"exit_on_shutdown", cfg.Behavior.ExitOnShutdown,
		),
		"log_level", cfg.Log.Level,
	)
}
