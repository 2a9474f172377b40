package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps dot-separated TOML field paths to their [FieldDoc]. The
// genconfig tool uses it to annotate config.default.toml.
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version - do not edit.",
	},

	// ── Behavior ─────────────────────────────────────────────────
	"behavior": {
		Comment: "How the daemon reacts to its termination signal.",
	},
	"behavior.signal": {
		Comment: "The one signal that flips the shutdown flag. Receiving it does not stop\nthe process. SIGKILL and SIGSTOP cannot be caught.\nOn Windows only SIGTERM (console close, logoff) and SIGINT (Ctrl+C) exist.\nChanging this value requires a restart.",
		Alternatives: []string{
			`signal = "SIGINT"`,
			`signal = "SIGUSR1"`,
		},
	},
	"behavior.interval_ms": {
		Comment: "Delay between status lines on stderr, in milliseconds.",
	},
	"behavior.exit_on_shutdown": {
		Comment: "Exit after the first status line that reports True.\nWhen false the daemon keeps reporting until it is killed.",
	},
	"behavior.watch_config": {
		Comment: "Reload this file while running. log.level, interval_ms and\nexit_on_shutdown apply immediately.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum level written to daemon.log: trace, debug, info, warn, error",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate daemon.log after this many megabytes.",
	},
}
