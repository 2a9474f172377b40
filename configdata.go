// Package sigflag embeds the default configuration for the sigflag daemon.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. cmd/sigflag writes it into the data directory on first
// run; cmd/genconfig regenerates it from config.ExampleConfig.
package sigflag

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
