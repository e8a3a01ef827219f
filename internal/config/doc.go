// Package config loads, normalizes, and validates reelmill configuration.
//
// Configuration lives in TOML (default ~/.config/reelmill/config.toml, with a
// ./reelmill.toml fallback). Load applies repository defaults, expands "~"
// paths, fills credentials from the environment when the file leaves them
// blank, and validates timings. The resulting *Config is built once at process
// start and passed to every component; nothing else reads the environment.
package config
