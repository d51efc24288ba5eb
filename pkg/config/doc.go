// Package config resolves modforge's runtime configuration: game and
// staging paths, multi-volume mirroring policy, advisory-lock
// contention policy, and the per-game GameMode descriptor, layering an
// embedded default document, an optional user TOML file, and
// MODFORGE_-prefixed environment overrides.
package config
