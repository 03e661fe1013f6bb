// Package config loads, normalizes, and validates recall configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI and the learning memory need: storage directories, logging
// options, and the confidence thresholds that gate automatic lookups.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and validated threshold values.
package config
