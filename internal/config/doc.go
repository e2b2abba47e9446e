// Package config loads, normalizes, and validates codepencil configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CODEPENCIL_LOG_LEVEL
// environment override. The Config type centralizes the canvas geometry,
// storage backend policy, and execution bridge settings the CLI needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
