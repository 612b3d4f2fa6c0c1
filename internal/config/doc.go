// Package config loads, normalizes, and validates convertify configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CONVERTIFY_NTFY_TOPIC. The Config type centralizes every knob the engine,
// the job runner, and the CLI need, so workspace locations and encoder
// parameters are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
