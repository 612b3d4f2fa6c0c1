// Package notifications delivers job and session events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Each event family can be switched off individually, so the runner
// and intake adapter publish unconditionally without duplicating HTTP glue or
// toggle checks.
package notifications
