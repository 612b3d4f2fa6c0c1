// Package main hosts the convertify CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into one in-memory
// conversion session: files named on the command line are dropped into the
// queue, assigned target formats, converted through the shared engine, and
// the artifacts saved to the output directory. It centralizes configuration
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
