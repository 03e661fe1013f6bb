// Package main hosts the recall CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// ingestion runs, confidence-gated lookups, memory statistics, session
// audits, and configuration scaffolding. It centralizes configuration
// resolution, store lifetime, and structured logging setup so subcommands
// can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
