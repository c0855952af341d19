// Package main hosts the liepavoice CLI entrypoint and command graph.
//
// The Cobra command tree covers the three pipeline steps (extract, assemble,
// publish) plus the run ledger view, environment checks, and configuration
// scaffolding. Configuration resolution, logging setup, directory locks, and
// ledger bookkeeping are centralized here so the internal packages stay free
// of process concerns.
package main
