// Package services defines shared utilities consumed by the pipeline stages
// and their external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and cycle numbers for
//     logging and the run ledger.
//   - Structured error markers plus the Wrap helper, and Category for turning
//     a marker into a stable label.
//   - The Executor abstraction that makes aria2c and ffmpeg invocations
//     testable while keeping a bounded tail of their output for diagnostics.
package services
