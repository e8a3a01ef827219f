// Package acquisition implements the first pipeline stage: pick a movie from
// the magnet catalog and download it with aria2c into its own directory under
// the movies root.
//
// The aria2c Client hides the command line behind services.Executor so tests
// can fake downloads. The destination directory is wiped before each attempt,
// which makes a retried acquisition idempotent.
package acquisition
