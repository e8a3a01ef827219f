// Package ledger records pipeline runs and per-clip publication outcomes in a
// SQLite database under the state directory.
//
// The filesystem remains the source of truth for which clips still need
// publishing; the ledger is bookkeeping for status and history commands and a
// duplicate-upload guard when a clip survives a crash after it was accepted.
package ledger
