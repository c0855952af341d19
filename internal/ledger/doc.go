// Package ledger records extraction and assembly runs in a SQLite database so
// operators can see what ran, which groups failed, and why.
//
// The store is a thin layer over modernc.org/sqlite with busy retries. The
// schema is embedded and versioned; an incompatible database must be removed
// before the ledger can be reopened.
package ledger
