// Package cli provides the interactive FoodLog command-line client.
//
// It wires configuration, the local SQLite store, the remote document store
// and the sync services behind a REPL that works online and offline. Two
// background loops run next to the REPL: a connectivity watcher that pings
// the remote and flips between online and offline mode, and an auto-sync
// loop that pulls stale collections and pushes local changes while online.
//
// Key features:
//   - pull / push / sync with per-collection reports
//   - local duplicate sweep
//   - today's diary with nutrition totals
//   - file and S3 backups with BLAKE2b checksums
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
