// Package localstore is the on-device source of truth: an embedded SQLite
// database holding the four record collections and a settings bucket.
//
// A Store must be initialised with Init before use; every other method
// returns common.ErrNotInitialized until then. Writes go straight to SQLite,
// so a read right after a write always observes it. Batch operations
// (PutMany, DeleteMany, ReplaceAll) are applied in one transaction.
package localstore
