// Package remote is the shared document store the sync engine reconciles
// with.
//
// Store is the contract: whole-collection reads, upsert and delete by id,
// and optional change subscriptions. Two implementations are provided:
// PostgresStore keeps documents in a JSONB table and pushes changes with
// LISTEN/NOTIFY, and MemoryStore keeps them in process for tests and
// offline development.
//
// Connectivity failures are reported as errors wrapping
// common.ErrRemoteUnavailable. A remote call never touches local state.
package remote
