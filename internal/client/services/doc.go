// Package services holds the sync engine and the local-first operations built
// on top of the local and remote stores.
//
// SyncService reconciles LocalStore with a remote.Store: pull merges remote
// documents through a Resolver, push dedups and then overwrites the remote,
// deleting remote ids that no longer exist locally. Tracker performs the
// user-facing writes against LocalStore only. Mirror exposes an immutable
// snapshot of LocalStore to readers. BackupService exports and imports the
// full local state.
package services
