// Package common defines the sentinel errors shared by the local store, the
// remote store and the sync services. Callers should use errors.Is to match
// these values; every layer wraps them with fmt.Errorf("...: %w").
package common

import "errors"

var (
	// Local store errors.
	ErrNotInitialized     = errors.New("store not initialized")
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("not found")

	// Remote store errors.
	ErrRemoteUnavailable        = errors.New("remote unavailable")
	ErrSubscriptionsUnsupported = errors.New("subscriptions unsupported")

	// Codec errors.
	ErrMalformedRecord = errors.New("malformed record")

	// Sync and service errors.
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrUnsupportedSchema = errors.New("unsupported backup schema version")
	ErrChecksumMismatch  = errors.New("backup checksum mismatch")
)
