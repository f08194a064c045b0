package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels_AreDistinctAndWrappable(t *testing.T) {
	all := []error{
		ErrNotInitialized, ErrStorageUnavailable, ErrDuplicateKey, ErrNotFound,
		ErrRemoteUnavailable, ErrSubscriptionsUnsupported, ErrMalformedRecord,
		ErrSyncInProgress, ErrUnknownAccount, ErrUnsupportedSchema, ErrChecksumMismatch,
	}

	for i, a := range all {
		wrapped := fmt.Errorf("layer: %w", a)
		assert.ErrorIs(t, wrapped, a)
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(wrapped, b), "%v must not match %v", a, b)
			}
		}
	}
}
