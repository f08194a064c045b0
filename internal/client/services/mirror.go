package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/localstore"
)

// Mirror holds the latest snapshot of LocalStore for readers. The snapshot
// is replaced wholesale by Refresh and must not be modified by callers.
type Mirror struct {
	store LocalStore
	snap  atomic.Pointer[localstore.Snapshot]
}

func NewMirror(store LocalStore) *Mirror {
	m := &Mirror{store: store}
	m.snap.Store(localstore.NewSnapshot())
	return m
}

func (m *Mirror) Refresh(ctx context.Context) error {
	snap, err := m.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("refresh mirror: %w", err)
	}
	m.snap.Store(snap)
	return nil
}

// Current never returns nil.
func (m *Mirror) Current() *localstore.Snapshot {
	return m.snap.Load()
}
