package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
)

type memCollection struct {
	order []string
	byID  map[string]codec.Document
}

// MemoryStore is an in-process Store. Documents are deep-copied on the way
// in and out, and listeners are called synchronously after each change.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[models.Collection]*memCollection
	listeners   map[models.Collection]map[int]Listener
	nextID      int

	offline     bool
	writeBudget int // remaining successful writes; negative means unlimited
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: map[models.Collection]*memCollection{},
		listeners:   map[models.Collection]map[int]Listener{},
		writeBudget: -1,
	}
}

// SetOffline makes every call fail with common.ErrRemoteUnavailable.
func (m *MemoryStore) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailWritesAfter lets n more writes succeed and fails the rest as
// unavailable. A negative n removes the limit.
func (m *MemoryStore) FailWritesAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeBudget = n
}

func (m *MemoryStore) availableLocked() error {
	if m.offline {
		return fmt.Errorf("%w: memory store offline", common.ErrRemoteUnavailable)
	}
	return nil
}

func (m *MemoryStore) spendWriteLocked() error {
	if err := m.availableLocked(); err != nil {
		return err
	}
	if m.writeBudget == 0 {
		return fmt.Errorf("%w: write budget exhausted", common.ErrRemoteUnavailable)
	}
	if m.writeBudget > 0 {
		m.writeBudget--
	}
	return nil
}

func (m *MemoryStore) collection(c models.Collection) *memCollection {
	col, ok := m.collections[c]
	if !ok {
		col = &memCollection{byID: map[string]codec.Document{}}
		m.collections[c] = col
	}
	return col
}

func (m *MemoryStore) Upsert(ctx context.Context, c models.Collection, id string, doc codec.Document) error {
	cp, err := cloneDocument(doc)
	if err != nil {
		return fmt.Errorf("remote error: %w", err)
	}

	m.mu.Lock()
	if err := m.spendWriteLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	col := m.collection(c)
	if _, exists := col.byID[id]; !exists {
		col.order = append(col.order, id)
	}
	col.byID[id] = cp
	m.mu.Unlock()

	m.notify(c)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, c models.Collection, id string) error {
	m.mu.Lock()
	if err := m.spendWriteLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	col := m.collection(c)
	_, existed := col.byID[id]
	if existed {
		delete(col.byID, id)
		for i, v := range col.order {
			if v == id {
				col.order = append(col.order[:i], col.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if existed {
		m.notify(c)
	}
	return nil
}

func (m *MemoryStore) GetAll(ctx context.Context, c models.Collection, order *OrderBy) ([]codec.Document, error) {
	return m.read(c, nil, order)
}

func (m *MemoryStore) GetWhere(ctx context.Context, c models.Collection, field string, value any, order *OrderBy) ([]codec.Document, error) {
	return m.read(c, func(doc codec.Document) bool { return equalValues(doc[field], value) }, order)
}

func (m *MemoryStore) read(c models.Collection, keep func(codec.Document) bool, order *OrderBy) ([]codec.Document, error) {
	m.mu.Lock()
	if err := m.availableLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	out, err := m.snapshotLocked(c, keep)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if order != nil && order.Field != "" {
		sort.SliceStable(out, func(i, j int) bool {
			cmp := compareValues(out[i][order.Field], out[j][order.Field])
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return out, nil
}

func (m *MemoryStore) snapshotLocked(c models.Collection, keep func(codec.Document) bool) ([]codec.Document, error) {
	col := m.collection(c)
	out := make([]codec.Document, 0, len(col.order))
	for _, id := range col.order {
		doc := col.byID[id]
		if keep != nil && !keep(doc) {
			continue
		}
		cp, err := cloneDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, c models.Collection, fn Listener) (Unsubscribe, error) {
	m.mu.Lock()
	if err := m.availableLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if m.listeners[c] == nil {
		m.listeners[c] = map[int]Listener{}
	}
	id := m.nextID
	m.nextID++
	m.listeners[c][id] = fn
	initial, err := m.snapshotLocked(c, nil)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	fn(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners[c], id)
			m.mu.Unlock()
		})
	}, nil
}

func (m *MemoryStore) notify(c models.Collection) {
	m.mu.Lock()
	fns := make([]Listener, 0, len(m.listeners[c]))
	ids := make([]int, 0, len(m.listeners[c]))
	for id := range m.listeners[c] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, m.listeners[c][id])
	}
	var docs []codec.Document
	var err error
	if len(fns) > 0 {
		docs, err = m.snapshotLocked(c, nil)
	}
	m.mu.Unlock()

	if err != nil {
		return
	}
	for _, fn := range fns {
		fn(docs)
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availableLocked()
}

func (m *MemoryStore) Close() error { return nil }

// Len reports how many documents c holds, ignoring the offline switch.
func (m *MemoryStore) Len(c models.Collection) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collection(c).order)
}

func cloneDocument(doc codec.Document) (codec.Document, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return codec.ParseDocument(b)
}
