package localstore

import (
	"context"
	"fmt"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/repositories/records"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/repositories/settings"
	"github.com/kirkbardini/foodlogkm-sub000/internal/dbx"
)

// Snapshot is a full copy of the store's contents, in natural order.
type Snapshot struct {
	Collections map[models.Collection][]models.Record
	Settings    map[string][]byte
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Collections: make(map[models.Collection][]models.Record, len(models.AllCollections)),
		Settings:    map[string][]byte{},
	}
}

func (s *Snapshot) Records(c models.Collection) []models.Record {
	return s.Collections[c]
}

func (s *Snapshot) Foods() []*models.Food {
	return typed[*models.Food](s.Collections[models.CollectionFoods])
}

func (s *Snapshot) Entries() []*models.Entry {
	return typed[*models.Entry](s.Collections[models.CollectionEntries])
}

func (s *Snapshot) Users() []*models.UserProfile {
	return typed[*models.UserProfile](s.Collections[models.CollectionUsers])
}

func (s *Snapshot) Expenditures() []*models.CalorieExpenditure {
	return typed[*models.CalorieExpenditure](s.Collections[models.CollectionCalorieExpenditure])
}

func typed[T models.Record](rs []models.Record) []T {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Snapshot reads every collection and the settings.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := NewSnapshot()
	for _, c := range models.AllCollections {
		rs, err := s.GetAll(ctx, c)
		if err != nil {
			return nil, err
		}
		snap.Collections[c] = rs
	}
	st, err := s.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	snap.Settings = st
	return snap, nil
}

// ReplaceAll swaps the whole store for snap in one transaction. Collections
// missing from snap end up empty.
func (s *Store) ReplaceAll(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	return s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, c := range models.AllCollections {
			r, err := records.NewSQLiteRepository(tx, c)
			if err != nil {
				return err
			}
			if err := r.Clear(ctx); err != nil {
				return err
			}
			for _, rec := range snap.Collections[c] {
				if err := r.Insert(ctx, rec); err != nil {
					return err
				}
			}
		}

		st := settings.NewSQLiteRepository(tx)
		if err := st.Clear(ctx); err != nil {
			return err
		}
		for k, v := range snap.Settings {
			if err := st.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}
