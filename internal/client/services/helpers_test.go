package services

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/localstore"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *localstore.Store {
	t.Helper()
	s := localstore.New(filepath.Join(t.TempDir(), "foodlog.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeClock starts at start and advances by one millisecond per call.
func fakeClock(start int64) Clock {
	var n atomic.Int64
	n.Store(start - 1)
	return func() int64 { return n.Add(1) }
}

func food(id, name, category string, updated int64) *models.Food {
	return &models.Food{ID: id, Name: name, Category: category, Per: 100, ProteinG: 10, CarbsG: 20, FatG: 5, Kcal: 160, CreatedAt: 1, UpdatedAt: updated}
}

func entry(id, user, date, foodID string, qty float64, updated int64) *models.Entry {
	return &models.Entry{
		ID: id, UserID: user, DateISO: date, FoodID: foodID, Qty: qty, Unit: "g", MealType: models.MealLunch,
		Nutrients: models.Nutrients{ProteinG: 1, CarbsG: 2, FatG: 3, Kcal: 40},
		UpdatedAt: updated,
	}
}

func put(t *testing.T, s LocalStore, recs ...models.Record) {
	t.Helper()
	for _, r := range recs {
		require.NoError(t, s.Put(context.Background(), r.Collection(), r))
	}
}

func all(t *testing.T, s LocalStore, c models.Collection) []models.Record {
	t.Helper()
	rs, err := s.GetAll(context.Background(), c)
	require.NoError(t, err)
	return rs
}

func recordIDs(rs []models.Record) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.RecordID())
	}
	return out
}
