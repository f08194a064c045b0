package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedup_CaseVariantsCollapse(t *testing.T) {
	local := newLocal(t)
	put(t, local,
		food("f1", "Rice", "Grains", 10),
		food("f2", "rice", "grains", 20),
	)

	res, err := NewDedupService(local, logging.Nop{}).DedupCollection(context.Background(), models.CollectionFoods, FoodIdentityKey)
	require.NoError(t, err)

	assert.Equal(t, DedupResult{Kept: 1, Removed: 1}, res)
	assert.Equal(t, []string{"f1"}, recordIDs(all(t, local, models.CollectionFoods)))
}

func TestDedup_KeepsFirstInNaturalOrderNotNewest(t *testing.T) {
	local := newLocal(t)
	put(t, local,
		food("old", "Oats", "Grains", 1),
		food("newer", "OATS", "GRAINS", 999),
	)

	_, err := NewDedupService(local, nil).DedupCollection(context.Background(), models.CollectionFoods, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, recordIDs(all(t, local, models.CollectionFoods)))
}

func TestDedup_UnicodeNormalisation(t *testing.T) {
	local := newLocal(t)
	put(t, local,
		food("a", "Cr\u00e8me fra\u00eeche", "Dairy", 1),
		food("b", "Cre\u0300me frai\u0302che", "dairy", 2),
		food("c", "\u00c9clair", "Pastry", 3),
		food("d", "\u00e9CLAIR", "pastry", 4),
	)

	res, err := NewDedupService(local, nil).DedupCollection(context.Background(), models.CollectionFoods, FoodIdentityKey)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, []string{"a", "c"}, recordIDs(all(t, local, models.CollectionFoods)))
}

func TestDedup_EntriesByTuple(t *testing.T) {
	local := newLocal(t)
	put(t, local,
		entry("e1", "kirk", "2026-05-01", "f1", 100, 1),
		entry("e2", "kirk", "2026-05-01", "f1", 100, 2),
		entry("e3", "kirk", "2026-05-01", "f1", 150, 3),
		entry("e4", "mary", "2026-05-01", "f1", 100, 4),
		entry("e5", "kirk", "2026-05-02", "f1", 100, 5),
	)

	res, err := NewDedupService(local, nil).DedupCollection(context.Background(), models.CollectionEntries, EntryIdentityKey)
	require.NoError(t, err)
	assert.Equal(t, DedupResult{Kept: 4, Removed: 1}, res)
	assert.Equal(t, []string{"e1", "e3", "e4", "e5"}, recordIDs(all(t, local, models.CollectionEntries)))
}

func TestDedup_IDKeyNeverCollapses(t *testing.T) {
	local := newLocal(t)
	put(t, local,
		&models.CalorieExpenditure{ID: "x1", UserID: "kirk", DateISO: "2026-05-01", CaloriesBurned: 300, Source: models.SourceManual, UpdatedAt: 1},
		&models.CalorieExpenditure{ID: "x2", UserID: "kirk", DateISO: "2026-05-01", CaloriesBurned: 300, Source: models.SourceManual, UpdatedAt: 1},
	)

	res, err := NewDedupService(local, nil).DedupCollection(context.Background(), models.CollectionCalorieExpenditure, IdentityKeyFor(models.CollectionCalorieExpenditure))
	require.NoError(t, err)
	assert.Equal(t, DedupResult{Kept: 2, Removed: 0}, res)
}

func TestDedup_NoDuplicatesRemainAndSecondRunIsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"Rice", "rice", "RICE", "Oats", "oats", "Milk"}
	cats := []string{"Grains", "grains", "Dairy"}

	for round := 0; round < 20; round++ {
		local := newLocal(t)
		for i := 0; i < 15; i++ {
			put(t, local, food(fmt.Sprintf("f%d", i), names[rng.Intn(len(names))], cats[rng.Intn(len(cats))], int64(i+1)))
		}
		svc := NewDedupService(local, nil)
		ctx := context.Background()

		first, err := svc.DedupCollection(ctx, models.CollectionFoods, FoodIdentityKey)
		require.NoError(t, err)

		keys := map[string]bool{}
		for _, r := range all(t, local, models.CollectionFoods) {
			k := FoodIdentityKey(r)
			require.False(t, keys[k], "duplicate key %q survived", k)
			keys[k] = true
		}
		assert.Equal(t, 15, first.Kept+first.Removed)

		second, err := svc.DedupCollection(ctx, models.CollectionFoods, FoodIdentityKey)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Removed)
		assert.Equal(t, first.Kept, second.Kept)
	}
}

func TestIdentityKeys(t *testing.T) {
	assert.Equal(t, FoodIdentityKey(food("a", " Rice ", "Grains", 1)), FoodIdentityKey(food("b", "rice", "GRAINS", 2)))
	assert.NotEqual(t, FoodIdentityKey(food("a", "Rice", "Grains", 1)), FoodIdentityKey(food("b", "Rice", "Grain", 1)))
	assert.NotEqual(t, FoodIdentityKey(food("a", "ab", "c", 1)), FoodIdentityKey(food("b", "a", "bc", 1)))

	assert.Equal(t,
		EntryIdentityKey(entry("1", "kirk", "2026-01-01", "f", 0.5, 1)),
		EntryIdentityKey(entry("2", "KIRK", "2026-01-01", "f", 0.50, 9)),
	)
	assert.NotEqual(t, IDIdentityKey(food("a", "x", "y", 1)), IDIdentityKey(food("b", "x", "y", 1)))
}
