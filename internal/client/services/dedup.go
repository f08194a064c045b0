package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// IdentityKeyFunc derives the duplicate-detection key of a record.
type IdentityKeyFunc func(models.Record) string

type DedupResult struct {
	Kept    int
	Removed int
}

type Deduplicator interface {
	// DedupCollection keeps the first record of every identity-key group in
	// the store's natural order and deletes the rest. It does not look at
	// timestamps: which duplicate survives is positional.
	DedupCollection(ctx context.Context, c models.Collection, key IdentityKeyFunc) (DedupResult, error)
}

type dedupService struct {
	store  LocalStore
	logger logging.Logger
}

func NewDedupService(store LocalStore, logger logging.Logger) Deduplicator {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &dedupService{store: store, logger: logger.With("module", "dedup")}
}

func (s *dedupService) DedupCollection(ctx context.Context, c models.Collection, key IdentityKeyFunc) (DedupResult, error) {
	if key == nil {
		key = IdentityKeyFor(c)
	}

	recs, err := s.store.GetAll(ctx, c)
	if err != nil {
		return DedupResult{}, fmt.Errorf("dedup %s: %w", c, err)
	}

	seen := make(map[string]struct{}, len(recs))
	var drop []string
	for _, r := range recs {
		k := key(r)
		if _, dup := seen[k]; dup {
			drop = append(drop, r.RecordID())
			continue
		}
		seen[k] = struct{}{}
	}

	if len(drop) > 0 {
		if err := s.store.DeleteMany(ctx, c, drop); err != nil {
			return DedupResult{}, fmt.Errorf("dedup %s: %w", c, err)
		}
		s.logger.Info(ctx, "removed duplicates", "collection", string(c), "removed", len(drop), "kept", len(seen))
	}
	return DedupResult{Kept: len(seen), Removed: len(drop)}, nil
}

const keySep = "\x1f"

func fold(parts ...string) string {
	caser := cases.Fold()
	for i, p := range parts {
		parts[i] = caser.String(norm.NFC.String(strings.TrimSpace(p)))
	}
	return strings.Join(parts, keySep)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FoodIdentityKey is the case-insensitive (name, category) pair.
func FoodIdentityKey(r models.Record) string {
	f, ok := r.(*models.Food)
	if !ok {
		return IDIdentityKey(r)
	}
	return fold(f.Name, f.Category)
}

// EntryIdentityKey is (userId, dateISO, foodId, qty, unit).
func EntryIdentityKey(r models.Record) string {
	e, ok := r.(*models.Entry)
	if !ok {
		return IDIdentityKey(r)
	}
	return fold(e.UserID, e.DateISO, e.FoodID, num(e.Qty), e.Unit)
}

// IDIdentityKey never groups two distinct records.
func IDIdentityKey(r models.Record) string {
	return "id" + keySep + r.RecordID()
}

// IdentityKeyFor returns the default key of c.
func IdentityKeyFor(c models.Collection) IdentityKeyFunc {
	switch c {
	case models.CollectionFoods:
		return FoodIdentityKey
	case models.CollectionEntries:
		return EntryIdentityKey
	}
	return IDIdentityKey
}
