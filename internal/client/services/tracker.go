package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/localstore"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/nutrition"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"github.com/kirkbardini/foodlogkm-sub000/internal/timex"
)

const dateLayout = "2006-01-02"

// newID is a seam for tests.
var newID = uuid.NewString

type EntryInput struct {
	UserID   string
	DateISO  string
	FoodID   string
	Qty      float64
	Unit     string
	MealType string
	Note     *string
}

type ExpenditureInput struct {
	UserID         string
	DateISO        string
	CaloriesBurned float64
	Source         models.ExpenditureSource
	Note           *string
}

// Tracker performs user writes against LocalStore only. It never talks to
// the remote; SyncService carries the changes over later.
type Tracker struct {
	store    LocalStore
	mirror   *Mirror
	accounts []string
	logger   logging.Logger
	now      Clock
}

func NewTracker(store LocalStore, mirror *Mirror, accounts []string, logger logging.Logger, now Clock) *Tracker {
	if logger == nil {
		logger = logging.Nop{}
	}
	if now == nil {
		now = timex.NowMillis
	}
	return &Tracker{
		store:    store,
		mirror:   mirror,
		accounts: accounts,
		logger:   logger.With("module", "tracker"),
		now:      now,
	}
}

func (t *Tracker) refresh(ctx context.Context) {
	if t.mirror == nil {
		return
	}
	if err := t.mirror.Refresh(ctx); err != nil {
		t.logger.Warn(ctx, "mirror refresh failed", "err", err)
	}
}

func validDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return nil
}

func validateFood(f *models.Food) error {
	switch {
	case f == nil:
		return errors.New("food is required")
	case strings.TrimSpace(f.Name) == "":
		return errors.New("food name is required")
	case f.Per <= 0:
		return errors.New("food per must be > 0")
	case f.DensityGPerML != nil && *f.DensityGPerML <= 0:
		return errors.New("density must be > 0")
	}
	return nil
}

// AddFood stores a copy of f with a fresh id and timestamps.
func (t *Tracker) AddFood(ctx context.Context, f *models.Food) (*models.Food, error) {
	if err := validateFood(f); err != nil {
		return nil, err
	}
	out := *f
	out.ID = newID()
	now := t.now()
	out.CreatedAt, out.UpdatedAt = now, now

	if err := t.store.Add(ctx, models.CollectionFoods, &out); err != nil {
		return nil, fmt.Errorf("add food: %w", err)
	}
	t.refresh(ctx)
	return &out, nil
}

// UpdateFood replaces the facts of an existing food. Entries already logged
// against it keep their snapshot.
func (t *Tracker) UpdateFood(ctx context.Context, f *models.Food) (*models.Food, error) {
	if err := validateFood(f); err != nil {
		return nil, err
	}
	cur, err := t.store.Get(ctx, models.CollectionFoods, f.ID)
	if err != nil {
		return nil, fmt.Errorf("update food %s: %w", f.ID, err)
	}
	out := *f
	out.CreatedAt = cur.(*models.Food).CreatedAt
	out.UpdatedAt = t.now()

	if err := t.store.Put(ctx, models.CollectionFoods, &out); err != nil {
		return nil, fmt.Errorf("update food %s: %w", f.ID, err)
	}
	t.refresh(ctx)
	return &out, nil
}

// DeleteFood leaves entries referencing id in place.
func (t *Tracker) DeleteFood(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, models.CollectionFoods, id); err != nil {
		return fmt.Errorf("delete food %s: %w", id, err)
	}
	t.refresh(ctx)
	return nil
}

// AddEntry logs a serving and freezes the food's nutrients for the quantity. A
// missing food fails with common.ErrNotFound.
func (t *Tracker) AddEntry(ctx context.Context, in EntryInput) (*models.Entry, error) {
	if in.UserID == "" {
		return nil, errors.New("user is required")
	}
	if err := validDate(in.DateISO); err != nil {
		return nil, err
	}
	if !models.IsMealType(in.MealType) {
		return nil, fmt.Errorf("unknown meal type %q", in.MealType)
	}

	rec, err := t.store.Get(ctx, models.CollectionFoods, in.FoodID)
	if err != nil {
		return nil, fmt.Errorf("add entry: food %s: %w", in.FoodID, err)
	}
	n, err := nutrition.Compute(rec.(*models.Food), in.Qty, in.Unit)
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}

	now := t.now()
	e := &models.Entry{
		ID:        newID(),
		UserID:    in.UserID,
		DateISO:   in.DateISO,
		FoodID:    in.FoodID,
		Qty:       in.Qty,
		Unit:      in.Unit,
		MealType:  in.MealType,
		Nutrients: n,
		Note:      in.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.Add(ctx, models.CollectionEntries, e); err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}
	t.refresh(ctx)
	return e, nil
}

// UpdateEntry changes the meal type and note. The nutrient snapshot is never
// recomputed.
func (t *Tracker) UpdateEntry(ctx context.Context, id, mealType string, note *string) (*models.Entry, error) {
	if !models.IsMealType(mealType) {
		return nil, fmt.Errorf("unknown meal type %q", mealType)
	}
	rec, err := t.store.Get(ctx, models.CollectionEntries, id)
	if err != nil {
		return nil, fmt.Errorf("update entry %s: %w", id, err)
	}
	e := *rec.(*models.Entry)
	e.MealType = mealType
	e.Note = note
	e.UpdatedAt = t.now()

	if err := t.store.Put(ctx, models.CollectionEntries, &e); err != nil {
		return nil, fmt.Errorf("update entry %s: %w", id, err)
	}
	t.refresh(ctx)
	return &e, nil
}

func (t *Tracker) DeleteEntry(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, models.CollectionEntries, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	t.refresh(ctx)
	return nil
}

// EntriesForDay returns the user's entries for date in the order they were
// stored.
func (t *Tracker) EntriesForDay(ctx context.Context, userID, date string) ([]*models.Entry, error) {
	rs, err := t.store.GetByCompositeKey(ctx, models.CollectionEntries, localstore.CompositeKey{UserID: userID, DateISO: date})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Entry, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.(*models.Entry))
	}
	return out, nil
}

// SaveProfile upserts p. Its id must be one of the configured accounts.
func (t *Tracker) SaveProfile(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	if p == nil {
		return nil, errors.New("profile is required")
	}
	if !slices.Contains(t.accounts, p.ID) {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownAccount, p.ID)
	}

	out := *p
	now := t.now()
	out.UpdatedAt = now
	cur, err := t.store.Get(ctx, models.CollectionUsers, p.ID)
	switch {
	case err == nil:
		out.CreatedAt = cur.(*models.UserProfile).CreatedAt
	case errors.Is(err, common.ErrNotFound):
		out.CreatedAt = now
	default:
		return nil, fmt.Errorf("save profile %s: %w", p.ID, err)
	}

	if err := t.store.Put(ctx, models.CollectionUsers, &out); err != nil {
		return nil, fmt.Errorf("save profile %s: %w", p.ID, err)
	}
	t.refresh(ctx)
	return &out, nil
}

// AddExpenditure does not enforce one record per user and day.
func (t *Tracker) AddExpenditure(ctx context.Context, in ExpenditureInput) (*models.CalorieExpenditure, error) {
	if in.UserID == "" {
		return nil, errors.New("user is required")
	}
	if err := validDate(in.DateISO); err != nil {
		return nil, err
	}
	if !in.Source.Valid() {
		return nil, fmt.Errorf("unknown expenditure source %q", in.Source)
	}
	if in.CaloriesBurned < 0 {
		return nil, errors.New("calories burned must be >= 0")
	}

	now := t.now()
	c := &models.CalorieExpenditure{
		ID:             newID(),
		UserID:         in.UserID,
		DateISO:        in.DateISO,
		CaloriesBurned: in.CaloriesBurned,
		Source:         in.Source,
		Note:           in.Note,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := t.store.Add(ctx, models.CollectionCalorieExpenditure, c); err != nil {
		return nil, fmt.Errorf("add expenditure: %w", err)
	}
	t.refresh(ctx)
	return c, nil
}

func (t *Tracker) DeleteExpenditure(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, models.CollectionCalorieExpenditure, id); err != nil {
		return fmt.Errorf("delete expenditure %s: %w", id, err)
	}
	t.refresh(ctx)
	return nil
}
