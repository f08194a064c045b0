package models

import (
	"fmt"
	"strings"
)

type Collection string

const (
	CollectionFoods              Collection = "foods"
	CollectionEntries            Collection = "entries"
	CollectionUsers              Collection = "users"
	CollectionCalorieExpenditure Collection = "calorieExpenditure"
)

// AllCollections is the processing order for full pulls, pushes and backups.
// Reference data comes first so that entries never arrive before their foods.
var AllCollections = []Collection{
	CollectionFoods,
	CollectionUsers,
	CollectionEntries,
	CollectionCalorieExpenditure,
}

// UserScoped reports whether records of c are partitioned by userId.
func (c Collection) UserScoped() bool {
	return c == CollectionEntries || c == CollectionCalorieExpenditure
}

// ParseCollection accepts the wire name or a short alias, case-insensitively.
func ParseCollection(s string) (Collection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "foods", "food":
		return CollectionFoods, nil
	case "entries", "entry":
		return CollectionEntries, nil
	case "users", "user", "profiles":
		return CollectionUsers, nil
	case "calorieexpenditure", "expenditure", "burn":
		return CollectionCalorieExpenditure, nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// Record is the closed set of storable kinds: *Food, *Entry, *UserProfile
// and *CalorieExpenditure.
type Record interface {
	RecordID() string
	LastUpdated() int64
	Collection() Collection
	record()
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v, for optional text fields.
func String(v string) *string { return &v }
