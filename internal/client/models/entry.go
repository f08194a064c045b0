package models

// Nutrients is the macro snapshot frozen onto an entry when it is logged.
type Nutrients struct {
	ProteinG float64
	CarbsG   float64
	FatG     float64
	Kcal     float64
	WaterML  float64
}

// Entry is one food-diary line. FoodID is a soft reference: the food may be
// edited or deleted later and the entry keeps its own Nutrients.
type Entry struct {
	ID       string
	UserID   string
	DateISO  string
	FoodID   string
	Qty      float64
	Unit     string
	MealType string
	Nutrients
	Note      *string
	CreatedAt int64
	UpdatedAt int64
}

func (e *Entry) RecordID() string { return e.ID }
func (e *Entry) LastUpdated() int64 { return e.UpdatedAt }
func (e *Entry) Collection() Collection { return CollectionEntries }
func (*Entry) record() {}

// Meal types offered by the tracker.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

func IsMealType(s string) bool {
	switch s {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}
