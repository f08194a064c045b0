package models

// Food is a reference item. Nutrient values are given per Per base units
// (grams, or millilitres for liquids without a density).
type Food struct {
	ID            string
	Name          string
	Category      string
	Per           float64
	ProteinG      float64
	CarbsG        float64
	FatG          float64
	Kcal          float64
	DensityGPerML *float64
	CreatedAt     int64
	UpdatedAt     int64
}

func (f *Food) RecordID() string { return f.ID }
func (f *Food) LastUpdated() int64 { return f.UpdatedAt }
func (f *Food) Collection() Collection { return CollectionFoods }
func (*Food) record() {}

// Density returns the grams-per-millilitre factor, or 0 when absent.
func (f *Food) Density() float64 {
	if f.DensityGPerML == nil {
		return 0
	}
	return *f.DensityGPerML
}
