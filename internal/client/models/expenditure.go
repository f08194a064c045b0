package models

type ExpenditureSource string

const (
	SourceDevice ExpenditureSource = "device"
	SourceManual ExpenditureSource = "manual"
)

func (s ExpenditureSource) Valid() bool {
	return s == SourceDevice || s == SourceManual
}

// CalorieExpenditure records calories burned on a day. Several records may
// exist for the same (UserID, DateISO).
type CalorieExpenditure struct {
	ID             string
	UserID         string
	DateISO        string
	CaloriesBurned float64
	Source         ExpenditureSource
	Note           *string
	CreatedAt      int64
	UpdatedAt      int64
}

func (c *CalorieExpenditure) RecordID() string { return c.ID }
func (c *CalorieExpenditure) LastUpdated() int64 { return c.UpdatedAt }
func (c *CalorieExpenditure) Collection() Collection { return CollectionCalorieExpenditure }
func (*CalorieExpenditure) record() {}
