package models

// Goals is the five-part daily target shape shared by goals and minimum
// requirements.
type Goals struct {
	ProteinG float64
	CarbsG   float64
	FatG     float64
	Kcal     float64
	WaterML  float64
}

// UserProfile belongs to one of the configured account holders; ID is the
// account name.
type UserProfile struct {
	ID                  string
	Name                string
	Goals               Goals
	MinimumRequirements *Goals
	WeeklyGoalFactor    *float64
	CreatedAt           int64
	UpdatedAt           int64
}

func (u *UserProfile) RecordID() string { return u.ID }
func (u *UserProfile) LastUpdated() int64 { return u.UpdatedAt }
func (u *UserProfile) Collection() Collection { return CollectionUsers }
func (*UserProfile) record() {}

// GoalFactor returns the weekly goal factor, or 0 when absent.
func (u *UserProfile) GoalFactor() float64 {
	if u.WeeklyGoalFactor == nil {
		return 0
	}
	return *u.WeeklyGoalFactor
}
