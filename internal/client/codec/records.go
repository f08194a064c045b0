package codec

import "github.com/kirkbardini/foodlogkm-sub000/internal/client/models"

func encodeFood(f *models.Food) Document {
	doc := Document{
		FieldID:        f.ID,
		"name":         f.Name,
		"category":     f.Category,
		"per":          f.Per,
		"protein_g":    f.ProteinG,
		"carbs_g":      f.CarbsG,
		"fat_g":        f.FatG,
		"kcal":         f.Kcal,
		FieldCreatedAt: f.CreatedAt,
		FieldUpdatedAt: f.UpdatedAt,
	}
	if f.DensityGPerML != nil {
		doc["density_g_per_ml"] = *f.DensityGPerML
	}
	return doc
}

func decodeFood(r *reader) *models.Food {
	return &models.Food{
		ID:            r.str(FieldID),
		Name:          r.str("name"),
		Category:      r.str("category"),
		Per:           r.num("per"),
		ProteinG:      r.num("protein_g"),
		CarbsG:        r.num("carbs_g"),
		FatG:          r.num("fat_g"),
		Kcal:          r.num("kcal"),
		DensityGPerML: r.optNum("density_g_per_ml"),
		CreatedAt:     r.millis(FieldCreatedAt),
		UpdatedAt:     r.millis(FieldUpdatedAt),
	}
}

func encodeEntry(e *models.Entry) Document {
	doc := Document{
		FieldID:        e.ID,
		FieldUserID:    e.UserID,
		FieldDateISO:   e.DateISO,
		"foodId":       e.FoodID,
		"qty":          e.Qty,
		"unit":         e.Unit,
		"mealType":     e.MealType,
		"protein_g":    e.ProteinG,
		"carbs_g":      e.CarbsG,
		"fat_g":        e.FatG,
		"kcal":         e.Kcal,
		"water_ml":     e.WaterML,
		FieldUpdatedAt: e.UpdatedAt,
	}
	if e.Note != nil {
		doc["note"] = *e.Note
	}
	if e.CreatedAt != 0 {
		doc[FieldCreatedAt] = e.CreatedAt
	}
	return doc
}

func decodeEntry(r *reader) *models.Entry {
	return &models.Entry{
		ID:       r.str(FieldID),
		UserID:   r.str(FieldUserID),
		DateISO:  r.str(FieldDateISO),
		FoodID:   r.str("foodId"),
		Qty:      r.num("qty"),
		Unit:     r.str("unit"),
		MealType: r.str("mealType"),
		Nutrients: models.Nutrients{
			ProteinG: r.num("protein_g"),
			CarbsG:   r.num("carbs_g"),
			FatG:     r.num("fat_g"),
			Kcal:     r.num("kcal"),
			WaterML:  r.numOrZero("water_ml"),
		},
		Note:      r.optStr("note"),
		CreatedAt: r.millisOrZero(FieldCreatedAt),
		UpdatedAt: r.millis(FieldUpdatedAt),
	}
}

func encodeGoals(g models.Goals) Document {
	return Document{
		"protein_g": g.ProteinG,
		"carbs_g":   g.CarbsG,
		"fat_g":     g.FatG,
		"kcal":      g.Kcal,
		"water_ml":  g.WaterML,
	}
}

func encodeUser(u *models.UserProfile) Document {
	doc := Document{
		FieldID:        u.ID,
		"name":         u.Name,
		"goals":        encodeGoals(u.Goals),
		FieldUpdatedAt: u.UpdatedAt,
	}
	if u.WeeklyGoalFactor != nil {
		doc["weeklyGoalFactor"] = *u.WeeklyGoalFactor
	}
	if u.MinimumRequirements != nil {
		doc["minimumRequirements"] = encodeGoals(*u.MinimumRequirements)
	}
	if u.CreatedAt != 0 {
		doc[FieldCreatedAt] = u.CreatedAt
	}
	return doc
}

func decodeUser(r *reader) *models.UserProfile {
	u := &models.UserProfile{
		ID:               r.str(FieldID),
		Name:             r.str("name"),
		WeeklyGoalFactor: r.optNum("weeklyGoalFactor"),
		CreatedAt:        r.millisOrZero(FieldCreatedAt),
		UpdatedAt:        r.millis(FieldUpdatedAt),
	}
	if g, ok := r.goals("goals", true); ok {
		u.Goals = g
	}
	if g, ok := r.goals("minimumRequirements", false); ok {
		u.MinimumRequirements = &g
	}
	return u
}

func encodeExpenditure(c *models.CalorieExpenditure) Document {
	doc := Document{
		FieldID:           c.ID,
		FieldUserID:       c.UserID,
		FieldDateISO:      c.DateISO,
		"calories_burned": c.CaloriesBurned,
		"source":          string(c.Source),
		FieldCreatedAt:    c.CreatedAt,
		FieldUpdatedAt:    c.UpdatedAt,
	}
	if c.Note != nil {
		doc["note"] = *c.Note
	}
	return doc
}

func decodeExpenditure(r *reader) *models.CalorieExpenditure {
	return &models.CalorieExpenditure{
		ID:             r.str(FieldID),
		UserID:         r.str(FieldUserID),
		DateISO:        r.str(FieldDateISO),
		CaloriesBurned: r.num("calories_burned"),
		Source:         models.ExpenditureSource(r.str("source")),
		Note:           r.optStr("note"),
		CreatedAt:      r.millis(FieldCreatedAt),
		UpdatedAt:      r.millis(FieldUpdatedAt),
	}
}
