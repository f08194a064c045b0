package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/nutrition"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/services"
)

const dateLayout = "2006-01-02"

func (a *App) today() string {
	return time.UnixMilli(a.now()).Format(dateLayout)
}

func (a *App) Status(ctx context.Context) error {
	printlnFn(fmt.Sprintf("user %s, %s", a.config.UserID, a.Mode()))

	s, err := a.syncService()
	if err != nil {
		printlnFn("remote not connected")
		return nil
	}

	last := s.Status()
	line := "last sync: " + string(last.State)
	if last.FinishedAt > 0 {
		line += " at " + time.UnixMilli(last.FinishedAt).Format(time.DateTime)
	}
	if last.Err != nil {
		line += " (" + last.Err.Error() + ")"
	}
	printlnFn(line)

	if a.Mode() != ModeOnline {
		return nil
	}
	st, err := s.CheckSyncStatus(ctx, a.config.UserID)
	if err != nil {
		return err
	}
	for _, cs := range st.Collections {
		mark := ""
		if cs.Stale() {
			mark = " *"
		}
		printlnFn(fmt.Sprintf("  %-20s local %4d  remote %4d%s", cs.Collection, cs.Local, cs.Remote, mark))
	}
	return nil
}

// Pull accepts "all" or collection names; no argument means all.
func (a *App) Pull(ctx context.Context, args []string) error {
	cols, err := parseCollections(args)
	if err != nil {
		return err
	}
	s, err := a.syncService()
	if err != nil {
		return err
	}
	rep, err := s.LoadFromRemote(ctx, services.PullOptions{Collections: cols, UserID: a.config.UserID})
	printReport(rep)
	return err
}

func (a *App) Push(ctx context.Context) error {
	s, err := a.syncService()
	if err != nil {
		return err
	}
	rep, err := s.SaveToRemote(ctx, services.PushOptions{UserID: a.config.UserID})
	printReport(rep)
	return err
}

func (a *App) Sync(ctx context.Context) error {
	s, err := a.syncService()
	if err != nil {
		return err
	}
	rep, err := s.SyncNow(ctx, a.config.UserID)
	printReport(rep)
	return err
}

// Dedup sweeps foods and entries, or only the collections named.
func (a *App) Dedup(ctx context.Context, args []string) error {
	cols := []models.Collection{models.CollectionFoods, models.CollectionEntries}
	if len(args) > 0 {
		parsed, err := parseCollections(args)
		if err != nil {
			return err
		}
		cols = parsed
	}

	for _, c := range cols {
		res, err := a.dedup.DedupCollection(ctx, c, services.IdentityKeyFor(c))
		if err != nil {
			return err
		}
		printlnFn(fmt.Sprintf("%s: kept %d, removed %d", c, res.Kept, res.Removed))
	}
	return a.mirror.Refresh(ctx)
}

// Today prints the current user's diary for the local date.
func (a *App) Today(ctx context.Context) error {
	date := a.today()
	entries, err := a.tracker.EntriesForDay(ctx, a.config.UserID, date)
	if err != nil {
		return err
	}

	snap := a.mirror.Current()
	names := make(map[string]string)
	for _, f := range snap.Foods() {
		names[f.ID] = f.Name
	}

	printlnFn(date)
	for _, e := range entries {
		name, ok := names[e.FoodID]
		if !ok {
			name = "(deleted food)"
		}
		printlnFn(fmt.Sprintf("  %-9s %-24s %7.1f %-4s %7.1f kcal", e.MealType, name, e.Qty, e.Unit, e.Kcal))
	}

	total := nutrition.Totals(entries)
	printlnFn(fmt.Sprintf("total: %.1f kcal, P %.1f g, C %.1f g, F %.1f g, water %.0f ml",
		total.Kcal, total.ProteinG, total.CarbsG, total.FatG, total.WaterML))

	var burned float64
	for _, x := range snap.Expenditures() {
		if x.UserID == a.config.UserID && x.DateISO == date {
			burned += x.CaloriesBurned
		}
	}
	if burned > 0 {
		printlnFn(fmt.Sprintf("burned: %.0f kcal", burned))
	}

	for _, u := range snap.Users() {
		if u.ID == a.config.UserID {
			printlnFn(fmt.Sprintf("goal: %.0f kcal, P %.0f g, C %.0f g, F %.0f g, water %.0f ml",
				u.Goals.Kcal, u.Goals.ProteinG, u.Goals.CarbsG, u.Goals.FatG, u.Goals.WaterML))
		}
	}
	return nil
}

func (a *App) Export(ctx context.Context, path string) error {
	if err := a.backup.ExportFile(ctx, path); err != nil {
		return err
	}
	printlnFn("Exported to", path)
	return nil
}

func (a *App) Import(ctx context.Context, path string) error {
	if err := a.backup.ImportFile(ctx, path); err != nil {
		return err
	}
	printlnFn("Imported", path)
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	key, err := a.backup.Upload(ctx)
	if err != nil {
		return err
	}
	printlnFn("Uploaded", key)
	return nil
}

func (a *App) Restore(ctx context.Context, key string) error {
	if err := a.backup.Restore(ctx, key); err != nil {
		return err
	}
	printlnFn("Restored", key)
	return nil
}

// AddFood asks for a food interactively.
func (a *App) AddFood(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	category, err := GetSimpleText(a.reader, "Category", a.out)
	if err != nil {
		return err
	}
	f := &models.Food{Name: name, Category: category}
	for _, p := range []struct {
		prompt string
		dst    *float64
	}{
		{"Per (base units)", &f.Per},
		{"Protein g", &f.ProteinG},
		{"Carbs g", &f.CarbsG},
		{"Fat g", &f.FatG},
		{"Kcal", &f.Kcal},
	} {
		if *p.dst, err = GetFloat(a.reader, p.prompt, a.out); err != nil {
			return err
		}
	}

	saved, err := a.tracker.AddFood(ctx, f)
	if err != nil {
		return err
	}
	printlnFn("Added food", saved.ID)
	return nil
}

// Log adds a diary entry for today, picking the food by name.
func (a *App) Log(ctx context.Context) error {
	query, err := GetSimpleText(a.reader, "Food name", a.out)
	if err != nil {
		return err
	}
	f, err := a.findFood(query)
	if err != nil {
		return err
	}
	qty, err := GetFloat(a.reader, "Quantity", a.out)
	if err != nil {
		return err
	}
	unit, err := GetSimpleText(a.reader, "Unit (g, ml, unit)", a.out)
	if err != nil {
		return err
	}
	meal, err := GetSimpleText(a.reader, "Meal (breakfast, lunch, dinner, snack)", a.out)
	if err != nil {
		return err
	}

	e, err := a.tracker.AddEntry(ctx, services.EntryInput{
		UserID:   a.config.UserID,
		DateISO:  a.today(),
		FoodID:   f.ID,
		Qty:      qty,
		Unit:     unit,
		MealType: meal,
	})
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Logged %s: %.1f kcal", f.Name, e.Kcal))
	return nil
}

// Burn records calories burned today.
func (a *App) Burn(ctx context.Context) error {
	kcal, err := GetFloat(a.reader, "Calories burned", a.out)
	if err != nil {
		return err
	}
	x, err := a.tracker.AddExpenditure(ctx, services.ExpenditureInput{
		UserID:         a.config.UserID,
		DateISO:        a.today(),
		CaloriesBurned: kcal,
		Source:         models.SourceManual,
	})
	if err != nil {
		return err
	}
	printlnFn("Recorded", x.ID)
	return nil
}

var errNoSuchFood = errors.New("no matching food")

// findFood matches by exact name first, then by a unique prefix.
func (a *App) findFood(query string) (*models.Food, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	foods := a.mirror.Current().Foods()

	if i := slices.IndexFunc(foods, func(f *models.Food) bool { return strings.ToLower(f.Name) == q }); i >= 0 {
		return foods[i], nil
	}

	var hits []*models.Food
	for _, f := range foods {
		if strings.HasPrefix(strings.ToLower(f.Name), q) {
			hits = append(hits, f)
		}
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: %q", errNoSuchFood, query)
	case 1:
		return hits[0], nil
	}
	return nil, fmt.Errorf("%q matches %d foods", query, len(hits))
}

func parseCollections(args []string) ([]models.Collection, error) {
	var cols []models.Collection
	for _, arg := range args {
		if arg == "all" {
			return nil, nil
		}
		c, err := models.ParseCollection(arg)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func printReport(rep *services.Report) {
	if rep != nil {
		printlnFn(rep.String())
	}
}
