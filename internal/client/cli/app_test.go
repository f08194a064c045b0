package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/config"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/remote"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRemote makes every connection attempt return rs, or err when set.
func stubRemote(t *testing.T, rs remote.Store, err *error) {
	t.Helper()
	orig := openRemote
	openRemote = func(context.Context, string, logging.Logger) (remote.Store, error) {
		if err != nil && *err != nil {
			return nil, *err
		}
		return rs, nil
	}
	t.Cleanup(func() { openRemote = orig })
}

func newTestApp(t *testing.T, input string) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.LocalDBPath = filepath.Join(t.TempDir(), "foodlog.db")

	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	app.reader = bufio.NewReader(strings.NewReader(input))
	app.out = io.Discard
	app.now = func() int64 { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local).UnixMilli() }
	t.Cleanup(func() { _ = app.Close() })
	return app
}

const oatsInput = "Oats\ngrain\n100\n13\n60\n7\n380\n"

func TestApp_AddFoodLogAndPush(t *testing.T) {
	out := captureOutput(t)
	rs := remote.NewMemoryStore()
	stubRemote(t, rs, nil)

	app := newTestApp(t, oatsInput+"oa\n50\ng\nbreakfast\n")
	ctx := context.Background()
	require.Equal(t, ModeOnline, app.Mode())

	require.NoError(t, app.AddFood(ctx))
	require.NoError(t, app.Log(ctx))
	require.NoError(t, app.Push(ctx))

	assert.Equal(t, 1, rs.Len(models.CollectionFoods))
	assert.Equal(t, 1, rs.Len(models.CollectionEntries))

	*out = nil
	require.NoError(t, app.Today(ctx))
	require.NotEmpty(t, *out)
	assert.Equal(t, "2025-03-14", (*out)[0])
	assert.Contains(t, strings.Join(*out, "\n"), "total: 190.0 kcal")
}

func TestApp_LogUnknownFood(t *testing.T) {
	captureOutput(t)
	stubRemote(t, remote.NewMemoryStore(), nil)

	app := newTestApp(t, "pizza\n")
	err := app.Log(context.Background())
	assert.ErrorIs(t, err, errNoSuchFood)
}

func TestApp_StartsOfflineAndReconnects(t *testing.T) {
	captureOutput(t)
	rs := remote.NewMemoryStore()
	openErr := error(common.ErrRemoteUnavailable)
	stubRemote(t, rs, &openErr)

	app := newTestApp(t, "")
	ctx := context.Background()
	assert.Equal(t, ModeOffline, app.Mode())
	assert.ErrorIs(t, app.Sync(ctx), common.ErrRemoteUnavailable)

	app.checkOnline(ctx)
	assert.Equal(t, ModeOffline, app.Mode())

	openErr = nil
	app.checkOnline(ctx)
	assert.Equal(t, ModeOnline, app.Mode())
	require.NoError(t, app.Sync(ctx))
}

func TestApp_PingFailureSwitchesOffline(t *testing.T) {
	captureOutput(t)
	rs := remote.NewMemoryStore()
	stubRemote(t, rs, nil)

	app := newTestApp(t, "")
	ctx := context.Background()

	rs.SetOffline(true)
	app.checkOnline(ctx)
	assert.Equal(t, ModeOffline, app.Mode())
	assert.Equal(t, "(kirk offline)", app.getStatus())

	rs.SetOffline(false)
	app.checkOnline(ctx)
	assert.Equal(t, ModeOnline, app.Mode())
}

func TestApp_AutoSyncPullsFromOtherDevice(t *testing.T) {
	captureOutput(t)
	rs := remote.NewMemoryStore()
	stubRemote(t, rs, nil)
	ctx := context.Background()

	phone := newTestApp(t, oatsInput)
	require.NoError(t, phone.AddFood(ctx))
	require.NoError(t, phone.autoSync(ctx))

	laptop := newTestApp(t, "")
	require.NoError(t, laptop.autoSync(ctx))

	foods := laptop.mirror.Current().Foods()
	require.Len(t, foods, 1)
	assert.Equal(t, "Oats", foods[0].Name)
}

func testFood(id, name string) *models.Food {
	return &models.Food{ID: id, Name: name, Category: "grain", Per: 100, Kcal: 100, CreatedAt: 1, UpdatedAt: 1}
}

func foodNames(t *testing.T, rs remote.Store) []string {
	t.Helper()
	docs, err := rs.GetAll(context.Background(), models.CollectionFoods, nil)
	require.NoError(t, err)
	var names []string
	for _, d := range docs {
		names = append(names, d["name"].(string))
	}
	return names
}

func TestApp_AutoSyncEqualCountsDifferentContents(t *testing.T) {
	captureOutput(t)
	rs := remote.NewMemoryStore()
	stubRemote(t, rs, nil)
	ctx := context.Background()

	for _, f := range []*models.Food{testFood("a", "A"), testFood("b", "B")} {
		doc, err := codec.Encode(f)
		require.NoError(t, err)
		require.NoError(t, rs.Upsert(ctx, models.CollectionFoods, f.ID, doc))
	}

	app := newTestApp(t, "")
	require.NoError(t, app.local.Put(ctx, models.CollectionFoods, testFood("a", "A")))
	require.NoError(t, app.local.Put(ctx, models.CollectionFoods, testFood("c", "C")))

	require.NoError(t, app.autoSync(ctx))

	assert.ElementsMatch(t, []string{"A", "B", "C"}, foodNames(t, rs))
	var local []string
	for _, f := range app.mirror.Current().Foods() {
		local = append(local, f.Name)
	}
	assert.ElementsMatch(t, []string{"A", "B", "C"}, local)
}

func TestApp_StatusCommand(t *testing.T) {
	out := captureOutput(t)
	stubRemote(t, remote.NewMemoryStore(), nil)

	app := newTestApp(t, oatsInput)
	ctx := context.Background()
	require.NoError(t, app.AddFood(ctx))

	*out = nil
	require.NoError(t, app.Status(ctx))
	joined := strings.Join(*out, "\n")
	assert.Contains(t, joined, "user kirk, online")
	assert.Contains(t, joined, "last sync: idle")
	assert.Contains(t, joined, "foods")
	assert.Contains(t, joined, "*")
}

func TestApp_DedupAndExportImport(t *testing.T) {
	captureOutput(t)
	stubRemote(t, remote.NewMemoryStore(), nil)

	app := newTestApp(t, oatsInput+strings.Replace(oatsInput, "Oats", "OATS", 1))
	ctx := context.Background()
	require.NoError(t, app.AddFood(ctx))
	require.NoError(t, app.AddFood(ctx))

	require.NoError(t, app.Dedup(ctx, []string{"foods"}))
	require.Len(t, app.mirror.Current().Foods(), 1)

	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, app.Export(ctx, path))
	require.NoError(t, app.Import(ctx, path))
	assert.Len(t, app.mirror.Current().Foods(), 1)
}

func TestApp_PullRejectsUnknownCollection(t *testing.T) {
	captureOutput(t)
	stubRemote(t, remote.NewMemoryStore(), nil)

	app := newTestApp(t, "")
	assert.Error(t, app.Pull(context.Background(), []string{"recipes"}))
	assert.NoError(t, app.Pull(context.Background(), []string{"all"}))
}

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	app := &App{logger: logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))}

	app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, app.Mode())
	assert.Contains(t, buf.String(), "mode=online")

	buf.Reset()
	app.setMode(ModeOnline)
	assert.Empty(t, buf.String())

	app.setMode(ModeOffline)
	assert.Contains(t, buf.String(), "mode=offline")
}

func TestParseCollections(t *testing.T) {
	cols, err := parseCollections(nil)
	require.NoError(t, err)
	assert.Nil(t, cols)

	cols, err = parseCollections([]string{"foods", "expenditure"})
	require.NoError(t, err)
	assert.Equal(t, []models.Collection{models.CollectionFoods, models.CollectionCalorieExpenditure}, cols)

	cols, err = parseCollections([]string{"entries", "all"})
	require.NoError(t, err)
	assert.Nil(t, cols)
}
