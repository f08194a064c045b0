package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/localstore"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLocal(t *testing.T, s *localstore.Store) {
	t.Helper()
	milk := food("f2", "Milk", "Dairy", 3)
	milk.DensityGPerML = models.Float(1.03)
	e := entry("e1", "kirk", "2026-05-01", "f1", 40, 1_715_000_000_123)
	e.Note = models.String("porridge")
	e.CreatedAt = 1_715_000_000_000
	put(t, s,
		food("f1", "Oats", "Grains", 2),
		milk,
		e,
		&models.UserProfile{ID: "kirk", Name: "Kirk", Goals: models.Goals{Kcal: 2200}, MinimumRequirements: &models.Goals{ProteinG: 90}, CreatedAt: 1, UpdatedAt: 2},
		&models.CalorieExpenditure{ID: "c1", UserID: "kirk", DateISO: "2026-05-01", CaloriesBurned: 310.5, Source: models.SourceManual, CreatedAt: 4, UpdatedAt: 5},
	)
	require.NoError(t, s.SetSetting(context.Background(), "theme", []byte("dark")))
}

type memArchive struct {
	objects map[string][]byte
}

func (a *memArchive) Put(_ context.Context, key string, data []byte) error {
	a.objects[key] = append([]byte(nil), data...)
	return nil
}

func (a *memArchive) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := a.objects[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return b, nil
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newLocal(t)
	seedLocal(t, src)

	b, err := NewBackupService(src, nil, nil, nil, fakeClock(42)).Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BackupSchemaVersion, b.SchemaVersion)
	assert.Equal(t, int64(42), b.ExportedAt)

	dst := newLocal(t)
	put(t, dst, food("stale", "Gone after import", "x", 1))
	mirror := NewMirror(dst)
	require.NoError(t, NewBackupService(dst, mirror, nil, nil, nil).Import(ctx, b))

	want, err := src.Snapshot(ctx)
	require.NoError(t, err)
	got, err := dst.Snapshot(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("imported state differs (-want +got):\n%s", diff)
	}
	assert.Len(t, mirror.Current().Foods(), 2)
}

func TestImport_RejectsUnknownSchema(t *testing.T) {
	local := newLocal(t)
	err := NewBackupService(local, nil, nil, nil, nil).Import(context.Background(), &models.Backup{SchemaVersion: "2"})
	require.ErrorIs(t, err, common.ErrUnsupportedSchema)
}

func TestImport_MalformedDocumentChangesNothing(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	seedLocal(t, local)
	before, err := local.Snapshot(ctx)
	require.NoError(t, err)

	good, err := codec.Encode(food("n1", "New", "x", 1))
	require.NoError(t, err)
	b := &models.Backup{
		SchemaVersion: models.BackupSchemaVersion,
		Collections: map[models.Collection][]map[string]any{
			models.CollectionFoods:   {good},
			models.CollectionEntries: {{"id": "broken"}},
		},
	}
	err = NewBackupService(local, nil, nil, nil, nil).Import(ctx, b)
	require.ErrorIs(t, err, common.ErrMalformedRecord)

	after, err := local.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(before, after))
}

func TestImport_UnknownCollection(t *testing.T) {
	local := newLocal(t)
	b := &models.Backup{SchemaVersion: "1", Collections: map[models.Collection][]map[string]any{"recipes": {}}}
	err := NewBackupService(local, nil, nil, nil, nil).Import(context.Background(), b)
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestExportFileImportFile(t *testing.T) {
	ctx := context.Background()
	src := newLocal(t)
	seedLocal(t, src)
	path := filepath.Join(t.TempDir(), "exports", "foodlog.json")

	require.NoError(t, NewBackupService(src, nil, nil, nil, nil).ExportFile(ctx, path))

	sum, err := os.ReadFile(path + ChecksumSuffix)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(sum), "  foodlog.json\n"))

	dst := newLocal(t)
	require.NoError(t, NewBackupService(dst, nil, nil, nil, nil).ImportFile(ctx, path))
	assert.Len(t, all(t, dst, models.CollectionEntries), 1)

	got, err := dst.Get(ctx, models.CollectionEntries, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(1_715_000_000_123), got.LastUpdated(), "millisecond timestamps survive the file")
}

func TestImportFile_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	src := newLocal(t)
	seedLocal(t, src)
	path := filepath.Join(t.TempDir(), "foodlog.json")
	require.NoError(t, NewBackupService(src, nil, nil, nil, nil).ExportFile(ctx, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), "Oats", "Oat$", 1)), 0o600))

	dst := newLocal(t)
	err = NewBackupService(dst, nil, nil, nil, nil).ImportFile(ctx, path)
	require.ErrorIs(t, err, common.ErrChecksumMismatch)
	assert.Empty(t, all(t, dst, models.CollectionFoods))
}

func TestImportFile_MissingChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foodlog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":"1"}`), 0o600))

	err := NewBackupService(newLocal(t), nil, nil, nil, nil).ImportFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestUploadRestore(t *testing.T) {
	ctx := context.Background()
	arch := &memArchive{objects: map[string][]byte{}}
	src := newLocal(t)
	seedLocal(t, src)

	key, err := NewBackupService(src, nil, arch, nil, nil).Upload(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^backups/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}\.json$`, key)
	assert.Contains(t, arch.objects, key+ChecksumSuffix)

	dst := newLocal(t)
	svc := NewBackupService(dst, nil, arch, nil, nil)
	require.NoError(t, svc.Restore(ctx, key))
	assert.Len(t, all(t, dst, models.CollectionFoods), 2)

	require.ErrorIs(t, svc.Restore(ctx, "backups/none.json"), common.ErrNotFound)

	arch.objects[key] = []byte(`{"schemaVersion":"1"}`)
	require.ErrorIs(t, svc.Restore(ctx, key), common.ErrChecksumMismatch)
}

func TestUpload_NoArchive(t *testing.T) {
	_, err := NewBackupService(newLocal(t), nil, nil, nil, nil).Upload(context.Background())
	require.Error(t, err)
	require.Error(t, NewBackupService(newLocal(t), nil, nil, nil, nil).Restore(context.Background(), "k"))
}
