package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/archive"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/localstore"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/cryptox"
	"github.com/kirkbardini/foodlogkm-sub000/internal/filex"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"github.com/kirkbardini/foodlogkm-sub000/internal/timex"
)

// ChecksumSuffix is appended to a backup path to name its checksum file.
const ChecksumSuffix = ".b2sum"

// Archive is remote object storage for backups.
type Archive interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

var _ Archive = (*archive.S3Archive)(nil)

type BackupService struct {
	store   LocalStore
	mirror  *Mirror
	archive Archive
	logger  logging.Logger
	now     Clock
}

// NewBackupService returns a backup service. archive may be nil, in which
// case Upload and Restore fail.
func NewBackupService(store LocalStore, mirror *Mirror, arch Archive, logger logging.Logger, now Clock) *BackupService {
	if logger == nil {
		logger = logging.Nop{}
	}
	if now == nil {
		now = timex.NowMillis
	}
	return &BackupService{store: store, mirror: mirror, archive: arch, logger: logger.With("module", "backup"), now: now}
}

// Export captures every collection and the settings.
func (s *BackupService) Export(ctx context.Context) (*models.Backup, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	b := &models.Backup{
		SchemaVersion: models.BackupSchemaVersion,
		ExportedAt:    s.now(),
		Collections:   make(map[models.Collection][]map[string]any, len(models.AllCollections)),
		Settings:      snap.Settings,
	}
	for _, c := range models.AllCollections {
		docs, err := codec.EncodeAll(snap.Records(c))
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", c, err)
		}
		b.Collections[c] = docs
	}
	return b, nil
}

// Import replaces the whole local state with b. Every document is decoded
// before anything is written, so a bad backup leaves the store unchanged.
func (s *BackupService) Import(ctx context.Context, b *models.Backup) error {
	if b == nil {
		return errors.New("import: nil backup")
	}
	if b.SchemaVersion != models.BackupSchemaVersion {
		return fmt.Errorf("%w: %q", common.ErrUnsupportedSchema, b.SchemaVersion)
	}

	snap := localstore.NewSnapshot()
	for c, docs := range b.Collections {
		if !slices.Contains(models.AllCollections, c) {
			return fmt.Errorf("import: %w: unknown collection %q", common.ErrMalformedRecord, c)
		}
		recs := make([]models.Record, 0, len(docs))
		for i, doc := range docs {
			rec, err := codec.Decode(c, doc)
			if err != nil {
				return fmt.Errorf("import %s[%d]: %w", c, i, err)
			}
			recs = append(recs, rec)
		}
		snap.Collections[c] = recs
	}
	for k, v := range b.Settings {
		snap.Settings[k] = v
	}

	if err := s.store.ReplaceAll(ctx, snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if s.mirror != nil {
		if err := s.mirror.Refresh(ctx); err != nil {
			s.logger.Warn(ctx, "mirror refresh failed", "err", err)
		}
	}
	s.logger.Info(ctx, "backup imported", "exported_at", b.ExportedAt)
	return nil
}

func MarshalBackup(b *models.Backup) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ParseBackup keeps numbers exact so millisecond timestamps survive.
func ParseBackup(data []byte) (*models.Backup, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var b models.Backup
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: backup: %v", common.ErrMalformedRecord, err)
	}
	return &b, nil
}

func checksumLine(data []byte, path string) []byte {
	return []byte(cryptox.ChecksumHex(data) + "  " + filepath.Base(path) + "\n")
}

// ExportFile writes the backup to path and its BLAKE2b-256 sum to
// path+ChecksumSuffix.
func (s *BackupService) ExportFile(ctx context.Context, path string) error {
	b, err := s.Export(ctx)
	if err != nil {
		return err
	}
	data, err := MarshalBackup(b)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := filex.WriteFileAtomic(path+ChecksumSuffix, checksumLine(data, path), 0o600); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	s.logger.Info(ctx, "backup exported", "path", path, "bytes", len(data))
	return nil
}

// ImportFile verifies path against its checksum file and imports it.
func (s *BackupService) ImportFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	sum, err := os.ReadFile(path + ChecksumSuffix)
	if err != nil {
		return fmt.Errorf("import: checksum: %w", err)
	}
	if err := verify(data, sum); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	b, err := ParseBackup(data)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return s.Import(ctx, b)
}

func verify(data, sum []byte) error {
	ok, err := cryptox.Verify(data, string(sum))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrChecksumMismatch, err)
	}
	if !ok {
		return common.ErrChecksumMismatch
	}
	return nil
}

// Upload stores a fresh export in the archive and returns its key. The
// checksum goes next to it under key+ChecksumSuffix.
func (s *BackupService) Upload(ctx context.Context) (string, error) {
	if s.archive == nil {
		return "", errors.New("upload: archive is not configured")
	}
	b, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	data, err := MarshalBackup(b)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	key := archive.Key(time.UnixMilli(b.ExportedAt))
	if err := s.archive.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if err := s.archive.Put(ctx, key+ChecksumSuffix, checksumLine(data, key)); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	s.logger.Info(ctx, "backup uploaded", "key", key, "bytes", len(data))
	return key, nil
}

// Restore downloads key, verifies it and imports it.
func (s *BackupService) Restore(ctx context.Context, key string) error {
	if s.archive == nil {
		return errors.New("restore: archive is not configured")
	}
	data, err := s.archive.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	sum, err := s.archive.Get(ctx, key+ChecksumSuffix)
	if err != nil {
		return fmt.Errorf("restore: checksum: %w", err)
	}
	if err := verify(data, sum); err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}

	b, err := ParseBackup(data)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return s.Import(ctx, b)
}
