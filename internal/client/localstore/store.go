package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/migrations"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/repositories/records"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/repositories/settings"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/dbx"

	_ "modernc.org/sqlite"
)

// CompositeKey addresses the per-user, per-day partitions of entries and
// calorie expenditure.
type CompositeKey struct {
	UserID  string
	DateISO string
}

type Store struct {
	dsn string

	initMu sync.Mutex
	ready  atomic.Bool
	db     *sql.DB
}

func New(dsn string) *Store {
	return &Store{dsn: dsn}
}

// Init opens the database and applies migrations. Calling it again after a
// successful Init is a no-op.
func (s *Store) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.ready.Load() {
		return nil
	}

	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", common.ErrStorageUnavailable, s.dsn, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: ping %s: %v", common.ErrStorageUnavailable, s.dsn, err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: pragma: %v", common.ErrStorageUnavailable, err)
	}
	if err := dbx.Migrate(ctx, db, migrations.Migrations, "sqlite3"); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: migrate: %v", common.ErrStorageUnavailable, err)
	}

	s.db = db
	s.ready.Store(true)
	return nil
}

func (s *Store) Close() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if !s.ready.Load() {
		return nil
	}
	s.ready.Store(false)
	return s.db.Close()
}

func (s *Store) handle() (*sql.DB, error) {
	if !s.ready.Load() {
		return nil, common.ErrNotInitialized
	}
	return s.db, nil
}

func (s *Store) repo(c models.Collection) (*records.SQLiteRepository, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return records.NewSQLiteRepository(db, c)
}

func (s *Store) GetAll(ctx context.Context, c models.Collection) ([]models.Record, error) {
	r, err := s.repo(c)
	if err != nil {
		return nil, err
	}
	return r.GetAll(ctx)
}

// Get returns common.ErrNotFound when id is absent.
func (s *Store) Get(ctx context.Context, c models.Collection, id string) (models.Record, error) {
	r, err := s.repo(c)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (s *Store) GetByCompositeKey(ctx context.Context, c models.Collection, key CompositeKey) ([]models.Record, error) {
	if !c.UserScoped() {
		return nil, fmt.Errorf("collection %s has no composite key", c)
	}
	r, err := s.repo(c)
	if err != nil {
		return nil, err
	}
	return r.GetByCompositeKey(ctx, key.UserID, key.DateISO)
}

// Add inserts rec and fails with common.ErrDuplicateKey if its id exists.
func (s *Store) Add(ctx context.Context, c models.Collection, rec models.Record) error {
	r, err := s.repo(c)
	if err != nil {
		return err
	}
	return r.Insert(ctx, rec)
}

// Put inserts or replaces rec by id.
func (s *Store) Put(ctx context.Context, c models.Collection, rec models.Record) error {
	r, err := s.repo(c)
	if err != nil {
		return err
	}
	return r.Upsert(ctx, rec)
}

// Delete removes id from c. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, c models.Collection, id string) error {
	r, err := s.repo(c)
	if err != nil {
		return err
	}
	return r.DeleteByID(ctx, id)
}

func (s *Store) Count(ctx context.Context, c models.Collection) (int, error) {
	r, err := s.repo(c)
	if err != nil {
		return 0, err
	}
	return r.Count(ctx)
}

// PutMany upserts recs in one transaction: either all are written or none.
func (s *Store) PutMany(ctx context.Context, c models.Collection, recs []models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		r, err := records.NewSQLiteRepository(tx, c)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := r.Upsert(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMany removes ids from c in one transaction.
func (s *Store) DeleteMany(ctx context.Context, c models.Collection, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		r, err := records.NewSQLiteRepository(tx, c)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := r.DeleteByID(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, db, nil, fn)
}

func (s *Store) settings() (*settings.SQLiteRepository, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return settings.NewSQLiteRepository(db), nil
}

// GetSetting returns (nil, nil) when key is absent.
func (s *Store) GetSetting(ctx context.Context, key string) ([]byte, error) {
	r, err := s.settings()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}

func (s *Store) SetSetting(ctx context.Context, key string, value []byte) error {
	r, err := s.settings()
	if err != nil {
		return err
	}
	return r.Set(ctx, key, value)
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	r, err := s.settings()
	if err != nil {
		return err
	}
	return r.Delete(ctx, key)
}

func (s *Store) ListSettings(ctx context.Context) (map[string][]byte, error) {
	r, err := s.settings()
	if err != nil {
		return nil, err
	}
	return r.List(ctx)
}
