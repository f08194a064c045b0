package dbx

import (
	"context"
	"database/sql"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

// goose keeps its base FS and dialect in package globals, so every caller in
// the process goes through one lock.
var migrateMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func init() {
	goose.SetLogger(goose.NopLogger())
}

// Migrate applies the embedded goose migrations in fsys (at its root) using
// dialect ("sqlite3", "pgx"). Already applied versions are skipped.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dialect string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
