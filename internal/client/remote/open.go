package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
)

// Open picks a Store from the dsn scheme: memory:// for a process-local
// store, postgres:// or postgresql:// for Postgres.
func Open(ctx context.Context, dsn string, logger logging.Logger) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "memory://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := OpenPostgres(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported remote dsn %q", dsn)
}
