package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/remote/migrations"
	"github.com/kirkbardini/foodlogkm-sub000/internal/dbx"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// NotifyChannel is the LISTEN channel fed by the documents trigger. The
// payload is the collection name.
const NotifyChannel = "foodlog_documents"

// notifyConn is the part of *pgx.Conn used by subscriptions.
type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type connectFunc func(ctx context.Context, dsn string) (notifyConn, error)

func pgxConnect(ctx context.Context, dsn string) (notifyConn, error) {
	return pgx.Connect(ctx, dsn)
}

// PostgresStore keeps every collection in one JSONB documents table.
type PostgresStore struct {
	db      *sql.DB
	dsn     string
	logger  logging.Logger
	connect connectFunc
}

// NewPostgresStore wraps an already opened and migrated database. dsn is
// only used to open the dedicated LISTEN connection for subscriptions.
func NewPostgresStore(db *sql.DB, dsn string, logger logging.Logger) *PostgresStore {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &PostgresStore{db: db, dsn: dsn, logger: logger, connect: pgxConnect}
}

// OpenPostgres connects to dsn, checks the connection and applies migrations.
func OpenPostgres(ctx context.Context, dsn string, logger logging.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, mapError(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mapError(err)
	}
	if err := dbx.Migrate(ctx, db, migrations.Migrations, "pgx"); err != nil {
		_ = db.Close()
		return nil, mapError(fmt.Errorf("migrate remote: %w", err))
	}
	return NewPostgresStore(db, dsn, logger), nil
}

func (s *PostgresStore) Upsert(ctx context.Context, c models.Collection, id string, doc codec.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("remote error: encode %s[%s]: %w", c, id, err)
	}
	var updated int64
	if v, ok := toFloat(doc[codec.FieldUpdatedAt]); ok {
		updated = int64(v)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (collection, id) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		string(c), id, string(body), updated)
	return mapError(err)
}

func (s *PostgresStore) Delete(ctx context.Context, c models.Collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, string(c), id)
	return mapError(err)
}

func (s *PostgresStore) GetAll(ctx context.Context, c models.Collection, order *OrderBy) ([]codec.Document, error) {
	q := `SELECT id, body FROM documents WHERE collection = $1`
	args := []any{string(c)}
	q, args = orderClause(q, args, order)
	return s.query(ctx, c, q, args...)
}

func (s *PostgresStore) GetWhere(ctx context.Context, c models.Collection, field string, value any, order *OrderBy) ([]codec.Document, error) {
	filter, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, fmt.Errorf("remote error: encode filter: %w", err)
	}
	q := `SELECT id, body FROM documents WHERE collection = $1 AND body @> $2::jsonb`
	args := []any{string(c), string(filter)}
	q, args = orderClause(q, args, order)
	return s.query(ctx, c, q, args...)
}

func orderClause(q string, args []any, order *OrderBy) (string, []any) {
	if order == nil || order.Field == "" {
		return q + ` ORDER BY seq`, args
	}
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	args = append(args, order.Field)
	return fmt.Sprintf(`%s ORDER BY body -> $%d::text %s, seq`, q, len(args), dir), args
}

func (s *PostgresStore) query(ctx context.Context, c models.Collection, q string, args ...any) ([]codec.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []codec.Document
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, mapError(err)
		}
		doc, err := codec.ParseDocument(body)
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable remote document", "collection", string(c), "id", id, "err", err)
			continue
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// Subscribe opens a dedicated connection, LISTENs on NotifyChannel and
// refetches c whenever a notification for it arrives.
func (s *PostgresStore) Subscribe(ctx context.Context, c models.Collection, fn Listener) (Unsubscribe, error) {
	initial, err := s.GetAll(ctx, c, nil)
	if err != nil {
		return nil, err
	}

	conn, err := s.connect(ctx, s.dsn)
	if err != nil {
		return nil, mapError(err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		_ = conn.Close(context.Background())
		return nil, mapError(err)
	}

	fn(initial)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = conn.Close(closeCtx)
		}()
		s.listen(subCtx, conn, c, fn)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (s *PostgresStore) listen(ctx context.Context, conn notifyConn, c models.Collection, fn Listener) {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn(ctx, "subscription stopped", "collection", string(c), "err", err)
			}
			return
		}
		if n.Payload != string(c) {
			continue
		}
		docs, err := s.GetAll(ctx, c, nil)
		if err != nil {
			s.logger.Warn(ctx, "subscription refetch failed", "collection", string(c), "err", err)
			continue
		}
		fn(docs)
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return mapError(s.db.PingContext(ctx))
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
