package remote

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db, "postgres://test", logging.Nop{}), mock, db
}

const (
	upsertQ = `(?s)^\s*INSERT\s+INTO\s+documents\s*\(collection,\s*id,\s*body,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3::jsonb,\s*\$4\)\s*ON\s+CONFLICT\s*\(collection,\s*id\)\s*DO\s+UPDATE.*$`
	selectQ = `(?s)^SELECT\s+id,\s*body\s+FROM\s+documents\s+WHERE\s+collection\s*=\s*\$1`
)

func TestPostgresUpsert_Success(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	doc := codec.Document{"id": "f1", "name": "Oats", "updatedAt": int64(42)}
	mock.ExpectExec(upsertQ).
		WithArgs("foods", "f1", `{"id":"f1","name":"Oats","updatedAt":42}`, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Upsert(context.Background(), models.CollectionFoods, "f1", doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsert_ConnectionLost(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	mock.ExpectExec(upsertQ).WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})

	err := s.Upsert(context.Background(), models.CollectionFoods, "f1", codec.Document{"id": "f1"})
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
}

func TestPostgresUpsert_LogicalError(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	mock.ExpectExec(upsertQ).WillReturnError(&pgconn.PgError{Code: "23514", Message: "check violation"})

	err := s.Upsert(context.Background(), models.CollectionFoods, "f1", codec.Document{"id": "f1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "remote error")
}

func TestPostgresGetAll_InsertionOrderAndSkipsBadRows(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "body"}).
		AddRow("f1", []byte(`{"id":"f1","kcal":100}`)).
		AddRow("bad", []byte(`{not json`)).
		AddRow("f2", []byte(`{"id":"f2","kcal":200}`))
	mock.ExpectQuery(selectQ + `\s+ORDER\s+BY\s+seq\s*$`).
		WithArgs("foods").
		WillReturnRows(rows)

	docs, err := s.GetAll(context.Background(), models.CollectionFoods, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "f1", docs[0]["id"])
	assert.Equal(t, "f2", docs[1]["id"])
}

func TestPostgresGetAll_OrderBy(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	mock.ExpectQuery(selectQ+`\s+ORDER\s+BY\s+body\s*->\s*\$2::text\s+DESC,\s*seq\s*$`).
		WithArgs("entries", "updatedAt").
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}))

	docs, err := s.GetAll(context.Background(), models.CollectionEntries, &OrderBy{Field: "updatedAt", Desc: true})
	require.NoError(t, err)
	assert.Empty(t, docs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetWhere_Containment(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	mock.ExpectQuery(selectQ+`\s+AND\s+body\s*@>\s*\$2::jsonb\s+ORDER\s+BY\s+seq\s*$`).
		WithArgs("entries", `{"userId":"kirk"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).AddRow("e1", []byte(`{"id":"e1","userId":"kirk"}`)))

	docs, err := s.GetWhere(context.Background(), models.CollectionEntries, "userId", "kirk", nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kirk", docs[0]["userId"])
}

func TestPostgresDelete(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+documents\s+WHERE\s+collection\s*=\s*\$1\s+AND\s+id\s*=\s*\$2\s*$`).
		WithArgs("foods", "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), models.CollectionFoods, "f1"))
}

func TestPostgresQuery_DBDown(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)

	mock.ExpectQuery(selectQ).WillReturnError(context.DeadlineExceeded)

	_, err := s.GetAll(context.Background(), models.CollectionFoods, nil)
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
}

type fakeNotifyConn struct {
	notes  chan *pgconn.Notification
	execs  []string
	closed chan struct{}
}

func newFakeNotifyConn() *fakeNotifyConn {
	return &fakeNotifyConn{notes: make(chan *pgconn.Notification, 4), closed: make(chan struct{})}
}

func (f *fakeNotifyConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeNotifyConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case n := <-f.notes:
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeNotifyConn) Close(context.Context) error {
	close(f.closed)
	return nil
}

func TestPostgresSubscribe_InitialSnapshotThenRefetchOnNotify(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)
	conn := newFakeNotifyConn()
	s.connect = func(context.Context, string) (notifyConn, error) { return conn, nil }

	mock.ExpectQuery(selectQ).WithArgs("foods").
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).AddRow("f1", []byte(`{"id":"f1"}`)))
	mock.ExpectQuery(selectQ).WithArgs("foods").
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).
			AddRow("f1", []byte(`{"id":"f1"}`)).
			AddRow("f2", []byte(`{"id":"f2"}`)))

	got := make(chan int, 4)
	unsub, err := s.Subscribe(context.Background(), models.CollectionFoods, func(docs []codec.Document) {
		got <- len(docs)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"LISTEN " + NotifyChannel}, conn.execs)
	assert.Equal(t, 1, <-got)

	conn.notes <- &pgconn.Notification{Channel: NotifyChannel, Payload: "entries"}
	conn.notes <- &pgconn.Notification{Channel: NotifyChannel, Payload: "foods"}

	select {
	case n := <-got:
		assert.Equal(t, 2, n)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after notification")
	}

	unsub()
	unsub()
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("listen connection not closed")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscribe_ConnectFails(t *testing.T) {
	s, mock, _ := newStoreWithMock(t)
	s.connect = func(context.Context, string) (notifyConn, error) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	mock.ExpectQuery(selectQ).WillReturnRows(sqlmock.NewRows([]string{"id", "body"}))

	_, err := s.Subscribe(context.Background(), models.CollectionFoods, func([]codec.Document) {})
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
}

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://x", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrRemoteUnavailable))
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), "memory://", nil)
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}
