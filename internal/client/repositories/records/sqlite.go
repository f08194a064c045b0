package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db         dbx.DBTX
	collection models.Collection
	table      string
}

// NewSQLiteRepository binds a repository for collection c to db.
func NewSQLiteRepository(db dbx.DBTX, c models.Collection) (*SQLiteRepository, error) {
	table, err := TableName(c)
	if err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: db, collection: c, table: table}, nil
}

// TableName maps a collection to its local table.
func TableName(c models.Collection) (string, error) {
	switch c {
	case models.CollectionFoods:
		return "foods", nil
	case models.CollectionEntries:
		return "entries", nil
	case models.CollectionUsers:
		return "users", nil
	case models.CollectionCalorieExpenditure:
		return "calorie_expenditure", nil
	}
	return "", fmt.Errorf("unknown collection %q", c)
}

// indexColumns extracts the values of the user_id and date_iso columns.
func indexColumns(r models.Record) (userID, dateISO string) {
	switch v := r.(type) {
	case *models.Entry:
		return v.UserID, v.DateISO
	case *models.CalorieExpenditure:
		return v.UserID, v.DateISO
	}
	return "", ""
}

func (r *SQLiteRepository) checkCollection(rec models.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", common.ErrMalformedRecord)
	}
	if rec.Collection() != r.collection {
		return fmt.Errorf("%w: %s record written to %s", common.ErrMalformedRecord, rec.Collection(), r.collection)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec models.Record) error {
	if err := r.checkCollection(rec); err != nil {
		return err
	}
	body, err := codec.Marshal(rec)
	if err != nil {
		return err
	}
	userID, dateISO := indexColumns(rec)

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, date_iso, updated_at, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`, r.table)
	res, err := r.db.ExecContext(ctx, query, rec.RecordID(), userID, dateISO, rec.LastUpdated(), string(body))
	if err != nil {
		return fmt.Errorf("failed to insert %s[%s]: %w", r.collection, rec.RecordID(), err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s[%s]: %w", r.collection, rec.RecordID(), common.ErrDuplicateKey)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rec models.Record) error {
	if err := r.checkCollection(rec); err != nil {
		return err
	}
	body, err := codec.Marshal(rec)
	if err != nil {
		return err
	}
	userID, dateISO := indexColumns(rec)

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, date_iso, updated_at, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			date_iso = excluded.date_iso,
			updated_at = excluded.updated_at,
			body = excluded.body`, r.table)
	if _, err := r.db.ExecContext(ctx, query, rec.RecordID(), userID, dateISO, rec.LastUpdated(), string(body)); err != nil {
		return fmt.Errorf("failed to upsert %s[%s]: %w", r.collection, rec.RecordID(), err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Record, error) {
	query := fmt.Sprintf(`SELECT body FROM %s ORDER BY seq`, r.table)
	return r.query(ctx, query)
}

func (r *SQLiteRepository) GetByCompositeKey(ctx context.Context, userID, dateISO string) ([]models.Record, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE user_id = ? AND date_iso = ? ORDER BY seq`, r.table)
	return r.query(ctx, query, userID, dateISO)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (models.Record, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE id = ?`, r.table)

	var body string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s[%s]: %w", r.collection, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", r.collection, id, err)
	}
	return codec.Unmarshal(r.collection, []byte(body))
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.table)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", r.collection, id, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.collection, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s`, r.table)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear %s: %w", r.collection, err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", r.collection, err)
	}
	defer rows.Close()

	result := make([]models.Record, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.collection, err)
		}
		rec, err := codec.Unmarshal(r.collection, []byte(body))
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.collection, err)
	}
	return result, nil
}
