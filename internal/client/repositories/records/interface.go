package records

import (
	"context"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
)

// Repository describes the operations on a single collection table.
type Repository interface {
	// GetAll returns every record in insertion order.
	GetAll(ctx context.Context) ([]models.Record, error)

	// GetByID returns common.ErrNotFound when no row has the id.
	GetByID(ctx context.Context, id string) (models.Record, error)

	// GetByCompositeKey returns the records for a (userId, dateISO) pair.
	GetByCompositeKey(ctx context.Context, userID, dateISO string) ([]models.Record, error)

	// Insert fails with common.ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, r models.Record) error

	// Upsert inserts or replaces by id, keeping the original position.
	Upsert(ctx context.Context, r models.Record) error

	// DeleteByID removes the row; a missing id is not an error.
	DeleteByID(ctx context.Context, id string) error

	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
