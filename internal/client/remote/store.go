package remote

import (
	"context"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
)

// OrderBy sorts a read by a top-level document field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Listener receives the full collection snapshot after every change.
type Listener func(docs []codec.Document)

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

type Store interface {
	// Upsert writes doc under id; the last write wins.
	Upsert(ctx context.Context, c models.Collection, id string, doc codec.Document) error

	// GetAll loads the whole collection. A nil order keeps insertion order.
	GetAll(ctx context.Context, c models.Collection, order *OrderBy) ([]codec.Document, error)

	// GetWhere loads the documents whose field equals value.
	GetWhere(ctx context.Context, c models.Collection, field string, value any, order *OrderBy) ([]codec.Document, error)

	Delete(ctx context.Context, c models.Collection, id string) error

	// Subscribe delivers an initial snapshot and then one per change. It
	// may return common.ErrSubscriptionsUnsupported.
	Subscribe(ctx context.Context, c models.Collection, fn Listener) (Unsubscribe, error)

	Ping(ctx context.Context) error
	Close() error
}
