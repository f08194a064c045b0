package services

import (
	"context"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/localstore"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
)

// LocalStore is the part of *localstore.Store the services depend on.
type LocalStore interface {
	GetAll(ctx context.Context, c models.Collection) ([]models.Record, error)
	Get(ctx context.Context, c models.Collection, id string) (models.Record, error)
	GetByCompositeKey(ctx context.Context, c models.Collection, key localstore.CompositeKey) ([]models.Record, error)
	Add(ctx context.Context, c models.Collection, rec models.Record) error
	Put(ctx context.Context, c models.Collection, rec models.Record) error
	Delete(ctx context.Context, c models.Collection, id string) error
	Count(ctx context.Context, c models.Collection) (int, error)
	PutMany(ctx context.Context, c models.Collection, recs []models.Record) error
	DeleteMany(ctx context.Context, c models.Collection, ids []string) error
	Snapshot(ctx context.Context) (*localstore.Snapshot, error)
	ReplaceAll(ctx context.Context, snap *localstore.Snapshot) error
}

var _ LocalStore = (*localstore.Store)(nil)

// Clock returns the current time in epoch milliseconds.
type Clock func() int64
