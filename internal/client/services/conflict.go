package services

import "github.com/kirkbardini/foodlogkm-sub000/internal/client/models"

type Resolver interface {
	Resolve(local, remote models.Record) models.Record
}

// LWWResolver is last-writer-wins on updatedAt.
type LWWResolver struct{}

func (LWWResolver) Resolve(local, remote models.Record) models.Record {
	return Resolve(local, remote)
}

// Resolve returns the record with the larger updatedAt. Equal timestamps, or
// a missing timestamp on either side, go to remote.
func Resolve(local, remote models.Record) models.Record {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}
	l, r := local.LastUpdated(), remote.LastUpdated()
	if l > 0 && r > 0 && l > r {
		return local
	}
	return remote
}
