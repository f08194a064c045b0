package services

import (
	"fmt"
	"strings"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
)

// CollectionReport counts what one sync pass did to a collection.
type CollectionReport struct {
	Collection models.Collection

	// pull
	Inserted  int
	Updated   int
	Unchanged int
	Skipped   int

	// push
	DedupRemoved  int
	Pushed        int
	RemoteDeleted int
}

type Report struct {
	Collections []*CollectionReport
}

// For returns the counters of c, or nil when c was not part of the pass.
func (r *Report) For(c models.Collection) *CollectionReport {
	if r == nil {
		return nil
	}
	for _, cr := range r.Collections {
		if cr.Collection == c {
			return cr
		}
	}
	return nil
}

func (r *Report) entry(c models.Collection) *CollectionReport {
	if cr := r.For(c); cr != nil {
		return cr
	}
	cr := &CollectionReport{Collection: c}
	r.Collections = append(r.Collections, cr)
	return cr
}

func (r *Report) String() string {
	if r == nil || len(r.Collections) == 0 {
		return "nothing to do"
	}
	var b strings.Builder
	for i, cr := range r.Collections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%-18s inserted=%d updated=%d unchanged=%d skipped=%d dedup_removed=%d pushed=%d remote_deleted=%d",
			cr.Collection, cr.Inserted, cr.Updated, cr.Unchanged, cr.Skipped, cr.DedupRemoved, cr.Pushed, cr.RemoteDeleted)
	}
	return b.String()
}

// CollectionStatus compares record counts only. Equal counts do not mean
// equal content.
type CollectionStatus struct {
	Collection models.Collection
	Local      int
	Remote     int
}

func (s CollectionStatus) Stale() bool { return s.Local != s.Remote }

type SyncStatus struct {
	Collections []CollectionStatus
	NeedsPull   bool
}

// StaleCollections lists the collections whose counts differ.
func (s SyncStatus) StaleCollections() []models.Collection {
	var out []models.Collection
	for _, c := range s.Collections {
		if c.Stale() {
			out = append(out, c.Collection)
		}
	}
	return out
}

type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Status describes the last sync pass.
type Status struct {
	State      State
	Err        error
	Report     *Report
	FinishedAt int64
}
