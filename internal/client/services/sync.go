package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/codec"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/remote"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"github.com/kirkbardini/foodlogkm-sub000/internal/timex"
)

// PullOptions selects what LoadFromRemote reads. No collections means all of
// them. A non-empty UserID restricts entries and calorie expenditure to that
// user; foods and users are always read whole.
type PullOptions struct {
	Collections []models.Collection
	UserID      string
}

// PushOptions mirrors PullOptions for SaveToRemote.
type PushOptions struct {
	Collections []models.Collection
	UserID      string
}

type SyncService struct {
	local    LocalStore
	remote   remote.Store
	dedup    Deduplicator
	resolver Resolver
	mirror   *Mirror
	logger   logging.Logger
	now      Clock

	inFlight atomic.Bool
	pushing  atomic.Bool

	// applyMu serialises local merges from passes and subscriptions.
	applyMu sync.Mutex

	statusMu sync.Mutex
	status   Status
}

// NewSyncService wires the engine. dedup, resolver, logger and now fall back
// to the defaults when nil. mirror may be nil.
func NewSyncService(local LocalStore, rs remote.Store, dedup Deduplicator, resolver Resolver, mirror *Mirror, logger logging.Logger, now Clock) *SyncService {
	if logger == nil {
		logger = logging.Nop{}
	}
	if dedup == nil {
		dedup = NewDedupService(local, logger)
	}
	if resolver == nil {
		resolver = LWWResolver{}
	}
	if now == nil {
		now = timex.NowMillis
	}
	return &SyncService{
		local:    local,
		remote:   rs,
		dedup:    dedup,
		resolver: resolver,
		mirror:   mirror,
		logger:   logger.With("module", "sync"),
		now:      now,
		status:   Status{State: StateIdle},
	}
}

func (s *SyncService) Status() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

func (s *SyncService) setStatus(st Status) {
	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()
}

// run executes one guarded pass. A second pass started while one is running
// fails with common.ErrSyncInProgress.
func (s *SyncService) run(ctx context.Context, op string, fn func(rep *Report) error) (*Report, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	prev := s.Status()
	s.setStatus(Status{State: StateSyncing, Report: prev.Report, FinishedAt: prev.FinishedAt})

	rep := &Report{}
	err := fn(rep)

	if s.mirror != nil {
		if rerr := s.mirror.Refresh(ctx); rerr != nil {
			s.logger.Warn(ctx, "mirror refresh failed", "op", op, "err", rerr)
		}
	}

	if err != nil {
		s.logger.Error(ctx, "sync failed", "op", op, "err", err)
		s.setStatus(Status{State: StateError, Err: err, Report: rep, FinishedAt: s.now()})
		return rep, err
	}
	s.logger.Info(ctx, "sync finished", "op", op, "collections", len(rep.Collections))
	s.setStatus(Status{State: StateSuccess, Report: rep, FinishedAt: s.now()})
	return rep, nil
}

// LoadFromRemote merges the selected remote collections into LocalStore.
// Each collection is applied in one transaction, so a failure leaves earlier
// collections merged and the failing one untouched.
func (s *SyncService) LoadFromRemote(ctx context.Context, opts PullOptions) (*Report, error) {
	return s.run(ctx, "pull", func(rep *Report) error {
		return s.pull(ctx, opts, rep)
	})
}

// SaveToRemote dedups foods and entries, deletes remote ids that are gone
// locally and overwrites the remote with every selected local record.
// Remote writes are not transactional; repeating a failed push converges.
func (s *SyncService) SaveToRemote(ctx context.Context, opts PushOptions) (*Report, error) {
	return s.run(ctx, "push", func(rep *Report) error {
		return s.push(ctx, opts, rep)
	})
}

// SyncNow pulls everything in scope of userID and then pushes it.
func (s *SyncService) SyncNow(ctx context.Context, userID string) (*Report, error) {
	return s.run(ctx, "sync", func(rep *Report) error {
		if err := s.pull(ctx, PullOptions{UserID: userID}, rep); err != nil {
			return err
		}
		return s.push(ctx, PushOptions{UserID: userID}, rep)
	})
}

func (s *SyncService) pull(ctx context.Context, opts PullOptions, rep *Report) error {
	cols, err := selectCollections(opts.Collections)
	if err != nil {
		return err
	}
	for _, c := range cols {
		docs, err := s.fetch(ctx, c, opts.UserID)
		if err != nil {
			return fmt.Errorf("pull %s: %w", c, err)
		}
		if err := s.merge(ctx, c, docs, rep.entry(c)); err != nil {
			return fmt.Errorf("pull %s: %w", c, err)
		}
	}
	return nil
}

func (s *SyncService) fetch(ctx context.Context, c models.Collection, userID string) ([]codec.Document, error) {
	if userID != "" && c.UserScoped() {
		return s.remote.GetWhere(ctx, c, codec.FieldUserID, userID, nil)
	}
	return s.remote.GetAll(ctx, c, nil)
}

// merge decodes docs and applies the winners of c in one batch.
func (s *SyncService) merge(ctx context.Context, c models.Collection, docs []codec.Document, cr *CollectionReport) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	existing, err := s.local.GetAll(ctx, c)
	if err != nil {
		return err
	}
	byID := make(map[string]models.Record, len(existing))
	for _, r := range existing {
		byID[r.RecordID()] = r
	}

	var batch []models.Record
	for _, doc := range docs {
		rec, err := codec.Decode(c, doc)
		if err != nil {
			id, _ := codec.DocumentID(doc)
			s.logger.Warn(ctx, "skipping malformed remote document", "collection", string(c), "id", id, "err", err)
			cr.Skipped++
			continue
		}

		local, ok := byID[rec.RecordID()]
		if !ok {
			cr.Inserted++
			batch = append(batch, rec)
			byID[rec.RecordID()] = rec
			continue
		}

		winner := s.resolver.Resolve(local, rec)
		if winner == local || reflect.DeepEqual(winner, local) {
			cr.Unchanged++
			continue
		}
		cr.Updated++
		batch = append(batch, winner)
		byID[rec.RecordID()] = winner
	}

	if len(batch) == 0 {
		return nil
	}
	return s.local.PutMany(ctx, c, batch)
}

func (s *SyncService) push(ctx context.Context, opts PushOptions, rep *Report) error {
	cols, err := selectCollections(opts.Collections)
	if err != nil {
		return err
	}
	s.pushing.Store(true)
	defer s.pushing.Store(false)

	for _, c := range cols {
		if c != models.CollectionFoods && c != models.CollectionEntries {
			continue
		}
		res, err := s.dedup.DedupCollection(ctx, c, IdentityKeyFor(c))
		if err != nil {
			return fmt.Errorf("push %s: %w", c, err)
		}
		rep.entry(c).DedupRemoved += res.Removed
	}

	for _, c := range cols {
		if err := s.pushCollection(ctx, c, opts.UserID, rep.entry(c)); err != nil {
			return fmt.Errorf("push %s: %w", c, err)
		}
	}
	return nil
}

func (s *SyncService) pushCollection(ctx context.Context, c models.Collection, userID string, cr *CollectionReport) error {
	recs, err := s.local.GetAll(ctx, c)
	if err != nil {
		return err
	}
	localIDs := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if inScope(c, r, userID) {
			localIDs[r.RecordID()] = struct{}{}
		}
	}

	// Deletes go first so that no remote snapshot taken during the upserts
	// still carries records removed locally.
	remoteDocs, err := s.fetch(ctx, c, userID)
	if err != nil {
		return err
	}
	for _, doc := range remoteDocs {
		id, ok := codec.DocumentID(doc)
		if !ok {
			continue
		}
		if _, keep := localIDs[id]; keep {
			continue
		}
		if err := s.remote.Delete(ctx, c, id); err != nil {
			return err
		}
		cr.RemoteDeleted++
	}

	for _, r := range recs {
		if !inScope(c, r, userID) {
			continue
		}
		doc, err := codec.Encode(r)
		if err != nil {
			return err
		}
		if err := s.remote.Upsert(ctx, c, r.RecordID(), doc); err != nil {
			return err
		}
		cr.Pushed++
	}
	return nil
}

// CheckSyncStatus compares local and remote counts within the scope a pull
// of userID covers. The answer is a hint: collections with equal counts may
// still differ.
func (s *SyncService) CheckSyncStatus(ctx context.Context, userID string) (SyncStatus, error) {
	var st SyncStatus
	for _, c := range models.AllCollections {
		n, err := s.localCount(ctx, c, userID)
		if err != nil {
			return SyncStatus{}, fmt.Errorf("status %s: %w", c, err)
		}
		docs, err := s.fetch(ctx, c, userID)
		if err != nil {
			return SyncStatus{}, fmt.Errorf("status %s: %w", c, err)
		}
		cs := CollectionStatus{Collection: c, Local: n, Remote: len(docs)}
		st.Collections = append(st.Collections, cs)
		if cs.Stale() {
			st.NeedsPull = true
		}
	}
	return st, nil
}

func (s *SyncService) localCount(ctx context.Context, c models.Collection, userID string) (int, error) {
	if userID == "" || !c.UserScoped() {
		return s.local.Count(ctx, c)
	}
	recs, err := s.local.GetAll(ctx, c)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		if inScope(c, r, userID) {
			n++
		}
	}
	return n, nil
}

// Subscribe merges every remote snapshot into LocalStore the same way a pull
// does. Updates only flow remote to local; nothing here pushes.
func (s *SyncService) Subscribe(ctx context.Context, userID string) (remote.Unsubscribe, error) {
	var unsubs []remote.Unsubscribe
	stopAll := func() {
		for _, u := range unsubs {
			u()
		}
	}

	for _, c := range models.AllCollections {
		u, err := s.remote.Subscribe(ctx, c, func(docs []codec.Document) {
			s.applySnapshot(ctx, c, userID, docs)
		})
		if err != nil {
			stopAll()
			if errors.Is(err, common.ErrSubscriptionsUnsupported) {
				return nil, err
			}
			return nil, fmt.Errorf("subscribe %s: %w", c, err)
		}
		unsubs = append(unsubs, u)
	}

	s.logger.Info(ctx, "subscriptions started", "user", userID)
	var once sync.Once
	return func() { once.Do(stopAll) }, nil
}

// applySnapshot ignores the echoes of our own push; the next change after the
// push delivers a fresh snapshot.
func (s *SyncService) applySnapshot(ctx context.Context, c models.Collection, userID string, docs []codec.Document) {
	if s.pushing.Load() {
		return
	}
	if userID != "" && c.UserScoped() {
		docs = slices.DeleteFunc(slices.Clone(docs), func(d codec.Document) bool {
			uid, _ := d[codec.FieldUserID].(string)
			return uid != userID
		})
	}

	cr := &CollectionReport{Collection: c}
	if err := s.merge(ctx, c, docs, cr); err != nil {
		s.logger.Warn(ctx, "subscription merge failed", "collection", string(c), "err", err)
		return
	}
	if cr.Inserted+cr.Updated == 0 {
		return
	}
	s.logger.Debug(ctx, "subscription merged", "collection", string(c), "inserted", cr.Inserted, "updated", cr.Updated)
	if s.mirror != nil {
		if err := s.mirror.Refresh(ctx); err != nil {
			s.logger.Warn(ctx, "mirror refresh failed", "err", err)
		}
	}
}

func selectCollections(cols []models.Collection) ([]models.Collection, error) {
	if len(cols) == 0 {
		return models.AllCollections, nil
	}
	for _, c := range cols {
		if !slices.Contains(models.AllCollections, c) {
			return nil, fmt.Errorf("unknown collection %q", c)
		}
	}
	out := make([]models.Collection, 0, len(cols))
	for _, c := range models.AllCollections {
		if slices.Contains(cols, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func recordUserID(r models.Record) string {
	switch v := r.(type) {
	case *models.Entry:
		return v.UserID
	case *models.CalorieExpenditure:
		return v.UserID
	}
	return ""
}

func inScope(c models.Collection, r models.Record, userID string) bool {
	return userID == "" || !c.UserScoped() || recordUserID(r) == userID
}
