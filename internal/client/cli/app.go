package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/archive"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/config"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/localstore"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/remote"
	"github.com/kirkbardini/foodlogkm-sub000/internal/client/services"
	"github.com/kirkbardini/foodlogkm-sub000/internal/common"
	"github.com/kirkbardini/foodlogkm-sub000/internal/logging"
	"github.com/kirkbardini/foodlogkm-sub000/internal/timex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

// openRemote and newArchive are seams for tests.
var (
	openRemote = remote.Open
	newArchive = func(ctx context.Context, cfg archive.Config) (services.Archive, error) {
		return archive.New(ctx, cfg)
	}
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	local   *localstore.Store
	mirror  *services.Mirror
	tracker *services.Tracker
	dedup   services.Deduplicator
	backup  *services.BackupService
	now     services.Clock

	mu          sync.RWMutex
	remote      remote.Store
	syncer      *services.SyncService
	unsubscribe remote.Unsubscribe
	mode        Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local database and tries the remote once. An unreachable
// remote is not fatal: the app starts offline and the watcher keeps trying.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop{}
	}

	local := localstore.New(c.LocalDBPath)
	if err := local.Init(ctx); err != nil {
		logger.Error(ctx, "error initializing database", "path", c.LocalDBPath, "err", err)
		return nil, err
	}

	mirror := services.NewMirror(local)
	if err := mirror.Refresh(ctx); err != nil {
		_ = local.Close()
		return nil, err
	}

	var arch services.Archive
	if c.S3Bucket != "" {
		a, err := newArchive(ctx, archive.Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
		if err != nil {
			_ = local.Close()
			return nil, fmt.Errorf("backup archive: %w", err)
		}
		arch = a
	}

	now := services.Clock(timex.NowMillis)
	app := &App{
		config:  c,
		logger:  logger,
		local:   local,
		mirror:  mirror,
		tracker: services.NewTracker(local, mirror, c.Accounts, logger, now),
		dedup:   services.NewDedupService(local, logger),
		backup:  services.NewBackupService(local, mirror, arch, logger, now),
		now:     now,
		mode:    ModeOffline,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	if err := app.connect(ctx); err != nil {
		logger.Warn(ctx, "remote unavailable, starting offline", "err", err)
	}
	return app, nil
}

// connect opens the remote store and builds the sync service on top of it.
func (a *App) connect(ctx context.Context) error {
	rs, err := openRemote(ctx, a.config.RemoteDSN, a.logger)
	if err != nil {
		return err
	}
	s := services.NewSyncService(a.local, rs, a.dedup, services.LWWResolver{}, a.mirror, a.logger, a.now)

	a.mu.Lock()
	a.remote = rs
	a.syncer = s
	a.mu.Unlock()
	a.setMode(ModeOnline)

	if a.config.EnableSubscriptions {
		a.subscribe(ctx, s)
	}
	return nil
}

func (a *App) subscribe(ctx context.Context, s *services.SyncService) {
	unsub, err := s.Subscribe(ctx, a.config.UserID)
	if err != nil {
		if errors.Is(err, common.ErrSubscriptionsUnsupported) {
			a.logger.Info(ctx, "remote does not support subscriptions")
			return
		}
		a.logger.Warn(ctx, "subscribe failed", "err", err)
		return
	}
	a.mu.Lock()
	a.unsubscribe = unsub
	a.mu.Unlock()
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.logger.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

// syncService returns the sync service, or ErrRemoteUnavailable when the
// remote was never reached.
func (a *App) syncService() (*services.SyncService, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.syncer == nil {
		return nil, common.ErrRemoteUnavailable
	}
	return a.syncer, nil
}

func (a *App) remoteStore() remote.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.remote
}

// Run starts the background loops and blocks in the REPL until the user
// exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	go a.StartAutoSync(ctx, a.config.SyncInterval)

	printlnFn("Welcome to FoodLog (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) Close() error {
	a.mu.Lock()
	unsub, rs := a.unsubscribe, a.remote
	a.unsubscribe = nil
	a.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	var errs []error
	if rs != nil {
		errs = append(errs, rs.Close())
	}
	errs = append(errs, a.local.Close())
	return errors.Join(errs...)
}

func (a *App) getStatus() string {
	return fmt.Sprintf("(%s %s)", a.config.UserID, a.Mode())
}

// StartOnlineStatusWatcher pings the remote every interval and flips the mode.
// While the remote has never been reached it retries the connection instead.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	rs := a.remoteStore()
	if rs == nil {
		if err := a.connect(ctx); err != nil {
			a.logger.Debug(ctx, "remote still unavailable", "err", err)
		}
		return
	}

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := rs.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}

// StartAutoSync runs a sync pass every interval while the app is online.
func (a *App) StartAutoSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.Mode() != ModeOnline {
				continue
			}
			if err := a.autoSync(ctx); err != nil {
				if errors.Is(err, common.ErrSyncInProgress) {
					a.logger.Debug(ctx, "auto-sync skipped, sync in progress")
					continue
				}
				a.logger.Warn(ctx, "auto-sync failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// autoSync always pulls everything in scope before pushing, since a push
// deletes the remote ids missing locally.
func (a *App) autoSync(ctx context.Context) error {
	s, err := a.syncService()
	if err != nil {
		return err
	}

	rep, err := s.SyncNow(ctx, a.config.UserID)
	if err != nil {
		return err
	}
	a.logger.Debug(ctx, "auto-sync finished", "report", rep.String())
	return nil
}
