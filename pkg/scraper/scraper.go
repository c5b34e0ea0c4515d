package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"igstories/internal/downloader"
	"igstories/pkg/instagram"
	"igstories/pkg/logger"
	"igstories/pkg/ratelimit"
)

// DefaultConcurrency bounds in-flight reel fetches and downloads
const DefaultConcurrency = 4

// Options configures a Scraper
type Options struct {
	// Root is the directory that receives downloads/
	Root string
	// Concurrency bounds download workers and per-user reel fetches
	Concurrency int
	// Snapshots, when set, receives every raw tray and reel response
	Snapshots SnapshotStore
	// Archive bundles snapshots at the end of Run
	Archive bool
	// Limiter paces download starts on top of the client's own limiter
	Limiter  ratelimit.Limiter
	Observer Observer
	Logger   logger.Logger
}

// Scraper orchestrates story downloads for one account
type Scraper struct {
	client      InstagramClient
	downloader  *downloader.Downloader
	snapshots   SnapshotStore
	limiter     ratelimit.Limiter
	observer    Observer
	root        string
	concurrency int
	archive     bool
	logger      logger.Logger
	now         func() time.Time
}

// New creates a Scraper fetching through client
func New(client InstagramClient, opts Options) *Scraper {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	root := opts.Root
	if root == "" {
		root = "."
	}

	return &Scraper{
		client:      client,
		downloader:  downloader.New(client, log),
		snapshots:   opts.Snapshots,
		limiter:     opts.Limiter,
		observer:    opts.Observer,
		root:        root,
		concurrency: concurrency,
		archive:     opts.Archive,
		logger:      log,
		now:         time.Now,
	}
}

// SetObserver replaces the observer used by later runs
func (s *Scraper) SetObserver(o Observer) {
	s.observer = o
}

// Run performs a full pass: the tray, its livestreams, then every user's
// reel. Only a failed tray fetch or cancellation fails the run; every
// other problem is counted in the summary.
func (s *Scraper) Run(ctx context.Context) (Summary, error) {
	s.logger.Info("fetching story tray")

	session := s.Begin(ctx)

	tray, raw, err := s.client.FetchReelsTray(ctx)
	if err != nil {
		summary := session.Wait()
		s.logger.WithError(err).Error("failed to fetch story tray")
		return summary, fmt.Errorf("failed to fetch story tray: %w", err)
	}
	session.saveSnapshot("tray", raw)

	session.ProcessTray(tray)
	session.ProcessLive(tray)

	userIDs := tray.UserIDs()
	s.logger.InfoWithFields("fetching user reels", map[string]interface{}{
		"users": len(userIDs),
	})

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		userID := userID
		g.Go(func() error {
			session.fetchUser(userID)
			return nil
		})
	}
	_ = g.Wait()

	summary := session.Wait()

	if ctx.Err() != nil {
		s.logger.WarnWithFields("run cancelled", map[string]interface{}{
			"downloaded": summary.Downloaded,
		})
		return summary, ctx.Err()
	}

	if s.archive && s.snapshots != nil {
		path, n, err := s.snapshots.Archive()
		if err != nil {
			s.logger.WithError(err).Warn("failed to archive snapshots")
			summary.recordFailure(fmt.Sprintf("archive: %v", err))
		} else {
			summary.Archive = path
			s.logger.DebugWithFields("snapshot archive written", map[string]interface{}{
				"path":  path,
				"files": n,
			})
		}
	}

	s.logger.InfoWithFields("run completed", map[string]interface{}{
		"downloaded":      summary.Downloaded,
		"already_present": summary.AlreadyPresent,
		"failed":          summary.Failed,
		"skipped":         summary.Skipped(),
		"bytes":           summary.Bytes,
		"duration":        summary.Duration(),
	})
	return summary, nil
}

// Session is one batch of work sharing a download pool. Its Process
// methods may be called from several goroutines; Wait must be called once
// when no more documents will be processed.
type Session struct {
	scraper *Scraper
	ctx     context.Context
	pool    *downloader.WorkerPool
	done    chan struct{}

	mu      sync.Mutex
	summary Summary
}

// Begin starts a session whose downloads stop when ctx is cancelled
func (s *Scraper) Begin(ctx context.Context) *Session {
	pool := downloader.NewWorkerPool(ctx, s.concurrency, s.downloader, s.limiter, s.logger)
	session := &Session{
		scraper: s,
		ctx:     ctx,
		pool:    pool,
		done:    make(chan struct{}),
		summary: Summary{Started: s.now()},
	}

	pool.Start()
	go session.collect()
	return session
}

// ProcessTray processes every reel in the tray
func (ss *Session) ProcessTray(tray *instagram.Tray) {
	if tray == nil {
		return
	}
	for i := range tray.Reels {
		ss.ProcessReel(&tray.Reels[i])
	}
}

// ProcessReel resolves and queues every item of a reel. A reel without
// items is valid and does nothing; one that could not be decoded counts as
// a single malformed entry.
func (ss *Session) ProcessReel(reel *instagram.Reel) {
	if reel == nil {
		return
	}
	if reel.DecodeErr != nil {
		ss.handle(malformed(reelOwner(reel), "undecodable reel: %v", reel.DecodeErr))
		return
	}
	for _, item := range reel.Items {
		ss.handle(ResolveItem(ss.scraper.root, item))
	}
}

// ProcessLive processes the finished livestreams listed in the tray
func (ss *Session) ProcessLive(tray *instagram.Tray) {
	if tray == nil {
		return
	}
	ss.ProcessPostLive(tray.PostLive)
}

// ProcessPostLive resolves every base URL of every broadcast. Absent
// post-live data is normal.
func (ss *Session) ProcessPostLive(pl *instagram.PostLive) {
	if pl == nil {
		ss.scraper.logger.Debug("no live stories")
		return
	}
	if pl.DecodeErr != nil {
		ss.handle(malformed("", "undecodable post_live: %v", pl.DecodeErr))
		return
	}
	for _, item := range pl.Items {
		if item.DecodeErr != nil {
			_, userID, _ := item.User.Identity()
			ss.handle(malformed(userID, "undecodable post_live item: %v", item.DecodeErr))
			continue
		}
		for _, b := range item.Broadcasts {
			for _, res := range ResolveBroadcast(ss.scraper.root, item.User, b) {
				ss.handle(res)
			}
		}
	}
}

// Wait stops accepting work, waits for queued downloads and returns the
// final summary.
func (ss *Session) Wait() Summary {
	ss.pool.Stop()
	<-ss.done

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.summary.Finished = ss.scraper.now()
	summary := ss.summary
	summary.Failures = append([]string(nil), ss.summary.Failures...)
	return summary
}

func (ss *Session) handle(res Resolution) {
	ss.mu.Lock()
	ss.summary.addOutcome(res.Outcome)
	ss.mu.Unlock()

	t := res.Target
	if res.Outcome != Resolved {
		ss.scraper.logger.WithError(res.Err).WarnWithFields("skipping entry", map[string]interface{}{
			"user_id": t.UserID,
			"post_id": t.PostID,
			"reason":  res.Outcome.String(),
		})
		return
	}

	job := downloader.DownloadJob{
		URL:    t.URL,
		Path:   t.Path,
		UserID: t.UserID,
		PostID: t.PostID,
	}
	if ss.scraper.observer != nil {
		ss.scraper.observer.Queued(job)
	}
	if err := ss.pool.Submit(job); err != nil {
		ss.mu.Lock()
		ss.summary.addFailure(fmt.Sprintf("%s: %v", t.PostID, err))
		ss.mu.Unlock()
		if ss.scraper.observer != nil {
			ss.scraper.observer.Finished(downloader.DownloadResult{Job: job, Error: err})
		}
	}
}

func (ss *Session) collect() {
	defer close(ss.done)

	for result := range ss.pool.Results() {
		logger.LogDownload(ss.scraper.logger, result.Job.Path, result.Result.Written, result.Result.Existed, result.Error)

		ss.mu.Lock()
		switch {
		case result.Error != nil:
			ss.summary.addFailure(fmt.Sprintf("%s: %v", result.Job.PostID, result.Error))
		case result.Result.Existed:
			ss.summary.AlreadyPresent++
		default:
			ss.summary.Downloaded++
			ss.summary.Bytes += result.Result.Written
		}
		ss.mu.Unlock()

		if ss.scraper.observer != nil {
			ss.scraper.observer.Finished(result)
		}
	}
}

func (ss *Session) fetchUser(userID string) {
	if ss.ctx.Err() != nil {
		return
	}

	reel, raw, err := ss.scraper.client.FetchReelMedia(ss.ctx, userID)
	if err != nil {
		if ss.ctx.Err() != nil {
			return
		}
		ss.scraper.logger.WithError(err).WarnWithFields("failed to fetch user reel", map[string]interface{}{
			"user_id": userID,
		})
		ss.mu.Lock()
		ss.summary.UsersFailed++
		ss.summary.recordFailure(fmt.Sprintf("reel %s: %v", userID, err))
		ss.mu.Unlock()
		return
	}

	ss.mu.Lock()
	ss.summary.UsersFetched++
	ss.mu.Unlock()

	ss.saveSnapshot("reel_"+userID, raw)
	ss.ProcessReel(reel)
	ss.ProcessPostLive(reel.PostLive)
}

func reelOwner(reel *instagram.Reel) string {
	if reel.User != nil && reel.User.PK != nil {
		return reel.User.PK.String()
	}
	return ""
}

func (ss *Session) saveSnapshot(kind string, raw []byte) {
	if ss.scraper.snapshots == nil || len(raw) == 0 {
		return
	}
	if _, err := ss.scraper.snapshots.SaveSnapshot(kind, raw); err != nil {
		ss.scraper.logger.WithError(err).WarnWithFields("failed to save snapshot", map[string]interface{}{
			"kind": kind,
		})
		return
	}
	ss.mu.Lock()
	ss.summary.Snapshots++
	ss.mu.Unlock()
}
