// Package session runs continuous mode: file-change and periodic producers
// feed one trigger channel, and a single consumer performs the syncs.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alucardeht/specsync/internal/logger"
	"github.com/alucardeht/specsync/internal/syncer"
	"github.com/alucardeht/specsync/internal/watcher"
)

var log = logger.ForComponent("session")

const (
	TriggerStartup    = "startup"
	TriggerFileChange = "file-change"
	TriggerPeriodic   = "periodic"
	TriggerManual     = "manual"
)

type Syncer interface {
	Sync(ctx context.Context, trigger string) (syncer.Result, error)
}

// EventSource delivers file changes through Session.OnChange once started.
type EventSource interface {
	Start(ctx context.Context) error
	Stop() error
}

type Options struct {
	// Interval of the periodic re-sync. Zero disables it.
	Interval time.Duration
	URL      string
	HostFile string
}

type Status struct {
	StartedAt time.Time
	InFlight  bool
	Pending   bool
	Syncs     int64
	Failures  int64
	Coalesced int64
	LastRun   *syncer.Result
}

type Session struct {
	syncer Syncer
	opts   Options
	source EventSource

	// triggers holds at most one pending request; producers never block.
	triggers chan string
	inFlight atomic.Bool
	running  atomic.Bool

	syncs     atomic.Int64
	failures  atomic.Int64
	coalesced atomic.Int64

	mu        sync.RWMutex
	last      *syncer.Result
	startedAt time.Time
}

func New(s Syncer, opts Options) *Session {
	return &Session{
		syncer:   s,
		opts:     opts,
		triggers: make(chan string, 1),
	}
}

// SetSource attaches the file watcher. It must be called before Run.
func (s *Session) SetSource(src EventSource) {
	s.source = src
}

// OnChange is the flush callback for the file watcher.
func (s *Session) OnChange(events []watcher.FileEvent) {
	if len(events) == 0 {
		return
	}
	log.Info("source files changed", "count", len(events), "first", events[0].Path)
	s.Trigger(TriggerFileChange)
}

// Trigger requests a sync. It returns false when a request is already
// pending, in which case this one is folded into it.
func (s *Session) Trigger(reason string) bool {
	select {
	case s.triggers <- reason:
		log.Debug("sync requested", "trigger", reason)
		return true
	default:
		s.coalesced.Add(1)
		log.Debug("sync already pending", "trigger", reason)
		return false
	}
}

// Run performs the startup sync, starts the producers and consumes triggers
// until ctx is done. A sync in progress when ctx is cancelled sees the
// cancellation and skips its write; Run returns after it finishes.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("session already running")
	}
	defer s.running.Store(false)

	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	log.Info("starting continuous sync", "url", s.opts.URL, "host", s.opts.HostFile, "interval", s.opts.Interval)

	s.runSync(ctx, TriggerStartup)

	if s.source != nil {
		if err := s.source.Start(ctx); err != nil {
			return fmt.Errorf("starting file watcher: %w", err)
		}
	}

	var wg sync.WaitGroup
	if s.opts.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick(ctx)
		}()
	}

	defer func() {
		if s.source != nil {
			if err := s.source.Stop(); err != nil {
				log.Warn("failed to stop file watcher", "error", err)
			}
		}
		wg.Wait()
		log.Info("continuous sync stopped", "syncs", s.syncs.Load(), "failures", s.failures.Load())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-s.triggers:
			if ctx.Err() != nil {
				return nil
			}
			s.runSync(ctx, reason)
		}
	}
}

func (s *Session) tick(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Trigger(TriggerPeriodic)
		}
	}
}

func (s *Session) runSync(ctx context.Context, reason string) {
	s.inFlight.Store(true)
	defer s.inFlight.Store(false)

	result, err := s.syncer.Sync(ctx, reason)

	s.syncs.Add(1)
	if err != nil {
		s.failures.Add(1)
	}

	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *syncer.Result
	if s.last != nil {
		copied := *s.last
		last = &copied
	}

	return Status{
		StartedAt: s.startedAt,
		InFlight:  s.inFlight.Load(),
		Pending:   len(s.triggers) > 0,
		Syncs:     s.syncs.Load(),
		Failures:  s.failures.Load(),
		Coalesced: s.coalesced.Load(),
		LastRun:   last,
	}
}
