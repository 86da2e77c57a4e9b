// Package scheduler drives the two job families a watch can run under: a
// once-daily digest fired by a fixed local clock time, and a real-time poll
// fired on a fixed cadence subject to quiet hours. Jobs are registered and
// deregistered by watch ID, with a mode change handled as an atomic
// deregister-then-register rather than an in-place mutation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/pkg/models"
)

// JobStatus is a job entry's position in its own small state machine:
// scheduled -> running -> {completed, failed, cancelled} -> scheduled.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

const (
	// DefaultJobTimeout bounds a single run; a job that overruns this is
	// cancelled and recorded as cancelled rather than left to run forever.
	DefaultJobTimeout = 120 * time.Second
	// DefaultRealtimeInterval is how often the real-time poll ticks.
	DefaultRealtimeInterval = 10 * time.Minute
	// DefaultDigestTime is the local clock time the daily digest fires at
	// when no explicit digest time is configured.
	DefaultDigestTime = "09:00"
	// DefaultQuietStartHour and DefaultQuietEndHour bound the window a
	// real-time tick is skipped in, not queued for later replay.
	DefaultQuietStartHour = 23
	DefaultQuietEndHour   = 8
	// DefaultWorkerPoolSize bounds how many watch evaluations run at once
	// across both job families; excess jobs wait for a free slot.
	DefaultWorkerPoolSize = 8
)

// RunFunc executes a single watch's pipeline (oracle -> search/enrichment
// -> filter -> outbound delivery). The Scheduler only owns when it runs,
// never what it does.
type RunFunc func(ctx context.Context, watch models.Watch) error

// jobEntry is one registered job's bookkeeping. mu serializes concurrent
// ticks for the same watch: a tick that finds the previous run still in
// flight is skipped rather than queued.
type jobEntry struct {
	mu      sync.Mutex
	id      string
	watch   models.Watch
	running bool
	status  JobStatus
	lastRun time.Time
	lastErr error
}

// Scheduler owns the cron engine for daily jobs and a ticker loop for
// real-time jobs, plus the registry mapping watch IDs to job entries.
type Scheduler struct {
	run    RunFunc
	logger *slog.Logger
	loc    *time.Location

	digestHour   int
	digestMinute int

	jobTimeout       time.Duration
	realtimeInterval time.Duration
	quietStartHour   int
	quietEndHour     int
	workerPoolSize   int

	cronEngine *cron.Cron
	workerSem  chan struct{}

	mu              sync.Mutex
	jobs            map[string]*jobEntry      // job ID -> entry
	cronEntries     map[string]cron.EntryID   // watch ID -> cron entry, daily only
	realtimeWatches map[string]*jobEntry      // watch ID -> entry, realtime only

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithDigestTime sets the daily job's fixed local fire time, as "HH:MM".
func WithDigestTime(hhmm string) Option {
	return func(s *Scheduler) {
		var h, m int
		if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err == nil {
			s.digestHour, s.digestMinute = h, m
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.jobTimeout = d }
}

func WithRealtimeInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.realtimeInterval = d }
}

// WithQuietHours sets the window, in local hours [0,24), a real-time tick
// is skipped in. The window may wrap past midnight (start > end).
func WithQuietHours(startHour, endHour int) Option {
	return func(s *Scheduler) {
		s.quietStartHour, s.quietEndHour = startHour, endHour
	}
}

// WithWorkerPoolSize bounds how many jobs execute concurrently.
func WithWorkerPoolSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workerPoolSize = n
		}
	}
}

// New builds a Scheduler that invokes run for every fired job.
func New(run RunFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		run:              run,
		logger:           slog.Default(),
		loc:              time.Local,
		jobTimeout:       DefaultJobTimeout,
		realtimeInterval: DefaultRealtimeInterval,
		quietStartHour:   DefaultQuietStartHour,
		quietEndHour:     DefaultQuietEndHour,
		workerPoolSize:   DefaultWorkerPoolSize,
		jobs:             make(map[string]*jobEntry),
		cronEntries:      make(map[string]cron.EntryID),
		realtimeWatches:  make(map[string]*jobEntry),
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
	if _, err := fmt.Sscanf(DefaultDigestTime, "%d:%d", &s.digestHour, &s.digestMinute); err != nil {
		s.digestHour, s.digestMinute = 9, 0
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cronEngine = cron.New(cron.WithLocation(s.loc))
	s.workerSem = make(chan struct{}, s.workerPoolSize)
	return s
}

// dailyJobID and realtimeJobID give each watch's job family a deterministic,
// mode-qualified ID so a mode change never collides with the prior job.
func dailyJobID(watchID string) string    { return "daily:" + watchID }
func realtimeJobID(watchID string) string { return "realtime:" + watchID }

// Register adds watch to its mode's job family, first deregistering any
// existing job for the same watch ID (handles a mode change atomically).
func (s *Scheduler) Register(watch models.Watch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deregisterLocked(watch.ID)

	switch watch.Mode {
	case models.ModeDaily:
		return s.registerDailyLocked(watch)
	case models.ModeRealtime:
		s.registerRealtimeLocked(watch)
		return nil
	default:
		return fmt.Errorf("scheduler: unknown watch mode %q", watch.Mode)
	}
}

func (s *Scheduler) registerDailyLocked(watch models.Watch) error {
	id := dailyJobID(watch.ID)
	entry := &jobEntry{id: id, watch: watch, status: StatusScheduled}

	spec := fmt.Sprintf("%d %d * * *", s.digestMinute, s.digestHour)
	cronID, err := s.cronEngine.AddFunc(spec, func() { s.execute(entry) })
	if err != nil {
		return fmt.Errorf("scheduler: add daily job for watch %s: %w", watch.ID, err)
	}

	s.jobs[id] = entry
	s.cronEntries[watch.ID] = cronID
	metrics.UpdateSchedulerActiveJobs("daily", len(s.cronEntries))
	return nil
}

func (s *Scheduler) registerRealtimeLocked(watch models.Watch) {
	id := realtimeJobID(watch.ID)
	entry := &jobEntry{id: id, watch: watch, status: StatusScheduled}
	s.jobs[id] = entry
	s.realtimeWatches[watch.ID] = entry
	metrics.UpdateSchedulerActiveJobs("realtime", len(s.realtimeWatches))
}

// Deregister removes any job registered for watchID, in either family.
func (s *Scheduler) Deregister(watchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deregisterLocked(watchID)
}

func (s *Scheduler) deregisterLocked(watchID string) {
	if cronID, ok := s.cronEntries[watchID]; ok {
		s.cronEngine.Remove(cronID)
		delete(s.cronEntries, watchID)
		delete(s.jobs, dailyJobID(watchID))
		metrics.UpdateSchedulerActiveJobs("daily", len(s.cronEntries))
	}
	if _, ok := s.realtimeWatches[watchID]; ok {
		delete(s.realtimeWatches, watchID)
		delete(s.jobs, realtimeJobID(watchID))
		metrics.UpdateSchedulerActiveJobs("realtime", len(s.realtimeWatches))
	}
}

// Start runs the cron engine and the real-time ticker loop until Stop is
// called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cronEngine.Start()
	go s.runRealtimeLoop(ctx)
}

// Stop halts the real-time loop and the cron engine, waiting for any
// in-flight tick dispatch to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
	cronCtx := s.cronEngine.Stop()
	<-cronCtx.Done()
}

func (s *Scheduler) runRealtimeLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.realtimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tickRealtime()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tickRealtime() {
	if s.inQuietHours(time.Now().In(s.loc)) {
		s.logger.Debug("skipping real-time tick during quiet hours")
		return
	}

	s.mu.Lock()
	entries := make([]*jobEntry, 0, len(s.realtimeWatches))
	for _, e := range s.realtimeWatches {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, entry := range entries {
		go s.execute(entry)
	}
}

// inQuietHours reports whether t's local hour falls in the configured
// quiet window. The window may wrap past midnight.
func (s *Scheduler) inQuietHours(t time.Time) bool {
	h := t.Hour()
	if s.quietStartHour <= s.quietEndHour {
		return h >= s.quietStartHour && h < s.quietEndHour
	}
	return h >= s.quietStartHour || h < s.quietEndHour
}

// execute runs a single job, skipping the tick entirely if the previous
// run for this watch is still in flight rather than queuing behind it.
func (s *Scheduler) execute(entry *jobEntry) {
	entry.mu.Lock()
	if entry.running {
		entry.mu.Unlock()
		s.logger.Warn("skipping overlapping run", slog.String("job_id", entry.id))
		return
	}
	entry.running = true
	entry.status = StatusRunning
	watch := entry.watch
	entry.mu.Unlock()

	// The pool bounds evaluation concurrency across both job families; a
	// job holds its entry's running flag while waiting, so an overlapping
	// tick for the same watch is still skipped rather than queued twice.
	select {
	case s.workerSem <- struct{}{}:
	case <-s.stopCh:
		entry.mu.Lock()
		entry.running = false
		entry.status = StatusScheduled
		entry.mu.Unlock()
		return
	}
	defer func() { <-s.workerSem }()

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := s.run(ctx, watch)
	duration := time.Since(start)

	entry.mu.Lock()
	entry.running = false
	entry.lastRun = time.Now()
	entry.lastErr = err
	switch {
	case err == nil:
		entry.status = StatusCompleted
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		entry.status = StatusCancelled
	default:
		entry.status = StatusFailed
	}
	outcome := entry.status
	entry.mu.Unlock()

	family, _, _ := strings.Cut(entry.id, ":")
	metrics.RecordSchedulerJob(family, string(outcome), duration)

	if err != nil {
		s.logger.Error("job failed", slog.String("job_id", entry.id), slog.String("error", err.Error()))
	}

	entry.mu.Lock()
	entry.status = StatusScheduled
	entry.mu.Unlock()
}

// Status reports the current state of the job registered for watchID under
// mode, or false if no such job is registered.
func (s *Scheduler) Status(watchID string, mode models.WatchMode) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	switch mode {
	case models.ModeDaily:
		id = dailyJobID(watchID)
	case models.ModeRealtime:
		id = realtimeJobID(watchID)
	default:
		return "", false
	}

	entry, ok := s.jobs[id]
	if !ok {
		return "", false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.status, true
}
