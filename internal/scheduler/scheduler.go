// Package scheduler drives a built graph.Graph to completion: it
// walks the graph's longest-path layering, running every layer's
// tasks with bounded concurrency, consulting the cache before
// invoking a driver, and containing a task's failure by marking its
// transitive downstream skipped-upstream rather than running them
// (§4.5).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/enri312/forge/internal/cache"
	"github.com/enri312/forge/internal/clock"
	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/driver/resolver"
	"github.com/enri312/forge/internal/eventbus"
	"github.com/enri312/forge/internal/fingerprint"
	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/graph"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// DefaultWorkers is the worker pool size used when Scheduler.Workers
// is left at zero.
const DefaultWorkers = 4

// DefaultTaskTimeout is the per-task deadline used when neither the
// task nor the scheduler configures one.
const DefaultTaskTimeout = 10 * time.Minute

// Scheduler executes a graph.Graph against a workspace.
type Scheduler struct {
	Graph     *graph.Graph
	Workspace *workspace.Workspace
	Drivers   *driver.Registry
	Resolver  resolver.Resolver
	Cache     *cache.Store
	Bus       *eventbus.Bus
	Clock     clock.Clock
	Log       zerolog.Logger

	// Workers bounds how many tasks run concurrently within one
	// layer. <= 0 uses DefaultWorkers.
	Workers int

	// DefaultTimeout is used for any task whose manifest declares no
	// explicit per-task timeout. <= 0 uses DefaultTaskTimeout.
	DefaultTimeout time.Duration
}

// Report summarizes one Run.
type Report struct {
	BuildID    string
	Success    bool
	DurationMs int64
	Tasks      map[task.ID]TaskResult
	CacheStats CacheStats
}

// TaskResult is the outcome recorded for one task after a Run.
type TaskResult struct {
	State       task.State
	DurationMs  int64
	CacheSource cache.Source
	ExitStatus  int
	Err         error
}

// CacheStats tallies cache outcomes across the run, mirroring the
// eventbus.TypeCacheStats event fields (§4.6).
type CacheStats struct {
	LocalHits    int
	RemoteHits   int
	Misses       int
	BytesAvoided int64
}

func (s *Scheduler) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers
}

func (s *Scheduler) defaultTimeout() time.Duration {
	if s.DefaultTimeout > 0 {
		return s.DefaultTimeout
	}
	return DefaultTaskTimeout
}

// run is the shared mutable state threaded through one Run
// invocation; a Scheduler itself is reusable across builds, but a
// run carries per-invocation bookkeeping that must not leak between
// builds sharing the same Scheduler.
type run struct {
	mu           sync.Mutex
	fingerprints map[task.ID]fingerprint.Fingerprint
	results      map[task.ID]TaskResult
	stats        CacheStats
}

func newRun() *run {
	return &run{
		fingerprints: make(map[task.ID]fingerprint.Fingerprint),
		results:      make(map[task.ID]TaskResult),
	}
}

func (r *run) setResult(id task.ID, res TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[id] = res
}

func (r *run) result(id task.ID) (TaskResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	return res, ok
}

func (r *run) setFingerprint(id task.ID, fp fingerprint.Fingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fingerprints[id] = fp
}

func (r *run) fingerprintOf(id task.ID) (fingerprint.Fingerprint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp, ok := r.fingerprints[id]
	return fp, ok
}

func (r *run) recordCacheHit(source cache.Source, bytesAvoided int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch source {
	case cache.SourceLocal:
		r.stats.LocalHits++
	case cache.SourceRemote:
		r.stats.RemoteHits++
	}
	r.stats.BytesAvoided += bytesAvoided
}

func (r *run) recordMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Misses++
}

// Run executes every layer of the graph in order, returning once
// every task has reached a terminal state. It returns a non-nil
// error only for conditions that make the whole build unrunnable
// (e.g. no driver registered for a project's language); individual
// task failures are reflected in the Report, not the returned error.
func (s *Scheduler) Run(ctx context.Context, buildID string) (*Report, error) {
	start := s.Clock.Now()
	s.Bus.Publish(eventbus.Event{Type: eventbus.TypeBuildStarted, At: start, BuildID: buildID})

	r := newRun()

	for _, layer := range s.Graph.Layers() {
		if err := s.runLayer(ctx, r, layer); err != nil {
			return nil, err
		}
	}

	success := true
	for _, res := range r.results {
		if res.State == task.StateFailed {
			success = false
			break
		}
	}

	finished := s.Clock.Now()
	s.Bus.Publish(eventbus.Event{
		Type:    eventbus.TypeBuildFinished,
		At:      finished,
		BuildID: buildID,
		Success: success,
	})
	s.Bus.Publish(eventbus.Event{
		Type:         eventbus.TypeCacheStats,
		At:           finished,
		LocalHits:    r.stats.LocalHits,
		RemoteHits:   r.stats.RemoteHits,
		Misses:       r.stats.Misses,
		BytesAvoided: r.stats.BytesAvoided,
	})

	return &Report{
		BuildID:    buildID,
		Success:    success,
		DurationMs: finished.Sub(start).Milliseconds(),
		Tasks:      snapshotResults(r),
		CacheStats: r.stats,
	}, nil
}

func snapshotResults(r *run) map[task.ID]TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[task.ID]TaskResult, len(r.results))
	for id, res := range r.results {
		out[id] = res
	}
	return out
}

// runLayer executes every task in one layer concurrently, bounded by
// Scheduler.Workers. Per the pattern in the teacher's parallel
// validation runner, each goroutine always returns nil to errgroup so
// one task's failure never cancels its still-running siblings within
// the same layer; failure containment for downstream tasks is instead
// enforced by upstream-state inspection the next time a task is about
// to start.
func (s *Scheduler) runLayer(ctx context.Context, r *run, layer []task.ID) error {
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(s.workers())

	var firstFatal error
	var fatalMu sync.Mutex

	for _, id := range layer {
		id := id
		g.Go(func() error {
			if err := s.runTask(ctx, gctx, r, id); err != nil {
				fatalMu.Lock()
				if firstFatal == nil {
					firstFatal = err
				}
				fatalMu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return firstFatal
}

// runTask executes one task, or marks it skipped-upstream if any of
// its upstream dependencies did not reach a success-like terminal
// state. runCtx is the scheduler's own cancellation context (SIGTERM
// draining); the second context, errgroup's derived one, is unused. A
// fatal setup error is returned to runLayer, which records it without
// stopping the layer's other tasks.
func (s *Scheduler) runTask(runCtx, _ context.Context, r *run, id task.ID) error {
	t := s.Graph.Task(id)
	if t == nil {
		return fmt.Errorf("%w: %s", forgeerrors.ErrTaskNotFound, id)
	}

	if blocked, upstreamID := s.blockedByUpstream(r, t); blocked {
		s.skipTask(r, t, upstreamID)
		return nil
	}

	proj := s.Workspace.ProjectByName(t.ProjectName)
	if proj == nil {
		return fmt.Errorf("%w: %s", forgeerrors.ErrModuleNotFound, t.ProjectName)
	}

	start := s.Clock.Now()
	t.SetState(task.StateRunning)
	s.Bus.Publish(eventbus.Event{Type: eventbus.TypeTaskStarted, At: start, TaskName: string(id)})

	res := s.execute(runCtx, r, t, proj)
	res.DurationMs = s.Clock.Now().Sub(start).Milliseconds()
	t.SetState(res.State)
	r.setResult(id, res)

	s.Bus.Publish(eventbus.Event{
		Type:        eventbus.TypeTaskFinished,
		At:          s.Clock.Now(),
		TaskName:    string(id),
		DurationMs:  res.DurationMs,
		Cached:      res.State == task.StateCached,
		CacheSource: string(res.CacheSource),
		Failed:      res.State == task.StateFailed,
	})
	return nil
}

// blockedByUpstream reports whether t has an upstream task that did
// not finish in a success-like state, and if so, that upstream's ID
// for inclusion in the skip reason.
func (s *Scheduler) blockedByUpstream(r *run, t *task.Task) (bool, task.ID) {
	for _, up := range t.Upstream {
		res, ok := r.result(up)
		if !ok {
			continue
		}
		if !res.State.SuccessLike() {
			return true, up
		}
	}
	return false, ""
}

func (s *Scheduler) skipTask(r *run, t *task.Task, because task.ID) {
	t.SetState(task.StateSkippedUpstream)
	r.setResult(t.ID, TaskResult{State: task.StateSkippedUpstream})
	s.Bus.Publish(eventbus.Event{
		Type:     eventbus.TypeTaskFinished,
		At:       s.Clock.Now(),
		TaskName: string(t.ID),
		Failed:   false,
	})
	s.Log.Debug().Str("task", string(t.ID)).Str("blocked_by", string(because)).Msg("skipped upstream")
}
