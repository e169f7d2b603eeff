package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/enri312/forge/internal/cache"
	"github.com/enri312/forge/internal/cache/local"
	"github.com/enri312/forge/internal/cache/remote"
	"github.com/enri312/forge/internal/clock"
	"github.com/enri312/forge/internal/config"
	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/driver/javadriver"
	"github.com/enri312/forge/internal/driver/kotlindriver"
	"github.com/enri312/forge/internal/driver/pythondriver"
	"github.com/enri312/forge/internal/driver/resolver"
	"github.com/enri312/forge/internal/eventbus"
	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/graph"
	"github.com/enri312/forge/internal/progress"
	"github.com/enri312/forge/internal/scheduler"
	"github.com/enri312/forge/internal/signalctx"
	"github.com/enri312/forge/internal/telemetry"
	"github.com/enri312/forge/internal/workspace"
)

// engine bundles everything a build/test/package/run command needs
// once the configuration layer has been resolved, so the four thin
// subcommands in build.go share one construction path.
type engine struct {
	cfg           *config.Config
	log           zerolog.Logger
	progress      bool
	telemetryAddr string
}

func newEngine(flags *GlobalFlags) (*engine, error) {
	overrides := &config.Config{
		Logging: config.LoggingConfig{Verbose: flags.Verbose, Quiet: flags.Quiet},
	}
	if flags.Workers > 0 {
		overrides.Build.Workers = flags.Workers
	}

	cfg, err := config.LoadWithOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if flags.NoCache {
		cfg.Cache.Enabled = false
	}

	return &engine{
		cfg:           cfg,
		log:           GetLogger(),
		progress:      flags.Progress && term.IsTerminal(int(os.Stdout.Fd())),
		telemetryAddr: flags.TelemetryAddr,
	}, nil
}

// run loads the workspace rooted at rootDir, synthesizes its task
// graph, and executes it to completion, mirroring the construction
// the scheduler's own tests use to wire a Scheduler by hand.
func (e *engine) run(ctx context.Context, rootDir string, goal graph.Goal, buildID string) (*scheduler.Report, error) {
	ws, err := workspace.Load(rootDir)
	if err != nil {
		return nil, err
	}

	drivers := driver.NewRegistry(javadriver.New(), kotlindriver.New(), pythondriver.New())

	g, err := graph.BuildWithDrivers(ws, goal, drivers)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := e.buildCacheStore()
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		defer func() { _ = closeStore() }()
	}

	bus := eventbus.New(e.cfg.EventBus.BufferSize)

	if e.telemetryAddr != "" {
		stopTelemetry := e.startTelemetryServer(bus)
		defer stopTelemetry()
	}

	s := &scheduler.Scheduler{
		Graph:          g,
		Workspace:      ws,
		Drivers:        drivers,
		Resolver:       resolver.Static{},
		Cache:          store,
		Bus:            bus,
		Clock:          clock.RealClock{},
		Log:            e.log,
		Workers:        e.cfg.Build.Workers,
		DefaultTimeout: e.cfg.Build.DefaultTaskTimeout,
	}

	if e.progress {
		return e.runWithProgress(ctx, s, bus, buildID)
	}

	sub := bus.Subscribe()
	defer sub.Unsubscribe()
	go logEvents(sub, e.log)

	return s.Run(ctx, buildID)
}

// runWithProgress drives the scheduler and a live internal/progress
// TUI off the same event bus concurrently: the TUI consumes events
// purely as a subscriber, never touching the scheduler or the report
// it returns.
func (e *engine) runWithProgress(ctx context.Context, s *scheduler.Scheduler, bus *eventbus.Bus, buildID string) (*scheduler.Report, error) {
	model := progress.New(bus)

	g, gctx := errgroup.WithContext(ctx)
	var report *scheduler.Report
	g.Go(func() error {
		r, err := s.Run(gctx, buildID)
		report = r
		return err
	})
	g.Go(func() error {
		return progress.Run(gctx, model)
	})

	err := g.Wait()
	return report, err
}

// startTelemetryServer serves bus's events as SSE at
// "<telemetryAddr>/events" for the lifetime of the returned stop
// function's caller. A listen failure is logged and otherwise
// ignored: telemetry is a diagnostic aid, never load-bearing for the
// build itself.
func (e *engine) startTelemetryServer(bus *eventbus.Bus) func() {
	mux := http.NewServeMux()
	mux.Handle("/events", telemetry.NewHandler(bus, e.log))
	srv := &http.Server{Addr: e.telemetryAddr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.log.Warn().Err(err).Str("addr", e.telemetryAddr).Msg("telemetry server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// buildCacheStore constructs a cache.Store from the resolved
// configuration. The local tier is always present when caching is
// enabled; the remote tier is only dialed when a remote endpoint is
// configured, and its connection failure degrades to local-only
// rather than aborting the build (§4.4: the remote tier is always
// optional).
func (e *engine) buildCacheStore() (*cache.Store, func() error, error) {
	if !e.cfg.Cache.Enabled {
		return cache.New(noopLocalTier{}, nil, e.log), nil, nil
	}

	localStore, err := local.New(e.cfg.Cache.LocalRoot)
	if err != nil {
		return nil, nil, err
	}

	if e.cfg.Cache.RemoteEndpoint == "" {
		return cache.New(localStore, nil, e.log), nil, nil
	}

	remoteStore, err := remote.Connect(remote.Config{
		Endpoint:         e.cfg.Cache.RemoteEndpoint,
		CredentialEnvRef: e.cfg.Cache.RemoteCredentialEnvRef,
		TTL:              e.cfg.Cache.RemoteTTL,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("remote cache unavailable, continuing local-only")
		return cache.New(localStore, nil, e.log), nil, nil
	}

	return cache.New(localStore, remoteStore, e.log), remoteStore.Close, nil
}

// noopLocalTier backs a disabled cache: every lookup misses and every
// store silently succeeds, so --no-cache needs no special-casing
// anywhere in scheduler or driver code. Get is never actually called
// since Head always reports absent, but it still needs a body to
// satisfy cache.LocalTier.
type noopLocalTier struct{}

func (noopLocalTier) Head(string) bool               { return false }
func (noopLocalTier) Get(string) (cache.Entry, error) { return cache.Entry{}, errCacheDisabled }
func (noopLocalTier) Put(string, cache.Entry) error   { return nil }

var errCacheDisabled = fmt.Errorf("cache disabled")

func logEvents(sub *eventbus.Subscription, log zerolog.Logger) {
	for ev := range sub.C {
		switch ev.Type {
		case eventbus.TypeTaskFinished:
			log.Info().Str("task", ev.TaskName).Bool("cached", ev.Cached).Bool("failed", ev.Failed).Int64("ms", ev.DurationMs).Msg("task finished")
		case eventbus.TypeLogMessage:
			log.Info().Str("task", ev.TaskName).Msg(ev.Text)
		case eventbus.TypeDroppedEvents:
			log.Warn().Int("count", ev.Count).Msg("dropped events")
		}
	}
}

// printReport renders a scheduler.Report per --output.
func printReport(report *scheduler.Report, output string) error {
	if output == OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("build %s: ", report.BuildID)
	if report.Success {
		fmt.Println("success")
	} else {
		fmt.Println("failed")
	}
	for id, res := range report.Tasks {
		fmt.Printf("  %-40s %-18s %6dms\n", id, res.State, res.DurationMs)
	}
	fmt.Printf("cache: %d local hit(s), %d remote hit(s), %d miss(es)\n",
		report.CacheStats.LocalHits, report.CacheStats.RemoteHits, report.CacheStats.Misses)
	return nil
}

// runWithSignals wraps ctx with signalctx's cooperative cancellation
// so SIGINT/SIGTERM during a build surface as forgeerrors.ErrInterrupted
// rather than an ambiguous cancellation.
func runWithSignals(parent context.Context, fn func(ctx context.Context) error) error {
	h := signalctx.NewHandler(parent)
	defer h.Stop()

	err := fn(h.Context())
	select {
	case <-h.Interrupted():
		return forgeerrors.Wrap(forgeerrors.ErrInterrupted, "build")
	default:
		return err
	}
}
