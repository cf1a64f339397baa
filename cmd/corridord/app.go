package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-corridors/pkg/api"
	"github.com/dd0wney/cluso-corridors/pkg/audit"
	"github.com/dd0wney/cluso-corridors/pkg/auth"
	"github.com/dd0wney/cluso-corridors/pkg/config"
	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/health"
	"github.com/dd0wney/cluso-corridors/pkg/ingest"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
	"github.com/dd0wney/cluso-corridors/pkg/metrics"
	"github.com/dd0wney/cluso-corridors/pkg/parallel"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
	"github.com/dd0wney/cluso-corridors/pkg/server"
	corridortls "github.com/dd0wney/cluso-corridors/pkg/tls"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

const (
	systemMetricsInterval = 15 * time.Second
	sourcePingTimeout     = 2 * time.Second
	certificateWarnBefore = 14 * 24 * time.Hour
)

// app holds every long-lived component of the daemon.
type app struct {
	cfg       *config.Config
	logger    logging.Logger
	metrics   *metrics.Registry
	source    ingest.Source
	predictor *ingest.HTTPPredictor
	store     *corridor.Store
	pool      *parallel.WorkerPool
	engine    *routing.Engine
	health    *health.HealthChecker
	audit     *audit.Trail
	tls       *tls.Config
	api       *api.Server
	handler   http.Handler
}

// newApp opens the corridor source, loads the first graph and wires the API.
func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger, reg *metrics.Registry) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger, metrics: reg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.source, err = ingest.OpenSource(ctx, cfg.Graph.Source)
	if err != nil {
		return nil, fmt.Errorf("open corridor source: %w", err)
	}

	var predictor ingest.Predictor
	if cfg.Graph.PredictorURL != "" {
		a.predictor = ingest.NewHTTPPredictor(ingest.DefaultPredictorConfig(cfg.Graph.PredictorURL), logger, reg)
		predictor = a.predictor
	}

	builder := ingest.NewBuilder(a.source, ingest.BuilderOptions{
		Predictor: predictor,
		Logger:    logger,
		Recorder:  reg,
	})
	build := ingest.SnapshotBuildFunc(builder.Build, cfg.Graph.SnapshotPath, func(err error) {
		logger.Warn("snapshot write failed", logging.Path(cfg.Graph.SnapshotPath), logging.Error(err))
	})

	initial, fromSnapshot, err := loadInitial(ctx, build, cfg.Graph.SnapshotPath, logger)
	if err != nil {
		return nil, err
	}
	reg.SetGraphSize(initial.NodeCount(), initial.EdgeCount())

	a.store = corridor.NewStore(initial, build, logger)
	a.store.SetRecorder(reg)
	if fromSnapshot {
		// Serve the snapshot now and refresh from the source in the background.
		go func() {
			if err := a.store.Reload(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("background refresh failed; serving snapshot", logging.Error(err))
			}
		}()
	}

	a.pool, err = parallel.NewWorkerPool(cfg.Routing.Workers, logger)
	if err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}
	a.engine = routing.NewEngine(a.store, a.pool, routing.EngineConfig{
		DefaultK:       cfg.Routing.DefaultK,
		DefaultMaxHops: cfg.Routing.DefaultMaxHops,
		MaxExpansions:  cfg.Routing.MaxExpansions,
	}, logger)
	a.engine.SetRecorder(reg)
	reg.WatchWorkerPool(a.pool)
	reg.WatchGraphAge(func() time.Time { return a.store.Current().Stats().BuiltAt })

	if cfg.Server.TLS.Enabled {
		a.tls, err = corridortls.Load(corridortls.Config{
			CertFile:     cfg.Server.TLS.CertFile,
			KeyFile:      cfg.Server.TLS.KeyFile,
			ClientCAFile: cfg.Server.TLS.ClientCAFile,
			AutoGenerate: cfg.Server.TLS.AutoGenerate,
			Hosts:        cfg.Server.TLS.Hosts,
			MinVersion:   cfg.Server.TLS.MinVersion,
		})
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
	}

	var sink audit.Sink
	if cfg.Audit.Path != "" {
		fileSink, err := audit.OpenFileSink(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
		sink = fileSink
	}
	a.audit = audit.NewTrail(cfg.Audit.Capacity, sink)

	a.health, err = a.healthChecks()
	if err != nil {
		return nil, err
	}

	var tokens auth.TokenValidator
	if cfg.Auth.JWTSecret != "" {
		jwt, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		tokens = jwt
	}

	a.api, err = api.NewServer(api.Options{
		Engine:         a.engine,
		Store:          a.store,
		Predictor:      predictor,
		Health:         a.health,
		Metrics:        reg,
		Tokens:         tokens,
		Audit:          a.audit,
		Logger:         logger,
		Limits:         validation.Limits{MaxK: cfg.Routing.MaxK, MaxHops: cfg.Routing.MaxHopsLimit},
		RouteTimeout:   cfg.Routing.Timeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TLSEnabled:     a.tls != nil,
		Version:        version,
	})
	if err != nil {
		return nil, err
	}
	a.handler, err = a.api.Handler()
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return a, nil
}

// loadInitial prefers an existing snapshot for a fast start. Without one it
// builds from the source.
func loadInitial(ctx context.Context, build corridor.BuildFunc, snapshotPath string, logger logging.Logger) (*corridor.Graph, bool, error) {
	if snapshotPath != "" {
		g, err := ingest.ReadSnapshot(snapshotPath)
		switch {
		case err == nil:
			logger.Info("loaded graph snapshot",
				logging.Path(snapshotPath),
				logging.Int("nodes", g.NodeCount()),
				logging.Int("edges", g.EdgeCount()),
			)
			return g, true, nil
		case errors.Is(err, os.ErrNotExist):
		default:
			logger.Warn("ignoring unreadable snapshot", logging.Path(snapshotPath), logging.Error(err))
		}
	}

	g, err := build(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("build corridor graph: %w", err)
	}
	return g, false, nil
}

func (a *app) healthChecks() (*health.HealthChecker, error) {
	hc := health.NewHealthChecker()
	graph := health.GraphCheck(a.store.Current, a.cfg.Graph.MaxAge)
	hc.RegisterCheck("graph", graph)
	hc.RegisterReadinessCheck("graph", graph)
	hc.RegisterLivenessCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))
	if a.predictor != nil {
		hc.RegisterCheck("predictor", health.PredictorCheck(a.predictor.State))
	}
	if p, ok := a.source.(interface{ Ping(context.Context) error }); ok {
		hc.RegisterCheck("source", health.PingCheck("source", sourcePingTimeout, p.Ping))
	}
	if a.tls != nil {
		notAfter, err := corridortls.NotAfter(a.tls)
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
		hc.RegisterCheck("tls", health.CertificateCheck(notAfter, certificateWarnBefore))
	}
	return hc, nil
}

// run serves until ctx ends or a termination signal arrives.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.NewGracefulServer(server.Config{
		Addr:            a.cfg.Addr(),
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		IdleTimeout:     a.cfg.Server.IdleTimeout,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		TLS:             a.tls,
	}, a.handler, a.logger)
	srv.SetReloadFunc(a.store.Reload)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.metrics.RunSystemCollector(gctx, systemMetricsInterval)
		return nil
	})
	if a.cfg.Graph.Watch {
		if fs, ok := a.source.(*ingest.FileSource); ok {
			g.Go(func() error {
				// A broken watcher disables hot reload but keeps the server up.
				if err := ingest.Watch(gctx, fs.Name(), a.cfg.Graph.WatchDelay, a.store.Reload, a.logger); err != nil {
					a.logger.Error("file watcher stopped", logging.Error(err))
				}
				return nil
			})
		} else {
			a.logger.Warn("graph.watch only applies to file sources", logging.String("source", a.source.Name()))
		}
	}
	g.Go(func() error {
		// Stop the collector and watcher once the server is done.
		defer cancel()
		return srv.Run(gctx)
	})
	return g.Wait()
}

func (a *app) close() {
	if a.api != nil {
		a.api.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("close corridor source", logging.Error(err))
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Warn("close audit log", logging.Error(err))
		}
	}
}
