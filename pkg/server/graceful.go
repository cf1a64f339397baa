// Package server runs the HTTP listener with signal-driven shutdown and
// graph reloads.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining.
const DefaultShutdownTimeout = 30 * time.Second

// ReloadFunc rebuilds the corridor graph. It runs on SIGHUP.
type ReloadFunc func(ctx context.Context) error

// Config sets the listener address and http.Server timeouts.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// TLS, when set, wraps the listener.
	TLS *tls.Config
}

// GracefulServer wraps an http.Server. SIGINT and SIGTERM drain and stop it;
// SIGHUP calls the reload function while it keeps serving.
type GracefulServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          logging.Logger

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error

	reloadMu sync.RWMutex
	reloadFn ReloadFunc
	reloads  sync.WaitGroup
}

// NewGracefulServer creates a server for handler. Zero timeouts take the
// http.Server defaults, except ShutdownTimeout which defaults to 30s.
func NewGracefulServer(cfg Config, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    1 << 20,
			TLSConfig:         cfg.TLS,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger.With(logging.Component("server")),
		shutdownCh:      make(chan struct{}),
	}
}

// Run listens on the configured address and serves until ctx is done or a
// termination signal arrives.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or a termination signal arrives, then
// drains connections. A clean shutdown returns nil. With a TLS config, ln
// must be a plain TCP listener.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	if gs.server.TLSConfig != nil {
		ln = tls.NewListener(ln, gs.server.TLSConfig)
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	serveErr := make(chan error, 1)
	go func() {
		gs.logger.Info("listening", logging.String("addr", ln.Addr().String()))
		serveErr <- gs.server.Serve(ln)
	}()

	for {
		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return gs.waitShutdown()
			}
			return err
		case <-ctx.Done():
			gs.logger.Info("context done, shutting down")
			return gs.Shutdown(gs.shutdownTimeout)
		case sig := <-sigCh:
			if gs.handleSignal(ctx, sig) {
				return gs.Shutdown(gs.shutdownTimeout)
			}
		}
	}
}

// handleSignal reports whether sig should stop the server.
func (gs *GracefulServer) handleSignal(ctx context.Context, sig os.Signal) bool {
	switch sig {
	case syscall.SIGINT, syscall.SIGTERM:
		gs.logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
		return true
	case syscall.SIGHUP:
		gs.logger.Info("received SIGHUP, reloading graph")
		gs.reloads.Add(1)
		go func() {
			defer gs.reloads.Done()
			_ = gs.Reload(ctx)
		}()
	}
	return false
}

// waitShutdown is reached when Shutdown was called from elsewhere.
func (gs *GracefulServer) waitShutdown() error {
	<-gs.shutdownCh
	gs.reloads.Wait()
	return gs.shutdownErr
}

// Shutdown stops accepting connections and waits up to timeout for active
// ones to finish. Later calls return the first call's result.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	gs.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		gs.shutdownErr = gs.server.Shutdown(ctx)
		gs.reloads.Wait()
		if gs.shutdownErr != nil {
			gs.logger.Error("shutdown incomplete", logging.Error(gs.shutdownErr))
		} else {
			gs.logger.Info("shutdown complete", logging.Latency(time.Since(start)))
		}
		close(gs.shutdownCh)
	})
	<-gs.shutdownCh
	return gs.shutdownErr
}

// IsShuttingDown reports whether shutdown has completed.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel is closed once shutdown completes.
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function SIGHUP triggers.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the reload function, if any.
func (gs *GracefulServer) Reload(ctx context.Context) error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Warn("reload requested but no reload function configured")
		return nil
	}
	start := time.Now()
	if err := fn(ctx); err != nil {
		gs.logger.Error("reload failed", logging.Error(err), logging.Latency(time.Since(start)))
		return err
	}
	gs.logger.Info("reload complete", logging.Latency(time.Since(start)))
	return nil
}
