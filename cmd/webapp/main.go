package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/credential"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/redirect"
	"github.com/jrsteele09/go-auth-session/server"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/tokenstore"
	"github.com/jrsteele09/go-auth-session/tokenstore/redisstore"
	"github.com/jrsteele09/go-auth-session/tokenstore/sqlitestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("config.New: %w", err)
	}
	configureLogging(c)
	displayAppname(c.GetAppName())

	ctx := context.Background()
	storage, err := openStorage(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if closer, ok := storage.(io.Closer); ok {
			_ = closer.Close()
		}
	}()
	store := tokenstore.New(storage)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	strategy, err := newStrategy(ctx, c, store, m)
	if err != nil {
		return err
	}
	handler, err := server.New(c, strategy, server.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(httpServer) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// openStorage opens the configured token storage backend
func openStorage(ctx context.Context, c config.Config) (tokenstore.Storage, error) {
	switch c.GetStorageBackend() {
	case config.StorageMemory:
		log.Warn().Msg("Using in-memory token storage, sessions will not survive a restart")
		return tokenstore.NewInMemoryStorage(), nil
	case config.StorageRedis:
		storage, err := redisstore.Connect(ctx, c.GetRedisURL(), redisstore.WithKeyPrefix(c.GetRedisKeyPrefix()))
		if err != nil {
			return nil, fmt.Errorf("redisstore.Connect: %w", err)
		}
		return storage, nil
	default:
		path := c.GetStoragePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		storage, err := sqlitestore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore.Open: %w", err)
		}
		return storage, nil
	}
}

// newStrategy builds the session controller for the configured strategy
func newStrategy(ctx context.Context, c config.Config, store *tokenstore.Store, m *metrics.Metrics) (server.Option, error) {
	if c.GetStrategy() == config.StrategyRedirect {
		controller, err := redirect.New(ctx, redirect.Config{
			Domain:          c.GetDomain(),
			ClientID:        c.GetClientID(),
			ClientSecret:    c.GetClientSecret(),
			Scopes:          strings.Fields(c.GetScope()),
			Audience:        c.GetAudience(),
			BaseURL:         c.GetBaseURL(),
			FlowTTL:         c.GetAuthFlowTTL(),
			CallbackTimeout: c.GetCallbackTimeout(),
		}, store, redirect.WithMetrics(m))
		if err != nil {
			return nil, fmt.Errorf("redirect.New: %w", err)
		}
		return server.WithRedirectController(controller), nil
	}

	client := credential.New(credential.Config{
		Domain:     c.GetDomain(),
		ClientID:   c.GetClientID(),
		Scope:      c.GetScope(),
		Audience:   c.GetAudience(),
		Connection: c.GetConnection(),
		Timeout:    c.GetHTTPTimeout(),
	}, credential.WithMetrics(m))

	opts := []session.Option{session.WithMachineOptions(session.WithMachineMetrics(m))}
	if c.GetProviderLogout() {
		opts = append(opts, session.WithProviderLogout(config.ProviderURL(c.GetDomain()), c.GetClientID(), c.GetBaseURL()+server.RouteLogin))
	}
	return server.WithDirectController(session.NewController(ctx, client, store, opts...)), nil
}

func configureLogging(c config.Config) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.IsDev(c) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
