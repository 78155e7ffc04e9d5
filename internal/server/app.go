// Package server wires the account service together: it opens the store,
// builds the directory, token issuer and session validator, and runs the
// HTTP API and the gRPC health endpoint until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/archive"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/eventlog"
	"github.com/dmitrijs2005/accountkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/session"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
	"github.com/dmitrijs2005/accountkeeper/internal/server/users"

	gs "github.com/dmitrijs2005/accountkeeper/internal/server/grpc"
)

const readHeaderTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       *repomanager.KVRepositoryManager
	events      *eventlog.Recorder
	userService *users.Service
	handler     *httpapi.Handler
}

// NewApp opens the configured store and builds every service on top of it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	backend, err := store.Open(store.Options{
		Kind:          c.StoreKind,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, backend store.Backend) (*App, error) {
	rm := repomanager.NewKVRepositoryManager(backend)

	issuer, err := auth.NewIssuer(rm.RefreshTokens(), rm.Users(), auth.Options{
		Secret:     c.SecretKey,
		Algorithm:  c.SigningAlgorithm,
		Audience:   c.TokenAudience,
		Issuer:     c.TokenIssuer,
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("token issuer init error: %w", err)
	}

	recorder := eventlog.NewRecorder(rm.Events(), logger, c.LogRetention)

	opts := users.Options{
		PasswordTokenTTL: c.PasswordTokenValidityDuration,
		Events:           recorder,
	}
	if c.S3Bucket != "" {
		exporter, err := archive.NewS3Exporter(ctx, archive.Options{
			Region:       c.S3Region,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		opts.Archiver = exporter
	}

	us := users.NewService(rm, issuer, mailer.NewLogMailer(logger, c.ResetPasswordURL), logger, opts)

	h := httpapi.NewHandler(us, issuer, session.NewValidator(issuer, rm.Users()), rm, logger, httpapi.Options{
		CORSOrigins: c.CORSOrigins,
		Registry:    prometheus.NewRegistry(),
		Events:      recorder,
	})

	return &App{
		config:      c,
		logger:      logger,
		repos:       rm,
		events:      recorder,
		userService: us,
		handler:     h,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	listen, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: app.handler, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "error stopping HTTP server", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s := gs.NewHealthServer(app.config.GRPCAddr, app.repos, app.logger, 0)
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, a termination signal arrives or a
// server fails. Background writes are drained and the store closed before
// it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, name+" server failed", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	start("http", app.startHTTPServer)
	start("grpc", app.startGRPCServer)

	wg.Wait()

	app.userService.Wait()
	app.events.Wait()

	if err := app.repos.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	app.logger.Info(ctx, "App stopped")
	return errors.Join(errs...)
}
