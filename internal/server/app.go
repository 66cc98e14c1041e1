// Package server wires configuration, storage and services together and runs
// the gRPC and HTTP transports until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/securemsg/internal/cryptox"
	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/server/auth"
	"github.com/dmitrijs2005/securemsg/internal/server/config"
	"github.com/dmitrijs2005/securemsg/internal/server/httpapi"
	"github.com/dmitrijs2005/securemsg/internal/server/metrics"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/securemsg/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/securemsg/internal/server/grpc"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	closers        []io.Closer
	metrics        *metrics.Registry
	userService    *services.UserService
	messageService *services.MessageService
	exportService  *services.ExportService
}

// seams for tests
var (
	openDB = repomanager.OpenDB
	newRM  = repomanager.NewPostgresRepositoryManager
)

// newRevocationStore builds the configured revocation set. The returned
// closer, if any, releases its connection.
func newRevocationStore(ctx context.Context, c *config.Config) (auth.RevocationStore, io.Closer, error) {
	switch c.RevocationBackend {
	case config.RevocationMemory:
		return auth.NewMemoryRevocationStore(), nil, nil
	case config.RevocationRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return auth.NewRedisRevocationStore(client), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown revocation backend %q", c.RevocationBackend)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger, metrics: metrics.NewRegistry()}

	if c.UsesDevKeys() {
		logger.Warn(ctx, "DEV MODE: built-in development keys in use, tokens and messages are not protected")
	}

	db, err := openDB(ctx, c.DatabaseDSN, c.DBMaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm := newRM()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	revoked, closer, err := newRevocationStore(ctx, c)
	if err != nil {
		app.Close()
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.TokenValidityDuration, revoked)
	if err != nil {
		app.Close()
		return nil, err
	}

	key, err := c.MessageKeyBytes()
	if err != nil {
		app.Close()
		return nil, err
	}
	cipher, err := cryptox.NewCipher(key, cryptox.CipherType(c.CipherType))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.userService = services.NewUserService(db, rm, tokens, c.PasswordParams(), logger, app.metrics)
	app.messageService = services.NewMessageService(db, rm, cipher, logger, app.metrics)
	app.exportService = services.NewExportService(db, rm, c, logger, app.metrics)

	return app, nil
}

func (app *App) Users() *services.UserService {
	return app.userService
}

func (app *App) Export() *services.ExportService {
	return app.exportService
}

// Close releases the database pool and the revocation store connection.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.messageService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	h := httpapi.NewHandler(app.userService, app.messageService, app.exportService, app.config, app.logger, app.metrics)
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, h.Router(), app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves both transports until ctx is cancelled, a signal arrives or
// either server fails, then closes the app.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
