package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/repository/task/mongo"
	"taskManager/internal/repository/task/postgres"
	"taskManager/internal/service"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	server     *http.Server
	listener   net.Listener
	router     *chi.Mux
	repository service.TaskRepository
	service    *service.TaskService
	handler    *handlers.TaskHandler
	shutdowns  []func() // run in reverse order on Shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init wires logger, store, service, handler and router. The store must be
// reachable; Init fails otherwise.
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: flushing logs")
		logger.Sync()
	})

	repo, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.repository = repo

	a.service = service.NewTaskService(a.repository)
	a.handler = handlers.NewTaskHandler(a.service, handlers.ErrorMode(a.config.HTTP.ErrorMode))
	a.router = a.newRouter()
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (service.TaskRepository, error) {
	cfg := a.config.Store

	switch cfg.Type {
	case config.StoreMongo:
		storage, err := mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Collection)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)
		if err := storage.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return storage, nil

	case config.StorePostgres:
		storage, err := postgres.New(ctx, cfg.Postgres.URL, postgres.PoolConfig{
			MaxConns:        int32(cfg.Postgres.MaxConnections),
			MinConns:        int32(cfg.Postgres.MinConnections),
			MaxConnIdleTime: cfg.Postgres.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)
		if err := storage.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		return storage, nil

	case config.StoreInMemory:
		storage := inmemory.NewTaskStorage()
		a.shutdowns = append(a.shutdowns, storage.Close)
		logger.Warn("App: using in-memory store, data is lost on restart")
		return storage, nil

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func (a *App) newRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.HTTP.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/tasks", a.handler.Routes)
	r.Get("/health", a.handler.HealthCheck)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	return r
}

func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Service() *service.TaskService {
	return a.service
}

// Run binds the listener and serves in the background.
func (a *App) Run() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	a.listener = ln

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("App: server stopped unexpectedly", err)
		}
	}()

	logger.Info("App: server started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address; empty before Run.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Shutdown stops accepting requests, waits for in-flight ones and then
// releases the store and the logger.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		logger.Info("App: shutting down HTTP server")
		err = a.server.Shutdown(ctx)
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil

	return err
}
