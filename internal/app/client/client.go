package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/exp/slog"

	"scorekeeper/internal/app/client/config"
)

// App клиентское приложение: локальное хранилище и все компоненты синхронизации
type App struct {
	config     *config.Config
	log        *slog.Logger
	httpClient *httpClient
	storage    *SQLiteStorage
	metrics    *Metrics
	shutdown   func(context.Context) error
	engine     *SyncEngine
	migration  *Migration
	queue      *PhotoQueue
	monitor    *ConnectivityMonitor
	triggers   *Triggers
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o700); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога данных: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации локального хранилища: %w", err)
	}

	provider, err := SetupMetrics(cfg.MetricsStdout, 15*time.Second)
	if err != nil {
		storage.Close()
		return nil, err
	}
	metrics, err := NewMetrics(provider)
	if err != nil {
		storage.Close()
		return nil, err
	}

	httpCl := NewHTTPClient(cfg, log)

	engine, err := NewSyncEngine(context.Background(), storage, httpCl,
		SyncConfig{
			UserID:     cfg.UserID,
			BatchSize:  cfg.BatchSize,
			MaxRetries: cfg.MaxRetries,
		},
		log, WithMetrics(metrics))
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("ошибка инициализации синхронизации: %w", err)
	}

	monitor := NewConnectivityMonitor(httpCl, time.Duration(cfg.ConnectivityCheck)*time.Second, log)
	migration := NewMigration(storage, httpCl, cfg.BatchSize, log)
	queue := NewPhotoQueue(storage, httpCl, httpCl, monitor, cfg.UserID, log, metrics)

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		storage:    storage,
		metrics:    metrics,
		shutdown:   provider.Shutdown,
		engine:     engine,
		migration:  migration,
		queue:      queue,
		monitor:    monitor,
	}

	app.triggers = NewTriggers(engine, queue, migration, monitor, storage,
		TriggerConfig{
			UserID:   cfg.UserID,
			Interval: time.Duration(cfg.SyncInterval) * time.Second,
			Debounce: cfg.SyncDebounce,
			DBPath:   cfg.DataPath,
		}, log)

	return app, nil
}

// Run запускает фоновую синхронизацию до отмены контекста
func (a *App) Run(ctx context.Context) error {
	if !a.IsAuthenticated() {
		return ErrUnauthenticated
	}

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"data", a.config.DataPath,
	)

	return a.triggers.Run(ctx)
}

// IsAuthenticated заданы ли пользователь и токен
func (a *App) IsAuthenticated() bool {
	return a.config.Authenticated()
}

// UserID текущий пользователь
func (a *App) UserID() string {
	return a.config.UserID
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return a.httpClient.HealthCheck(ctx)
}

func (a *App) Storage() Storage {
	return a.storage
}

func (a *App) Engine() *SyncEngine {
	return a.engine
}

func (a *App) Migration() *Migration {
	return a.migration
}

func (a *App) PhotoQueue() *PhotoQueue {
	return a.queue
}

func (a *App) Monitor() *ConnectivityMonitor {
	return a.monitor
}

func (a *App) Triggers() *Triggers {
	return a.triggers
}

// Close сбрасывает метрики и закрывает хранилище
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("ошибка остановки метрик", "error", err)
	}
	return a.storage.Close()
}

type appContextKey struct{}

// WithApp кладет приложение в контекст команды
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// FromContext достает приложение из контекста команды
func FromContext(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appContextKey{}).(*App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}
