package client

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// Syncer запуск синхронизации
type Syncer interface {
	RequestSync(ctx context.Context) error
}

// Drainer обработка очереди фото
type Drainer interface {
	DrainQueue(ctx context.Context) (DrainStats, error)
}

// MigrationRunner однократный перенос данных
type MigrationRunner interface {
	IsMigrationNeeded(ctx context.Context, userID string) (bool, error)
	RunMigration(ctx context.Context, userID string, onProgress ProgressFunc, onError func(error)) bool
}

// ChangeTracker сведения о локальных изменениях
type ChangeTracker interface {
	HasPendingChanges(ctx context.Context) (bool, error)
	DataVersion(ctx context.Context) (int64, error)
}

type TriggerConfig struct {
	UserID   string
	Interval time.Duration
	Debounce time.Duration
	// DBPath файл локальной базы, за которым следит fsnotify. Пусто: не следить.
	DBPath string
}

// Triggers сводит источники событий к запросам синхронизации: запуск,
// возврат фокуса, появление сети, локальная запись и периодический таймер.
type Triggers struct {
	sync      Syncer
	queue     Drainer
	migration MigrationRunner
	monitor   *ConnectivityMonitor
	changes   ChangeTracker
	config    TriggerConfig
	log       *slog.Logger

	focus    chan struct{}
	writes   chan struct{}
	explicit atomic.Bool
}

func NewTriggers(sync Syncer, queue Drainer, migration MigrationRunner, monitor *ConnectivityMonitor,
	changes ChangeTracker, cfg TriggerConfig, log *slog.Logger) *Triggers {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &Triggers{
		sync:      sync,
		queue:     queue,
		migration: migration,
		monitor:   monitor,
		changes:   changes,
		config:    cfg,
		log:       log.With("component", "triggers"),
		focus:     make(chan struct{}, 1),
		writes:    make(chan struct{}, 1),
	}
}

// OnFocus сигнал возврата фокуса
func (t *Triggers) OnFocus() {
	select {
	case t.focus <- struct{}{}:
	default:
	}
}

// NotifyLocalWrite сигнал после локальной записи. Синхронизация начнется
// через интервал тишины.
func (t *Triggers) NotifyLocalWrite() {
	t.explicit.Store(true)
	t.signalWrite()
}

func (t *Triggers) signalWrite() {
	select {
	case t.writes <- struct{}{}:
	default:
	}
}

// Run выполняет перенос данных, если он нужен, затем запускает все
// источники и ждет отмены контекста. До конца переноса синхронизация не
// запрашивается.
func (t *Triggers) Run(ctx context.Context) error {
	t.migrate(ctx)
	if ctx.Err() != nil {
		return nil
	}

	var watcher *fsnotify.Watcher
	if t.config.DBPath != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("ошибка создания наблюдателя: %w", err)
		}
		if err := w.Add(filepath.Dir(t.config.DBPath)); err != nil {
			w.Close()
			return fmt.Errorf("ошибка наблюдения за %s: %w", t.config.DBPath, err)
		}
		watcher = w
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return t.startup(ctx) })
	g.Go(func() error { return t.focusLoop(ctx) })
	g.Go(func() error { return t.debounceLoop(ctx) })

	if t.monitor != nil {
		t.monitor.OnOnline(t.online)
		g.Go(func() error { return t.monitor.Run(ctx) })
	}
	if t.config.Interval > 0 {
		g.Go(func() error { return t.tickerLoop(ctx) })
	}
	if watcher != nil {
		g.Go(func() error { return t.watchLoop(ctx, watcher) })
	}

	t.log.Info("триггеры синхронизации запущены",
		"interval", t.config.Interval,
		"debounce", t.config.Debounce,
		"watch", t.config.DBPath,
	)

	return g.Wait()
}

func (t *Triggers) migrate(ctx context.Context) {
	if t.migration == nil || t.config.UserID == "" {
		return
	}

	needed, err := t.migration.IsMigrationNeeded(ctx, t.config.UserID)
	if err != nil {
		t.log.Warn("не удалось проверить необходимость переноса", "error", err)
	}
	if !needed {
		return
	}

	t.log.Info("запуск переноса локальных данных")
	t.migration.RunMigration(ctx, t.config.UserID,
		func(done, total int, label string) {
			t.log.Info(label, "done", done, "total", total)
		},
		func(err error) {
			t.log.Error("перенос данных не удался", "error", err)
		},
	)
}

func (t *Triggers) startup(ctx context.Context) error {
	t.request(ctx, "startup")
	return nil
}

func (t *Triggers) focusLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.focus:
			t.request(ctx, "focus")
		}
	}
}

func (t *Triggers) tickerLoop(ctx context.Context) error {
	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.request(ctx, "interval")
		}
	}
}

func (t *Triggers) debounceLoop(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	lastVersion, err := t.changes.DataVersion(ctx)
	if err != nil {
		t.log.Warn("не удалось прочитать версию данных", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.writes:
			if timer == nil {
				timer = time.NewTimer(t.config.Debounce)
			} else {
				timer.Reset(t.config.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			t.flushWrites(ctx, &lastVersion)
		}
	}
}

// flushWrites запускает синхронизацию после тишины. Событие файловой системы
// учитывается, только если другой процесс закоммитил изменения.
func (t *Triggers) flushWrites(ctx context.Context, lastVersion *int64) {
	explicit := t.explicit.Swap(false)

	version, err := t.changes.DataVersion(ctx)
	if err != nil {
		t.log.Warn("не удалось прочитать версию данных", "error", err)
	}
	external := err == nil && version != *lastVersion
	*lastVersion = version

	if !explicit && !external {
		return
	}

	pending, err := t.changes.HasPendingChanges(ctx)
	if err != nil {
		t.log.Warn("не удалось проверить локальные изменения", "error", err)
		return
	}
	if !pending {
		return
	}
	t.request(ctx, "local_write")
}

func (t *Triggers) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer watcher.Close()

	base := filepath.Base(t.config.DBPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// сама база и ее -wal/-shm
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				t.signalWrite()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.log.Warn("ошибка наблюдателя", "error", err)
		}
	}
}

// online переход в онлайн: синхронизация и очередь фото. При первой проверке
// синхронизацию уже запускает startup.
func (t *Triggers) online(ctx context.Context, initial bool) {
	if !initial {
		t.request(ctx, "online")
	}
	t.drain(ctx)
}

func (t *Triggers) drain(ctx context.Context) {
	if t.queue == nil {
		return
	}
	if _, err := t.queue.DrainQueue(ctx); err != nil && ctx.Err() == nil {
		t.log.Warn("ошибка обработки очереди фото", "error", err)
	}
}

func (t *Triggers) request(ctx context.Context, reason string) {
	t.log.Debug("запрос синхронизации", "reason", reason)
	if err := t.sync.RequestSync(ctx); err != nil && ctx.Err() == nil {
		t.log.Warn("синхронизация не удалась", "reason", reason, "error", err)
	}
}
