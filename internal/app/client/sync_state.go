package client

import (
	gosync "sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// SyncStatus состояние оркестратора синхронизации
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusSyncing SyncStatus = "syncing"
	StatusFailed  SyncStatus = "failed"
)

const (
	DefaultMaxRetries = 5
	backoffInitial    = time.Second
	backoffMax        = 8 * time.Second
)

// SyncStats статистика синхронизации за время жизни процесса
type SyncStats struct {
	TotalRuns       int           `json:"total_runs"`
	TotalFailures   int           `json:"total_failures"`
	TotalRetries    int           `json:"total_retries"`
	TotalPushed     int           `json:"total_pushed"`
	TotalPulled     int           `json:"total_pulled"`
	LastSuccessful  time.Time     `json:"last_successful"`
	LastFailed      time.Time     `json:"last_failed"`
	LastRunDuration time.Duration `json:"last_run_duration"`
}

// SyncSnapshot копия состояния для отображения
type SyncSnapshot struct {
	Status            SyncStatus `json:"status"`
	Running           bool       `json:"running"`
	LastError         string     `json:"last_error,omitempty"`
	RetryCount        int        `json:"retry_count"`
	LastSyncTimestamp int64      `json:"last_sync_timestamp"`
	Stats             SyncStats  `json:"stats"`
}

// SyncState состояние одного SyncEngine. running держит флаг на все время
// прогона, включая паузы между попытками.
type SyncState struct {
	mu         gosync.Mutex
	status     SyncStatus
	running    bool
	lastError  string
	retryCount int
	lastSyncMs int64
	stats      SyncStats
}

func NewSyncState(lastSyncMs int64, lastError string) *SyncState {
	status := StatusIdle
	if lastError != "" {
		status = StatusFailed
	}
	return &SyncState{
		status:     status,
		lastError:  lastError,
		lastSyncMs: lastSyncMs,
	}
}

// begin занимает прогон. false, если прогон уже идет.
func (s *SyncState) begin(resetRetries bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	if resetRetries {
		s.retryCount = 0
	}
	s.enterSyncingLocked()
	return true
}

func (s *SyncState) enterSyncing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enterSyncingLocked()
}

func (s *SyncState) enterSyncingLocked() {
	s.status = StatusSyncing
	s.lastError = ""
	s.stats.TotalRuns++
}

func (s *SyncState) cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSyncMs
}

func (s *SyncState) succeed(cursorMs int64, pushed, pulled int, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusIdle
	s.running = false
	s.retryCount = 0
	s.lastSyncMs = cursorMs
	s.stats.TotalPushed += pushed
	s.stats.TotalPulled += pulled
	s.stats.LastSuccessful = time.Now()
	s.stats.LastRunDuration = took
}

// fail фиксирует ошибку попытки. Если бюджет не исчерпан, увеличивает счетчик
// и возвращает паузу перед следующей попыткой. Иначе сбрасывает счетчик и
// завершает прогон.
func (s *SyncState) fail(err error, maxRetries int) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusFailed
	s.lastError = err.Error()
	s.stats.TotalFailures++
	s.stats.LastFailed = time.Now()

	if s.retryCount < maxRetries {
		delay := BackoffDelay(s.retryCount)
		s.retryCount++
		s.stats.TotalRetries++
		return delay, true
	}

	s.retryCount = 0
	s.running = false
	return 0, false
}

// abort завершает прогон без ретраев, например при отмене контекста
func (s *SyncState) abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusFailed
	s.lastError = err.Error()
	s.retryCount = 0
	s.running = false
}

func (s *SyncState) Snapshot() SyncSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SyncSnapshot{
		Status:            s.status,
		Running:           s.running,
		LastError:         s.lastError,
		RetryCount:        s.retryCount,
		LastSyncTimestamp: s.lastSyncMs,
		Stats:             s.stats,
	}
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffInitial
	b.Multiplier = 2
	b.MaxInterval = backoffMax
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// BackoffDelay пауза перед повтором номер retry (с нуля):
// min(1s * 2^retry, 8s), без случайного разброса.
func BackoffDelay(retry int) time.Duration {
	b := newBackoff()
	delay := b.NextBackOff()
	for i := 0; i < retry; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
