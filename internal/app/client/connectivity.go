package client

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

const healthCheckTimeout = 5 * time.Second

// ConnectivityMonitor опрашивает сервер и сообщает о переходах в онлайн
type ConnectivityMonitor struct {
	checker  HealthChecker
	interval time.Duration
	log      *slog.Logger
	online   atomic.Bool
	onOnline func(ctx context.Context, initial bool)
}

func NewConnectivityMonitor(checker HealthChecker, interval time.Duration, log *slog.Logger) *ConnectivityMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ConnectivityMonitor{
		checker:  checker,
		interval: interval,
		log:      log.With("component", "connectivity"),
	}
}

// OnOnline задает обработчик перехода в онлайн. initial true для первой
// проверки при запуске.
func (c *ConnectivityMonitor) OnOnline(fn func(ctx context.Context, initial bool)) {
	c.onOnline = fn
}

// Online последнее известное состояние
func (c *ConnectivityMonitor) Online() bool {
	return c.online.Load()
}

// Check проверяет сервер один раз и обновляет состояние. Возвращает true на
// переходе из офлайна в онлайн.
func (c *ConnectivityMonitor) Check(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	err := c.checker.HealthCheck(checkCtx)
	now := err == nil
	was := c.online.Swap(now)

	switch {
	case now && !was:
		c.log.Info("соединение с сервером восстановлено")
		return true
	case !now && was:
		c.log.Warn("соединение с сервером потеряно", "error", err)
	}
	return false
}

// Run выполняет первую проверку и опрашивает сервер до отмены контекста
func (c *ConnectivityMonitor) Run(ctx context.Context) error {
	if c.Check(ctx) {
		c.notify(ctx, true)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if c.Check(ctx) {
				c.notify(ctx, false)
			}
		}
	}
}

func (c *ConnectivityMonitor) notify(ctx context.Context, initial bool) {
	if c.onOnline != nil {
		c.onOnline(ctx, initial)
	}
}
