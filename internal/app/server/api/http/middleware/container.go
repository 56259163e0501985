package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// Func сигнатура huma middleware
type Func = func(ctx huma.Context, next func(huma.Context))

// Container наборы middleware для публичных и защищенных операций.
// Логгер всегда идет первым, чтобы в журнал попадали и отказы авторизации.
type Container struct {
	logger Func
	auth   Func
}

func NewContainer(logger, auth Func) *Container {
	return &Container{
		logger: logger,
		auth:   auth,
	}
}

// Public middleware операций без аутентификации
func (c *Container) Public() huma.Middlewares {
	return c.build(false)
}

// Protected middleware операций с bearer токеном
func (c *Container) Protected() huma.Middlewares {
	return c.build(true)
}

func (c *Container) build(protected bool) huma.Middlewares {
	result := make(huma.Middlewares, 0, 2)
	if c.logger != nil {
		result = append(result, c.logger)
	}
	if protected && c.auth != nil {
		result = append(result, c.auth)
	}
	return result
}
