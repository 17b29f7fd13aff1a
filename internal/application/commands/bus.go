package commands

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/errors"
)

// Handler handles a specific command type
type Handler interface {
	Handle(ctx context.Context, cmd Command) error
}

// HandlerFunc is an adapter to allow functions to be used as handlers
type HandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements Handler
func (f HandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// Middleware wraps a handler
type Middleware func(next Handler) Handler

// Bus dispatches commands to their handlers
type Bus struct {
	handlers    map[reflect.Type]Handler
	middlewares []Middleware
	mu          sync.RWMutex
}

// NewBus creates a new command bus. Middlewares run outermost first.
func NewBus(middlewares ...Middleware) *Bus {
	return &Bus{
		handlers:    make(map[reflect.Type]Handler),
		middlewares: middlewares,
	}
}

// Register registers a handler for a command type
func (b *Bus) Register(cmdType Command, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}

	for i := len(b.middlewares) - 1; i >= 0; i-- {
		handler = b.middlewares[i](handler)
	}
	b.handlers[t] = handler
	return nil
}

// Handle registers a typed function for command type C.
func Handle[C Command](b *Bus, fn func(ctx context.Context, cmd C) error) error {
	var zero C
	return b.Register(zero, HandlerFunc(func(ctx context.Context, cmd Command) error {
		return fn(ctx, cmd.(C))
	}))
}

// Send validates cmd and dispatches it. Errors from the handler are
// returned unchanged so callers can inspect their AppError type.
func (b *Bus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return apperrors.NewInternalError(apperrors.CodeHandlerNotFound,
			fmt.Sprintf("no handler registered for command type %T", cmd))
	}
	return handler.Handle(ctx, cmd)
}

// LoggingMiddleware logs command execution
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, cmd Command) error {
			name := Name(cmd)
			start := time.Now()

			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Debug("Command failed",
					zap.String("command", name),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err))
			} else {
				logger.Debug("Command succeeded",
					zap.String("command", name),
					zap.Duration("duration", time.Since(start)))
			}
			return err
		})
	}
}

// RecoveryMiddleware turns a panicking handler into an INTERNAL error.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, cmd Command) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Command handler panicked",
						zap.String("command", Name(cmd)),
						zap.Any("panic", r))
					err = apperrors.NewInternalError(apperrors.CodeHandlerPanic, fmt.Sprintf("%s failed unexpectedly", Name(cmd)))
				}
			}()
			return next.Handle(ctx, cmd)
		})
	}
}

func typeName(cmd Command) string {
	return reflect.TypeOf(cmd).String()
}
