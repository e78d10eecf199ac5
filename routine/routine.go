// Package routine provides safe goroutine execution with panic recovery.
//
// It prevents a panicking background goroutine from crashing the entire
// application by wrapping execution with recovery logic that logs the panic
// and its stack.
package routine

import (
	"context"
	"runtime/debug"

	"github.com/shelfwatch/stocksync/logger"
	"go.uber.org/zap"
)

// Go executes a function in a new goroutine with panic recovery
func Go(log logger.Logger, fn func()) {
	GoNamed(log, "", fn)
}

// GoNamed executes a named function in a new goroutine with panic recovery
// The name is used for logging purposes
func GoNamed(log logger.Logger, name string, fn func()) {
	go func() {
		defer recoverWithLog(log, name)
		fn()
	}()
}

// GoNamedWithContext executes a named function with context in a new
// goroutine with panic recovery
func GoNamedWithContext(ctx context.Context, log logger.Logger, name string, fn func(ctx context.Context)) {
	go func() {
		defer recoverWithLog(log, name)
		fn(ctx)
	}()
}

// recoverWithLog handles panic recovery and logging
func recoverWithLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		fields := []zap.Field{
			zap.Any("panic", rec),
			zap.String("stack", string(debug.Stack())),
		}
		if name != "" {
			fields = append([]zap.Field{zap.String("routine", name)}, fields...)
		}
		log.Error("goroutine panicked", fields...)
	}
}
