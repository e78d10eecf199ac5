package cron

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/logger"
)

// Middleware is a function that wraps a Task with additional behavior
type Middleware func(Task) Task

// applyMiddlewares applies multiple middlewares to a task
// Middlewares are applied from last to first, ensuring execution order is
// intuitive: applyMiddlewares(task, mw1, mw2) results in mw1(mw2(task))
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// recoveryMiddleware converts a task panic into an error so the scheduler
// keeps running
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc{
			TaskName: next.Name(),
			Exec: func(ctx context.Context) (err error) {
				defer func() {
					if r := recover(); r != nil {
						log.Error("task panicked",
							zap.String("task", next.Name()),
							zap.Any("panic", r),
							zap.String("stack", string(debug.Stack())),
						)
						err = fmt.Errorf("panic recovered: %v", r)
					}
				}()
				return next.Run(ctx)
			},
		}
	}
}

// loggingMiddleware logs task start, completion and duration
func loggingMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc{
			TaskName: next.Name(),
			Exec: func(ctx context.Context) error {
				start := time.Now()
				log.Debug("task started", zap.String("task", next.Name()))

				err := next.Run(ctx)

				if err != nil {
					log.Error("task failed",
						zap.String("task", next.Name()),
						zap.Duration("duration", time.Since(start)),
						zap.Error(err),
					)
				} else {
					log.Info("task completed",
						zap.String("task", next.Name()),
						zap.Duration("duration", time.Since(start)),
					)
				}
				return err
			},
		}
	}
}
