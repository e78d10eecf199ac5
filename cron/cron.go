// Package cron provides scheduled task execution over robfig/cron.
//
// Tasks are named units of work wrapped with recovery and logging
// middleware; a panicking task never takes the scheduler down.
package cron

import (
	"context"

	"github.com/shelfwatch/stocksync/logger"
)

// Task is the interface for a scheduled task
type Task interface {
	// Name returns the unique identifier for this task
	Name() string
	// Run executes the task with the given context
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to the Task interface
type TaskFunc struct {
	// TaskName identifies the task in logs
	TaskName string
	// Exec is the task body
	Exec func(ctx context.Context) error
}

// Name returns the task name
func (t TaskFunc) Name() string { return t.TaskName }

// Run executes the task body
func (t TaskFunc) Run(ctx context.Context) error { return t.Exec(ctx) }

// Cron is the interface for managing scheduled tasks
type Cron interface {
	// Start begins the scheduler
	Start()
	// Close stops the scheduler and waits for running tasks to complete
	Close()
	// AddTask schedules a task according to the cron spec
	// The spec follows the standard cron format with support for seconds
	AddTask(spec string, task Task) error
}

// New creates a cron manager with the given logger and middlewares
// Middlewares are applied to all tasks in the order they are provided
// Built-in middlewares: recoveryMiddleware, loggingMiddleware
func New(log logger.Logger, mws ...Middleware) Cron {
	defaultMws := []Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
	}
	return newManager(log, append(defaultMws, mws...)...)
}
