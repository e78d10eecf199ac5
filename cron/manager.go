package cron

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shelfwatch/stocksync/logger"
)

// taskJob adapts a wrapped Task to the robfig/cron Job interface
type taskJob struct {
	task Task
	log  logger.Logger
}

// Run executes the task with a fresh background context
func (j *taskJob) Run() {
	if err := j.task.Run(context.Background()); err != nil {
		j.log.Error("scheduled task failed",
			zap.String("task", j.task.Name()),
			zap.Error(err),
		)
	}
}

// manager is the default implementation of the Cron interface
type manager struct {
	cron        *cron.Cron
	middlewares []Middleware
	log         logger.Logger
}

func newManager(log logger.Logger, mws ...Middleware) *manager {
	return &manager{
		cron:        cron.New(cron.WithSeconds()),
		middlewares: mws,
		log:         log,
	}
}

// Start begins the scheduler
func (m *manager) Start() {
	m.cron.Start()
}

// Close stops the scheduler and waits for running tasks to complete
func (m *manager) Close() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

// AddTask schedules a task according to the cron spec (6 fields, seconds
// supported). Example: "0 */15 * * * *" runs at second 0 of every 15th
// minute.
func (m *manager) AddTask(spec string, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	wrapped := applyMiddlewares(task, m.middlewares...)

	if _, err := m.cron.AddJob(spec, &taskJob{task: wrapped, log: m.log}); err != nil {
		return fmt.Errorf("cron: failed to add task %s with spec %q: %w", task.Name(), spec, err)
	}

	m.log.Info("task scheduled",
		zap.String("task", task.Name()),
		zap.String("spec", spec),
	)

	return nil
}
