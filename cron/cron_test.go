package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shelfwatch/stocksync/logger"
)

func TestAddTask_NilTask(t *testing.T) {
	m := New(logger.NewNop())
	if err := m.AddTask("* * * * * *", nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("expected ErrNilTask, got %v", err)
	}
}

func TestAddTask_InvalidSpec(t *testing.T) {
	m := New(logger.NewNop())
	task := TaskFunc{TaskName: "noop", Exec: func(ctx context.Context) error { return nil }}
	if err := m.AddTask("not a spec", task); err == nil {
		t.Error("expected error for invalid spec")
	}
}

func TestManager_RunsScheduledTask(t *testing.T) {
	m := New(logger.NewNop())
	var runs atomic.Int32
	task := TaskFunc{TaskName: "tick", Exec: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}}
	if err := m.AddTask("* * * * * *", task); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	m.Start()
	defer m.Close()

	deadline := time.After(3 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("task never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestRecoveryMiddleware_ConvertsPanic(t *testing.T) {
	task := TaskFunc{TaskName: "boom", Exec: func(ctx context.Context) error {
		panic("deliberate")
	}}
	wrapped := applyMiddlewares(task, recoveryMiddleware(logger.NewNop()))
	if err := wrapped.Run(context.Background()); err == nil {
		t.Error("expected panic to surface as error")
	}
}

func TestApplyMiddlewares_Order(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware {
		return func(next Task) Task {
			return TaskFunc{TaskName: next.Name(), Exec: func(ctx context.Context) error {
				order = append(order, tag)
				return next.Run(ctx)
			}}
		}
	}
	task := TaskFunc{TaskName: "t", Exec: func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	}}
	_ = applyMiddlewares(task, mw("outer"), mw("inner")).Run(context.Background())
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "task" {
		t.Errorf("unexpected order: %v", order)
	}
}
