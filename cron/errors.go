package cron

import "fmt"

var (
	// ErrNilTask is returned when scheduling a nil task
	ErrNilTask = fmt.Errorf("cron: nil task")
)
