package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a stopped scheduler is asked to run something
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrTaskNotFound is returned for an unknown task name
	ErrTaskNotFound = errors.New("task not found")

	// ErrSweepInProgress is returned when another replica holds the task lock
	ErrSweepInProgress = errors.New("sweep already in progress")
)
