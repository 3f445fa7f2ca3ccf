package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrPullInProgress is returned when a pull is requested while another is running
	ErrPullInProgress = errors.New("order pull already in progress")

	// ErrInvalidTimeRange is returned when a window's start is not before its end
	ErrInvalidTimeRange = errors.New("invalid order pull time range")
)
