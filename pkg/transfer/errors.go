package transfer

import "errors"

// Error types for transfer orchestration
var (
	// ErrJobNotFound is returned when no collection holds the requested job
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidStateTransition is returned when an operation targets a job in the wrong state
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a persisted state cannot be decoded
	ErrInvalidState = errors.New("invalid transfer state")

	// ErrInvalidConfiguration is returned when configuration validation fails
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrManagerClosed is returned by operations on a closed manager
	ErrManagerClosed = errors.New("transfer manager closed")

	// ErrPaused is returned by the data plane when a job stops because it was paused
	ErrPaused = errors.New("transfer paused")
)
