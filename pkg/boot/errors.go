package boot

import (
	"errors"
	"fmt"
)

var (
	// ErrEntrypointNotFound means no root holds any entry candidate.
	ErrEntrypointNotFound = errors.New("entrypoint not found")
	// ErrInvalidLifecycleState means a Coordinator method was called out of
	// order.
	ErrInvalidLifecycleState = errors.New("invalid lifecycle state")
	// ErrLaunchFailure is matched by every *LaunchError.
	ErrLaunchFailure = errors.New("launch failure")
	// ErrUnsupportedEnvironment means the requested environment cannot run
	// the game.
	ErrUnsupportedEnvironment = errors.New("unsupported environment")
)

// LaunchError wraps what went wrong while running the entry routine.
type LaunchError struct {
	Entrypoint string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Entrypoint, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool {
	return target == ErrLaunchFailure
}

func lifecycleError(op string, from, want State) error {
	return fmt.Errorf("%w: %s in state %s, want %s", ErrInvalidLifecycleState, op, from, want)
}
