package types

import (
	"context"
	"errors"
)

// ErrProcessGone is returned when terminating a process that has already exited.
var ErrProcessGone = errors.New("process no longer exists")

// Process is a node process owned by a supervisor.
type Process interface {
	// PID returns the operating system process id.
	PID() int
	// Done is closed once the process has exited and its output has been drained.
	Done() <-chan struct{}
	// Terminate asks the process to exit and blocks until it has.
	Terminate(ctx context.Context) error
}

// Launcher spawns a local node for the given network. A port of 0 lets the launcher pick one.
type Launcher interface {
	Spawn(ctx context.Context, network Network, port int) (Provider, Process, error)
}
