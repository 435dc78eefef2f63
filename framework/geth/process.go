package geth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/celestiaorg/ethnode/framework/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Process is a running geth child process. Its stdout and stderr are drained by two
// goroutines for the lifetime of the process.
type Process struct {
	logger  *zap.Logger
	cmd     *exec.Cmd
	logFile *os.File
	copies  errgroup.Group
	started time.Time

	done    chan struct{}
	exitErr error
}

var _ types.Process = (*Process)(nil)

// startProcess launches bin and wires its output streams. stdin is left nil so it reads
// from the null device.
func startProcess(logger *zap.Logger, bin string, args []string, logPath string, stdout, stderr io.Writer) (*Process, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open node log: %w", err)
	}

	cmd := exec.Command(bin, args...)
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}

	p := &Process{
		logger:  logger.With(zap.Int("pid", cmd.Process.Pid)),
		cmd:     cmd,
		logFile: logFile,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	logw := &lockedWriter{w: logFile}
	p.copies.Go(func() error { return copyStream(errPipe, stderr, logw, stderrPrefix) })
	p.copies.Go(func() error { return copyStream(outPipe, stdout, logw, stdoutPrefix) })

	go p.wait()
	return p, nil
}

// wait drains both streams before reaping the process, as exec.Cmd requires.
func (p *Process) wait() {
	if err := p.copies.Wait(); err != nil {
		p.logger.Warn("node output copy failed", zap.Error(err))
	}
	err := p.cmd.Wait()
	if cerr := p.logFile.Close(); cerr != nil {
		p.logger.Warn("closing node log failed", zap.Error(cerr))
	}

	if err != nil {
		p.logger.Info("node process exited", zap.Error(err), zap.Duration("uptime", time.Since(p.started)))
	} else {
		p.logger.Info("node process exited", zap.Duration("uptime", time.Since(p.started)))
	}
	p.exitErr = err
	close(p.done)
}

// PID returns the process id.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// Done is closed once the process exited and both output streams were drained.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitErr returns the error reported by the process once Done is closed.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.exitErr
	default:
		return nil
	}
}

// Terminate requests a graceful shutdown and blocks until the process exits. If ctx expires
// first the process is killed. Terminating a process that already exited returns
// types.ErrProcessGone.
func (p *Process) Terminate(ctx context.Context) error {
	select {
	case <-p.done:
		return fmt.Errorf("pid %d: %w", p.PID(), types.ErrProcessGone)
	default:
	}

	if err := terminate(p.cmd.Process); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-p.done
			return fmt.Errorf("pid %d: %w", p.PID(), types.ErrProcessGone)
		}
		return fmt.Errorf("signal pid %d: %w", p.PID(), err)
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("node did not exit in time, killing")
		_ = p.cmd.Process.Kill()
		<-p.done
		return fmt.Errorf("graceful shutdown of pid %d: %w", p.PID(), ctx.Err())
	}
}
