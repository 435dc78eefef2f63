package geth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	stderrPrefix = "GETH: "
	stdoutPrefix = "GETHO: "
)

// lockedWriter serialises writes from the two stream copiers into the shared log file.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// copyStream copies r line by line to out with prefix, and unprefixed to log. The stream is
// drained until EOF even if a destination fails, so the child never blocks on a full pipe.
// A failing destination is skipped from then on without affecting the other one; the first
// write error is returned.
func copyStream(r io.Reader, out, log io.Writer, prefix string) error {
	br := bufio.NewReader(r)
	var logErr, outErr error
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if logErr == nil {
				if _, werr := log.Write(line); werr != nil {
					logErr = fmt.Errorf("write log: %w", werr)
				}
			}
			if outErr == nil {
				if _, werr := out.Write(append([]byte(prefix), line...)); werr != nil {
					outErr = fmt.Errorf("write %q stream: %w", prefix, werr)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if logErr != nil {
					return logErr
				}
				return outErr
			}
			return fmt.Errorf("read %q stream: %w", prefix, err)
		}
	}
}
