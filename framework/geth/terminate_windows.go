//go:build windows

package geth

import "os"

// windows has no SIGTERM; geth is killed outright.
func terminate(p *os.Process) error {
	return p.Kill()
}
