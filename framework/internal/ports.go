package internal

import (
	"fmt"
	"net"
)

// FreePort binds an ephemeral TCP port on the loopback interface, releases it and returns
// its number. The port is only probably free: another process may grab it before the
// caller binds it.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listen on ephemeral port: %w", err)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %T", l.Addr())
	}
	return addr.Port, nil
}
