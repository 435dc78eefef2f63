package supervisor

import "fmt"

// Mode selects how the supervisor obtains an RPC endpoint.
type Mode int

const (
	// ModeRemote connects to remote RPC endpoints from the candidate list.
	ModeRemote Mode = iota
	// ModeLocal spawns a local geth node.
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "connect-remote"
	case ModeLocal:
		return "spawn-local"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the position of the supervisor in its connection state machine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingGenesis
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingGenesis:
		return "awaiting-genesis"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
