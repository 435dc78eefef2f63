package supervisor

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when the supervisor left the idle state
	// and Stop has not been called since.
	ErrAlreadyStarted = errors.New("ethereum node already started")
	// ErrConnectTimeout is returned when no endpoint became usable before the deadline.
	ErrConnectTimeout = errors.New("cannot connect to geth")
	// ErrWrongChain is returned when the endpoint serves a different network.
	ErrWrongChain = errors.New("wrong ethereum chain")

	// errAttemptTimedOut marks an attempt that hit its deadline and may be retried.
	errAttemptTimedOut = errors.New("connection attempt timed out")
	// errNoGenesis is returned while the node does not serve block 0 yet.
	errNoGenesis = errors.New("genesis block not available")
	// errMissingEthAPI is returned while the endpoint does not expose the eth namespace.
	errMissingEthAPI = errors.New("eth api not available")
)
