package chain

import "errors"

// ErrEmptyChain is returned by TipHash/TipHeight/CurrentNameRoot
// before the chain has been initialized from its checkpoint.
var ErrEmptyChain = errors.New("chain: not initialized")

// AppendResult classifies the outcome of TryAppend (spec §4.E).
type AppendResult int

const (
	// Accepted means the header chained to the current tip and was
	// stored; the tip advances.
	Accepted AppendResult = iota
	// Duplicate means the header's hash is already indexed; not an
	// error, the peer is not punished (spec §7).
	Duplicate
	// Disconnected means the header does not chain to the current
	// tip and was not stored.
	Disconnected
)

func (r AppendResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
