package wire

import (
	"crypto/sha3"

	"golang.org/x/crypto/blake2b"
)

// HeaderHash computes the 32-byte header digest used to chain headers
// together and to key the hash index: sha3-256(blake2b-256(header)).
// This pins down the spec's "domain-specific digest over the
// serialized header" using Handshake's actual primitives, composed
// as a double hash the same shape as the teacher's
// sumSHA256(sumSHA256(payload)) in pkg/network/message_test.go.
func HeaderHash(raw []byte) [32]byte {
	mid := blake2b.Sum256(raw)
	return sha3.Sum256(mid[:])
}

// NameHash computes the 32-byte name-tree key for a Handshake name,
// grounded on the retrieval pack's own cdnsd GetProof, which hashes
// the query name with crypto/sha3 before building the getproof
// payload.
func NameHash(name string) [32]byte {
	return sha3.Sum256([]byte(name))
}
