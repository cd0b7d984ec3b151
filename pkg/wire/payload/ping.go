package payload

import (
	"errors"

	"github.com/hnsresolver/hns-spv/pkg/wire"
)

// PingSize is the wire size of a Ping or Pong payload: an 8-byte
// nonce, echoed back unchanged (spec §4.C).
const PingSize = 8

// Ping carries a liveness nonce; the engine replies with a Pong
// carrying the same nonce.
type Ping struct {
	Nonce uint64
}

// Encode serializes the nonce as 8 little-endian bytes.
func (p *Ping) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteU64LE(p.Nonce)
	return bw.Bytes()
}

// DecodePing parses a Ping payload.
func DecodePing(raw []byte) (*Ping, error) {
	if len(raw) != PingSize {
		return nil, errors.New("payload: ping must be exactly 8 bytes")
	}
	br := wire.NewBinReaderFromBuf(raw)
	p := &Ping{Nonce: br.ReadU64LE()}
	if br.Err != nil {
		return nil, br.Err
	}
	return p, nil
}

// Pong echoes a Ping's nonce back to the sender.
type Pong struct {
	Nonce uint64
}

// Encode serializes the nonce as 8 little-endian bytes.
func (p *Pong) Encode() []byte {
	bw := wire.NewBufBinWriter()
	bw.WriteU64LE(p.Nonce)
	return bw.Bytes()
}

// DecodePong parses a Pong payload.
func DecodePong(raw []byte) (*Pong, error) {
	if len(raw) != PingSize {
		return nil, errors.New("payload: pong must be exactly 8 bytes")
	}
	br := wire.NewBinReaderFromBuf(raw)
	p := &Pong{Nonce: br.ReadU64LE()}
	if br.Err != nil {
		return nil, br.Err
	}
	return p, nil
}
