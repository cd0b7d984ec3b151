// Package fakepeer provides a scripted, in-process full node for
// tests: it speaks just enough of the wire protocol over a net.Conn
// to drive the sync orchestrator and query pipeline without a real
// Handshake node. Grounded on cdnsd's Peer constructor accepting a
// pre-established net.Conn, and on the teacher's internal/fakechain
// naming convention for test doubles.
package fakepeer

import (
	"net"
	"time"

	"github.com/hnsresolver/hns-spv/pkg/wire"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// Script is a scripted full node's fixed responses, consumed by Run in
// order as getheaders/getproof requests arrive.
type Script struct {
	Magic         uint32
	Height        uint32
	Services      uint64
	HeaderBatches [][]*payload.BlockHeader // consumed in order, one per getheaders
	NotFoundAfter int                      // -1 disables; else every getheaders from this batch index on gets notfound
	Proof         *payload.Proof
	ProofNotFound bool
}

// Run plays the scripted full node on conn until a read or write
// fails, then closes conn.
func Run(conn net.Conn, script Script) {
	defer conn.Close()

	version, err := readVersion(conn, script.Magic)
	if err != nil {
		return
	}
	_ = version

	remoteVersion := &payload.Version{
		Version:  4,
		Services: script.Services,
		Time:     uint64(time.Now().Unix()),
		Height:   script.Height,
	}
	if err := wire.WriteFrame(conn, script.Magic, wire.CmdVersion, remoteVersion.Encode()); err != nil {
		return
	}
	if err := wire.WriteFrame(conn, script.Magic, wire.CmdVerack, nil); err != nil {
		return
	}
	// Consume the caller's verack.
	if _, err := wire.ReadFrame(conn, script.Magic); err != nil {
		return
	}

	batchIndex := 0
	for {
		frame, err := wire.ReadFrame(conn, script.Magic)
		if err != nil {
			return
		}
		switch frame.Command {
		case wire.CmdSendHeaders, wire.CmdGetAddr:
			continue
		case wire.CmdPing:
			ping, err := payload.DecodePing(frame.Payload)
			if err != nil {
				return
			}
			if err := wire.WriteFrame(conn, script.Magic, wire.CmdPong, (&payload.Pong{Nonce: ping.Nonce}).Encode()); err != nil {
				return
			}
		case wire.CmdGetHeaders:
			if script.NotFoundAfter >= 0 && batchIndex >= script.NotFoundAfter {
				if err := wire.WriteFrame(conn, script.Magic, wire.CmdNotFound, (&payload.NotFound{}).Encode()); err != nil {
					return
				}
				continue
			}
			if batchIndex >= len(script.HeaderBatches) {
				if err := wire.WriteFrame(conn, script.Magic, wire.CmdNotFound, (&payload.NotFound{}).Encode()); err != nil {
					return
				}
				continue
			}
			batch := &payload.Headers{Items: script.HeaderBatches[batchIndex]}
			batchIndex++
			if err := wire.WriteFrame(conn, script.Magic, wire.CmdHeaders, batch.Encode()); err != nil {
				return
			}
		case wire.CmdGetProof:
			if script.ProofNotFound {
				if err := wire.WriteFrame(conn, script.Magic, wire.CmdNotFound, (&payload.NotFound{}).Encode()); err != nil {
					return
				}
				continue
			}
			proof := script.Proof
			if proof == nil {
				proof = &payload.Proof{}
			}
			if err := wire.WriteFrame(conn, script.Magic, wire.CmdProof, proof.Encode()); err != nil {
				return
			}
		}
	}
}

func readVersion(conn net.Conn, magic uint32) (*payload.Version, error) {
	frame, err := wire.ReadFrame(conn, magic)
	if err != nil {
		return nil, err
	}
	return payload.DecodeVersion(frame.Payload)
}
