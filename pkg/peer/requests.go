package peer

import (
	"errors"
	"fmt"
	"time"

	"github.com/hnsresolver/hns-spv/pkg/wire"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// SendSendHeaders sends the empty sendheaders announcement.
func (p *Peer) SendSendHeaders() error {
	return p.sendFrame(wire.CmdSendHeaders, nil)
}

// SendGetAddr sends the empty getaddr request.
func (p *Peer) SendGetAddr() error {
	return p.sendFrame(wire.CmdGetAddr, nil)
}

// HeadersResult is the outcome of a single GetHeaders round trip:
// exactly one of Headers or NotFound is populated.
type HeadersResult struct {
	Headers  *payload.Headers
	NotFound bool
}

// GetHeaders sends a getheaders request and waits for either a
// headers batch or a notfound reply, whichever the peer sends first.
// Other traffic interleaved on the socket (ping/pong/addr/inv) is
// already consumed by recvLoop and never reaches this wait.
func (p *Peer) GetHeaders(g *payload.GetHeaders) (HeadersResult, error) {
	if err := p.sendFrame(wire.CmdGetHeaders, g.Encode()); err != nil {
		return HeadersResult{}, fmt.Errorf("peer: send getheaders: %w", err)
	}

	select {
	case msg := <-p.headersCh:
		headers, err := payload.DecodeHeaders(msg.payload)
		if err != nil {
			return HeadersResult{}, fmt.Errorf("peer: decode headers: %w", err)
		}
		return HeadersResult{Headers: headers}, nil
	case <-p.notFoundCh:
		return HeadersResult{NotFound: true}, nil
	case err := <-p.errorCh:
		return HeadersResult{}, fmt.Errorf("peer: getheaders: %w", err)
	case <-p.doneCh:
		return HeadersResult{}, errors.New("peer: connection closed during getheaders")
	case <-time.After(p.opts.ReadTimeout):
		return HeadersResult{}, errors.New("peer: getheaders timed out")
	}
}

// GetAddrPeers sends getaddr and waits for the addr reply.
func (p *Peer) GetAddrPeers() (*payload.Addr, error) {
	if err := p.SendGetAddr(); err != nil {
		return nil, fmt.Errorf("peer: send getaddr: %w", err)
	}
	select {
	case msg := <-p.addrCh:
		addr, err := payload.DecodeAddr(msg.payload)
		if err != nil {
			return nil, fmt.Errorf("peer: decode addr: %w", err)
		}
		return addr, nil
	case err := <-p.errorCh:
		return nil, fmt.Errorf("peer: getaddr: %w", err)
	case <-p.doneCh:
		return nil, errors.New("peer: connection closed during getaddr")
	case <-time.After(p.opts.ReadTimeout):
		return nil, errors.New("peer: getaddr timed out")
	}
}

// ProofResult is the outcome of a single GetProof round trip.
type ProofResult struct {
	Proof    *payload.Proof
	NotFound bool
}

// GetProof sends a getproof request (root-first, spec §4.D) and waits
// for either a proof or a notfound reply.
func (p *Peer) GetProof(root, nameHash [32]byte) (ProofResult, error) {
	req := &payload.GetProof{Root: root, NameHash: nameHash}
	if err := p.sendFrame(wire.CmdGetProof, req.Encode()); err != nil {
		return ProofResult{}, fmt.Errorf("peer: send getproof: %w", err)
	}

	select {
	case msg := <-p.proofCh:
		proof, err := payload.DecodeProof(msg.payload)
		if err != nil {
			return ProofResult{}, fmt.Errorf("peer: decode proof: %w", err)
		}
		return ProofResult{Proof: proof}, nil
	case <-p.notFoundCh:
		return ProofResult{NotFound: true}, nil
	case err := <-p.errorCh:
		return ProofResult{}, fmt.Errorf("peer: getproof: %w", err)
	case <-p.doneCh:
		return ProofResult{}, errors.New("peer: connection closed during getproof")
	case <-time.After(p.opts.ReadTimeout):
		return ProofResult{}, errors.New("peer: getproof timed out")
	}
}

// DrainEarly reads up to maxMessages inbound addr/headers/notfound
// replies with a short per-message deadline, discarding them. Spec
// §4.G uses this to clear queued traffic (addr/inv/headers) after the
// post-handshake sendheaders/getaddr/getheaders flourish, before
// issuing the actual getproof.
func (p *Peer) DrainEarly(maxMessages int, perMessage time.Duration) {
	for i := 0; i < maxMessages; i++ {
		select {
		case <-p.addrCh:
		case <-p.headersCh:
		case <-p.notFoundCh:
		case <-p.proofCh:
		case <-p.doneCh:
			return
		case <-time.After(perMessage):
			return
		}
	}
}

// PostHandshakeGreeting sends the REQUIRED post-handshake ordering:
// sendheaders, getaddr, then the caller's first getheaders (spec
// §4.D "Post-handshake order").
func (p *Peer) PostHandshakeGreeting(first *payload.GetHeaders) (HeadersResult, error) {
	if err := p.SendSendHeaders(); err != nil {
		return HeadersResult{}, fmt.Errorf("peer: send sendheaders: %w", err)
	}
	if err := p.SendGetAddr(); err != nil {
		return HeadersResult{}, fmt.Errorf("peer: send getaddr: %w", err)
	}
	return p.GetHeaders(first)
}
