package syncmgr

import (
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/chain"
	"github.com/hnsresolver/hns-spv/pkg/peer"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// receiveHeadersResult distinguishes "peer knows nothing of our
// locator" (notfound) from "peer only has old headers" (received but
// all rejected), per spec §4.F "receiveHeaders sub-loop".
type receiveHeadersResult struct {
	hasValidHeaders    bool
	receivedAnyHeaders bool
}

// receiveHeaders sends req and classifies the reply, following up
// with fresh getheaders requests as long as the peer keeps answering
// with full 2000-header batches (spec §4.F).
func (m *Manager) receiveHeaders(p *peer.Peer, req *payload.GetHeaders, log *zap.Logger) (receiveHeadersResult, error) {
	for {
		res, err := p.GetHeaders(req)
		if err != nil {
			return receiveHeadersResult{}, err
		}
		if res.NotFound {
			return receiveHeadersResult{}, nil
		}

		accepted, lastHash, err := m.applyHeaderBatch(res.Headers, log)
		if err != nil {
			return receiveHeadersResult{}, err
		}

		switch {
		case len(res.Headers.Items) == payload.MaxHeadersPerBatch:
			req = &payload.GetHeaders{Locator: [][32]byte{lastHash}}
			continue
		case accepted == 0 && len(res.Headers.Items) > 0:
			req = &payload.GetHeaders{Locator: [][32]byte{lastHash}}
			return m.receiveHeadersOnce(p, req, log)
		default:
			return receiveHeadersResult{hasValidHeaders: accepted > 0, receivedAnyHeaders: len(res.Headers.Items) > 0}, nil
		}
	}
}

// receiveHeadersOnce performs exactly one follow-up round after a
// batch of entirely duplicate/old headers, per spec §4.F ("re-issue
// getheaders with the last header's hash once, then continue").
func (m *Manager) receiveHeadersOnce(p *peer.Peer, req *payload.GetHeaders, log *zap.Logger) (receiveHeadersResult, error) {
	res, err := p.GetHeaders(req)
	if err != nil {
		return receiveHeadersResult{}, err
	}
	if res.NotFound {
		return receiveHeadersResult{}, nil
	}
	accepted, _, err := m.applyHeaderBatch(res.Headers, log)
	if err != nil {
		return receiveHeadersResult{}, err
	}
	return receiveHeadersResult{hasValidHeaders: accepted > 0, receivedAnyHeaders: len(res.Headers.Items) > 0}, nil
}

// applyHeaderBatch hashes every header in the batch (logically
// parallel, spec §5/§9 "parallel hash computation") and feeds
// (header, hash) pairs to the chain in order, the chain being a
// single writer regardless of how the hashing fanned out.
func (m *Manager) applyHeaderBatch(batch *payload.Headers, log *zap.Logger) (accepted int, lastHash [32]byte, err error) {
	hashes := hashHeadersParallel(batch.Items)
	for i, hdr := range batch.Items {
		lastHash = hashes[i]
		result, err := m.chain.TryAppend(hdr)
		if err != nil {
			return accepted, lastHash, err
		}
		if result == chain.Accepted {
			accepted++
		}
	}
	return accepted, lastHash, nil
}

// hashHeadersParallel computes every header's hash concurrently; CPU-
// bound work that dominates batches of up to 2000 headers (spec §5,
// §9 "fan out per-header hashing across CPU workers and join before
// feeding the chain").
func hashHeadersParallel(items []*payload.BlockHeader) [][32]byte {
	hashes := make([][32]byte, len(items))
	if len(items) == 0 {
		return hashes
	}

	type job struct {
		idx int
		hdr *payload.BlockHeader
	}
	jobs := make(chan job, len(items))
	for i, hdr := range items {
		jobs <- job{idx: i, hdr: hdr}
	}
	close(jobs)

	workers := len(items)
	if workers > 16 {
		workers = 16
	}
	done := make(chan struct{}, workers)
	for w := 0; w < workers; w++ {
		go func() {
			for j := range jobs {
				hashes[j.idx] = j.hdr.Hash()
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	return hashes
}
