package query

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/internal/fakepeer"
	"github.com/hnsresolver/hns-spv/pkg/addrmgr"
	"github.com/hnsresolver/hns-spv/pkg/chaincfg"
	"github.com/hnsresolver/hns-spv/pkg/discovery"
	"github.com/hnsresolver/hns-spv/pkg/peer"
	"github.com/hnsresolver/hns-spv/pkg/storage"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

func newEmptyAddrmgr(t *testing.T) *addrmgr.Manager {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "addrmgr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	mgr, err := addrmgr.New(store, zap.NewNop())
	require.NoError(t, err)
	return mgr
}

const testMagic uint32 = 0xfeedface

func testConfig() Config {
	return Config{
		PeerOptions: peer.Options{
			Magic:             testMagic,
			ProtocolVersion:   4,
			Agent:             "/hns-spv-test/",
			Height:            0,
			ConnectTimeout:    time.Second,
			ReadTimeout:       2 * time.Second,
			HandshakeTimeout:  2 * time.Second,
			HandshakeAttempts: 20,
		},
		DiscoveryBudget: time.Second,
	}
}

// fakeCandidates is a CandidateSource backed by a plain slice, so
// tests don't need a real addrmgr.Manager for the fast path.
type fakeCandidates []string

func (f fakeCandidates) VerifiedPeers() []string { return f }

func startFakePeer(t *testing.T, script fakepeer.Script) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go fakepeer.Run(conn, script)
		}
	}()
	return ln.Addr().String()
}

func TestQuerySucceedsAgainstEligiblePeer(t *testing.T) {
	addr := startFakePeer(t, fakepeer.Script{
		Magic:         testMagic,
		Height:        chaincfg.CheckpointHeight,
		Services:      payload.ServiceNetwork,
		NotFoundAfter: 0,
		Proof:         &payload.Proof{Records: [][]byte{[]byte("a"), []byte("b")}, ProofBlob: make([]byte, 128)},
	})

	mgr := New(testConfig(), nil, nil, zap.NewNop())
	mgr.addrs = fakeCandidates{addr}

	result := mgr.Query(context.Background(), [32]byte{1}, [32]byte{2}, chaincfg.CheckpointHeight, nil)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Len(t, result.Records, 2)
	assert.Len(t, result.ProofBlob, 128)
}

func TestQueryRejectsSPVOnlyPeers(t *testing.T) {
	addr := startFakePeer(t, fakepeer.Script{
		Magic:    testMagic,
		Height:   chaincfg.CheckpointHeight,
		Services: 0, // no NETWORK bit
	})

	mgr := New(testConfig(), nil, nil, zap.NewNop())
	mgr.addrs = fakeCandidates{addr}

	result := mgr.Query(context.Background(), [32]byte{1}, [32]byte{2}, chaincfg.CheckpointHeight, nil)
	assert.Equal(t, OutcomeError, result.Outcome)
}

func TestQueryReturnsErrorWhenNoCandidates(t *testing.T) {
	addrs := newEmptyAddrmgr(t)
	finder := discovery.New(nil, chaincfg.DefaultP2PPort, addrs, zap.NewNop())

	mgr := New(testConfig(), addrs, finder, zap.NewNop())
	result := mgr.Query(context.Background(), [32]byte{1}, [32]byte{2}, 0, nil)
	assert.Equal(t, OutcomeError, result.Outcome)
}

func TestQueryNotFoundRequiresThreeVotes(t *testing.T) {
	var addrsList fakeCandidates
	for i := 0; i < 2; i++ {
		addrsList = append(addrsList, startFakePeer(t, fakepeer.Script{
			Magic:         testMagic,
			Height:        chaincfg.CheckpointHeight,
			Services:      payload.ServiceNetwork,
			NotFoundAfter: 0,
			ProofNotFound: true,
		}))
	}

	mgr := New(testConfig(), nil, nil, zap.NewNop())
	mgr.addrs = addrsList

	result := mgr.Query(context.Background(), [32]byte{1}, [32]byte{2}, chaincfg.CheckpointHeight, nil)
	assert.Equal(t, OutcomeError, result.Outcome)

	addrsList = append(addrsList, startFakePeer(t, fakepeer.Script{
		Magic:         testMagic,
		Height:        chaincfg.CheckpointHeight,
		Services:      payload.ServiceNetwork,
		NotFoundAfter: 0,
		ProofNotFound: true,
	}))
	mgr.addrs = addrsList

	result = mgr.Query(context.Background(), [32]byte{1}, [32]byte{2}, chaincfg.CheckpointHeight, nil)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
}

func TestEligibleRejectsHeightOutsideTolerance(t *testing.T) {
	hs := peer.HandshakeResult{Success: true, PeerServices: payload.ServiceNetwork, PeerHeight: 100}
	assert.True(t, eligible(hs, 101, nil))
	assert.False(t, eligible(hs, 200, nil))
}

func TestEligibleRejectsWhenChainBehindNetwork(t *testing.T) {
	hs := peer.HandshakeResult{Success: true, PeerServices: payload.ServiceNetwork, PeerHeight: 100}
	network := uint32(110)
	assert.False(t, eligible(hs, 100, &network))
}
