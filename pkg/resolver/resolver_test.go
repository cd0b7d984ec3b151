package resolver

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/internal/fakepeer"
	"github.com/hnsresolver/hns-spv/pkg/chaincfg"
	"github.com/hnsresolver/hns-spv/pkg/config"
	"github.com/hnsresolver/hns-spv/pkg/query"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	cfg := config.Default()
	cfg.Network.Magic = 0xfeedface
	cfg.Network.DataDir = t.TempDir()
	cfg.P2P.ConnectTimeoutSeconds = 1
	cfg.P2P.ReadTimeoutSeconds = 2
	cfg.P2P.HandshakeTimeoutSeconds = 2
	cfg.P2P.HandshakeMaxAttempts = 20
	cfg.P2P.DiscoveryTimeoutSeconds = 1
	cfg.P2P.SyncDiscoveryBudget = 1
	cfg.P2P.MaxConnectRetries = 1
	cfg.P2P.BackoffBaseSeconds = 0

	r, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func startFakePeer(t *testing.T, magic uint32, script fakepeer.Script) string {
	t.Helper()
	script.Magic = magic
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

func TestNetworkHeightUnsetInitially(t *testing.T) {
	r := testResolver(t)
	_, ok, err := r.NetworkHeight()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncPersistsNetworkHeight(t *testing.T) {
	r := testResolver(t)

	tipHash, err := r.chain.TipHash()
	require.NoError(t, err)

	addr := startFakePeer(t, 0xfeedface, fakepeer.Script{
		Height:        chaincfg.CheckpointHeight + 50,
		Services:      payload.ServiceNetwork,
		HeaderBatches: [][]*payload.BlockHeader{{{PrevBlock: tipHash, Nonce: 1}}},
		NotFoundAfter: 1,
	})
	r.addrs.Add([]string{addr})

	result, err := r.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, uint32(chaincfg.CheckpointHeight+50), result.NetworkHeight)

	height, ok, err := r.NetworkHeight()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(chaincfg.CheckpointHeight+50), height)
}

func TestQueryReturnsErrorWithNoPeers(t *testing.T) {
	r := testResolver(t)
	result, err := r.Query(context.Background(), [32]byte{9})
	require.NoError(t, err)
	assert.Equal(t, query.OutcomeError, result.Outcome)
}

func TestRecordNetworkHeightNeverRegresses(t *testing.T) {
	r := testResolver(t)
	require.NoError(t, r.recordNetworkHeight(100))
	require.NoError(t, r.recordNetworkHeight(50))

	height, ok, err := r.loadNetworkHeight()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(100), height)
}
