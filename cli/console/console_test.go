package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/config"
	"github.com/hnsresolver/hns-spv/pkg/resolver"
)

func testResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	cfg := config.Default()
	cfg.Network.DataDir = t.TempDir()
	r, err := resolver.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := testResolver(t)
	err := dispatch(r, []string{"frobnicate"})
	assert.Error(t, err)
}

func TestDispatchHeightReportsChainHeight(t *testing.T) {
	r := testResolver(t)
	assert.NoError(t, dispatch(r, []string{"height"}))
}

func TestDispatchPeersEmpty(t *testing.T) {
	r := testResolver(t)
	assert.NoError(t, dispatch(r, []string{"peers"}))
}

func TestDispatchResolveRejectsBadHash(t *testing.T) {
	r := testResolver(t)
	err := dispatch(r, []string{"resolve", "not-hex"})
	assert.Error(t, err)

	err = dispatch(r, []string{"resolve", "aabb"})
	assert.Error(t, err)
}

func TestDispatchHelp(t *testing.T) {
	r := testResolver(t)
	assert.NoError(t, dispatch(r, []string{"help"}))
}
