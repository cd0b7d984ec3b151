package addrmgr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "addrmgr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m, err := New(store, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestAddAndVerifiedPeers(t *testing.T) {
	m := newTestManager(t)
	m.Add([]string{"1.2.3.4:13038", "5.6.7.8:13038"})
	assert.ElementsMatch(t, []string{"1.2.3.4:13038", "5.6.7.8:13038"}, m.VerifiedPeers())
}

func TestRecordVerifiedFullNode(t *testing.T) {
	m := newTestManager(t)
	m.RecordVerifiedFullNode("9.9.9.9:13038")
	assert.Contains(t, m.VerifiedPeers(), "9.9.9.9:13038")
	assert.Contains(t, m.FullNodePeers(), "9.9.9.9:13038")
}

func TestRecordErrorAndShouldExclude(t *testing.T) {
	m := newTestManager(t)
	addr := "10.0.0.1:13038"
	for i := 0; i < errorThreshold-1; i++ {
		m.RecordError(addr)
		assert.False(t, m.ShouldExclude(addr))
	}
	m.RecordError(addr)
	assert.True(t, m.ShouldExclude(addr))
}

func TestResetErrorsClearsExclusion(t *testing.T) {
	m := newTestManager(t)
	addr := "10.0.0.2:13038"
	for i := 0; i < errorThreshold; i++ {
		m.RecordError(addr)
	}
	require.True(t, m.ShouldExclude(addr))

	m.ResetErrors(addr)
	assert.False(t, m.ShouldExclude(addr))
}

func TestClearAllErrors(t *testing.T) {
	m := newTestManager(t)
	m.RecordError("a:1")
	m.RecordError("b:1")
	m.ClearAllErrors()
	assert.False(t, m.ShouldExclude("a:1"))
	assert.False(t, m.ShouldExclude("b:1"))
}

func TestFallbackPeersIsCapped(t *testing.T) {
	m := newTestManager(t)
	m.Add([]string{"a:1", "b:1", "c:1", "d:1"})
	assert.Len(t, m.FallbackPeers(2), 2)
}

func TestVerifiedPeerAfterRecordIsNeverExcluded(t *testing.T) {
	m := newTestManager(t)
	addr := "11.0.0.1:13038"
	m.Add([]string{addr})
	assert.False(t, m.ShouldExclude(addr))
}

func TestBucketOfIsStable(t *testing.T) {
	a := BucketOf("1.2.3.4:13038")
	b := BucketOf("1.2.3.4:13038")
	assert.Equal(t, a, b)
	assert.Less(t, a, uint32(BucketCount))
}
