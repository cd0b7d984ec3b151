// Package addrmgr implements the peer registry (spec §4.B): a
// persisted, capacity-bounded set of verified peers, a per-address
// error-count store, and a set of addresses observed to advertise the
// NETWORK service bit. Grounded on the teacher's pkg/addrmgr.go, with
// its in-memory bucket map replaced by bbolt-backed tables plus a
// golang-lru fast path for the verified set, and murmur3 bucketing
// kept for candidate spread.
package addrmgr

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/twmb/murmur3"
	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/storage"
)

const (
	verifiedTable  = "addrmgr-verified"
	errorTable     = "addrmgr-errors"
	fullNodeTable  = "addrmgr-fullnodes"
	verifiedCap    = 2000
	errorThreshold = 8
	bucketCount    = 64
)

// Manager is the peer registry: verified peers, error counts and
// full-node addresses, each persisted and mutated sequentially (spec
// §5 "shared-resource policy").
type Manager struct {
	mu sync.Mutex

	verifiedTbl *storage.Table
	errorTbl    *storage.Table
	fullNodeTbl *storage.Table
	verifiedLRU *lru.Cache
	log         *zap.Logger
}

// New opens a Manager backed by store, restoring the verified-peer
// LRU from its persisted table.
func New(store *storage.Store, log *zap.Logger) (*Manager, error) {
	verifiedTbl, err := store.Table(verifiedTable)
	if err != nil {
		return nil, err
	}
	errorTbl, err := store.Table(errorTable)
	if err != nil {
		return nil, err
	}
	fullNodeTbl, err := store.Table(fullNodeTable)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New(verifiedCap)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		verifiedTbl: verifiedTbl,
		errorTbl:    errorTbl,
		fullNodeTbl: fullNodeTbl,
		verifiedLRU: cache,
		log:         log.With(zap.String("component", "addrmgr")),
	}
	if err := m.loadVerifiedLRU(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadVerifiedLRU() error {
	return m.verifiedTbl.ForEach(func(key, _ []byte) error {
		m.verifiedLRU.Add(string(key), struct{}{})
		return nil
	})
}

// BucketOf hashes addr into one of bucketCount buckets. Candidate
// selection does not use it: pkg/syncmgr and pkg/query iterate peer
// lists in the order discovery or the verified set returns them.
func BucketOf(addr string) uint32 {
	return murmur3.Sum32([]byte(addr)) % bucketCount
}

// BucketCount is the number of buckets BucketOf spreads addresses
// across.
const BucketCount = bucketCount

// Add inserts addresses into the verified set, evicting the oldest
// entries once the LRU cap is exceeded. Best-effort: persistence
// failures are logged, never returned (spec §4.B).
func (m *Manager) Add(addrs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, addr := range addrs {
		evicted := m.verifiedLRU.Add(addr, struct{}{})
		if err := m.verifiedTbl.Put([]byte(addr), []byte{1}); err != nil {
			m.log.Warn("persist verified peer failed", zap.String("addr", addr), zap.Error(err))
		}
		if evicted {
			m.evictOldestVerified()
		}
	}
}

// evictOldestVerified drops whichever address the LRU just pushed out
// of its own keyspace; the LRU already removed it from memory, this
// mirrors that removal into the persisted table.
func (m *Manager) evictOldestVerified() {
	keys := m.verifiedLRU.Keys()
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		present[k.(string)] = struct{}{}
	}
	var stale [][]byte
	_ = m.verifiedTbl.ForEach(func(key, _ []byte) error {
		if _, ok := present[string(key)]; !ok {
			stale = append(stale, append([]byte(nil), key...))
		}
		return nil
	})
	for _, key := range stale {
		if err := m.verifiedTbl.Delete(key); err != nil {
			m.log.Warn("evict stale verified peer failed", zap.ByteString("addr", key), zap.Error(err))
		}
	}
}

// RecordVerifiedFullNode marks addr both verified and a full node
// (spec §4.F step 2: "even during header sync").
func (m *Manager) RecordVerifiedFullNode(addr string) {
	m.Add([]string{addr})
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fullNodeTbl.Put([]byte(addr), []byte{1}); err != nil {
		m.log.Warn("persist full node failed", zap.String("addr", addr), zap.Error(err))
	}
}

// RecordError increments addr's error count.
func (m *Manager) RecordError(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.errorCountLocked(addr)
	count++
	if err := m.errorTbl.Put([]byte(addr), encodeCount(count)); err != nil {
		m.log.Warn("persist error count failed", zap.String("addr", addr), zap.Error(err))
	}
}

// ResetErrors clears addr's error count back to zero.
func (m *Manager) ResetErrors(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errorTbl.Delete([]byte(addr)); err != nil {
		m.log.Warn("reset error count failed", zap.String("addr", addr), zap.Error(err))
	}
}

// ClearAllErrors wipes every recorded error count.
func (m *Manager) ClearAllErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys [][]byte
	_ = m.errorTbl.ForEach(func(key, _ []byte) error {
		keys = append(keys, append([]byte(nil), key...))
		return nil
	})
	for _, key := range keys {
		if err := m.errorTbl.Delete(key); err != nil {
			m.log.Warn("clear error count failed", zap.ByteString("addr", key), zap.Error(err))
		}
	}
}

// ShouldExclude reports whether addr's error count has reached the
// exclusion threshold.
func (m *Manager) ShouldExclude(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCountLocked(addr) >= errorThreshold
}

func (m *Manager) errorCountLocked(addr string) uint32 {
	raw, err := m.errorTbl.Get([]byte(addr))
	if err != nil {
		return 0
	}
	return decodeCount(raw)
}

// VerifiedPeers returns every address currently in the verified set.
func (m *Manager) VerifiedPeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	_ = m.verifiedTbl.ForEach(func(key, _ []byte) error {
		out = append(out, string(key))
		return nil
	})
	return out
}

// FullNodePeers returns every address observed advertising NETWORK.
func (m *Manager) FullNodePeers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	_ = m.fullNodeTbl.ForEach(func(key, _ []byte) error {
		out = append(out, string(key))
		return nil
	})
	return out
}

// FallbackPeers returns a capped subset of the verified set, used by
// discovery when DNS seeds yield nothing (spec §4.C).
func (m *Manager) FallbackPeers(cap int) []string {
	all := m.VerifiedPeers()
	if len(all) <= cap {
		return all
	}
	return all[:cap]
}

func encodeCount(n uint32) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

func decodeCount(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
