package chain

import (
	"encoding/binary"

	"github.com/hnsresolver/hns-spv/pkg/storage"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// Table names, mirroring the teacher's HEADER/LATESTHEADER/
// BLOCKHASHHEIGHT prefix convention (pkg/chain/chaindb.go), adapted to
// one bbolt bucket per table instead of one flat keyspace.
const (
	headerTable       = "chain-headers"
	hashHeightTable   = "chain-hash-height"
	latestHeaderTable = "chain-latest"
)

var latestKey = []byte("")

// chaindb is the storage-backed layer chain.Chain builds on: headers
// keyed by height so the tip can be walked by decrementing the key,
// plus a {hash -> height} index so TryAppend can detect duplicates
// without a table scan.
type chaindb struct {
	headers     *storage.Table
	hashHeight  *storage.Table
	latestIndex *storage.Table
}

func openChaindb(store *storage.Store) (*chaindb, error) {
	headers, err := store.Table(headerTable)
	if err != nil {
		return nil, err
	}
	hashHeight, err := store.Table(hashHeightTable)
	if err != nil {
		return nil, err
	}
	latestIndex, err := store.Table(latestHeaderTable)
	if err != nil {
		return nil, err
	}
	return &chaindb{headers: headers, hashHeight: hashHeight, latestIndex: latestIndex}, nil
}

func (c *chaindb) putHeader(height uint32, hdr *payload.BlockHeader) error {
	key := heightKey(height)
	hash := hdr.Hash()

	if err := c.headers.Put(key, hdr.Encode()); err != nil {
		return err
	}
	if err := c.hashHeight.Put(hash[:], key); err != nil {
		return err
	}
	if err := c.latestIndex.Put(latestKey, key); err != nil {
		return err
	}
	return nil
}

func (c *chaindb) headerAt(height uint32) (*payload.BlockHeader, error) {
	raw, err := c.headers.Get(heightKey(height))
	if err != nil {
		return nil, err
	}
	return payload.DecodeHeader(raw)
}

func (c *chaindb) heightOf(hash [32]byte) (uint32, bool, error) {
	raw, err := c.hashHeight.Get(hash[:])
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return binary.BigEndian.Uint32(raw), true, nil
}

func (c *chaindb) latestHeight() (uint32, bool, error) {
	raw, err := c.latestIndex.Get(latestKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return binary.BigEndian.Uint32(raw), true, nil
}

func heightKey(height uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, height)
	return key
}
