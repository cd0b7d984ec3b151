// Package chain implements the validated header chain: a checkpoint-
// anchored sequence of block headers with a hash index, locator
// construction and append classification (spec §4.E). Grounded on the
// teacher's pkg/chain/chain.go + pkg/chain/chaindb.go split between a
// thin verification layer and a storage-backed db, with the
// transaction/UTXO bookkeeping dropped (out of scope: headers only).
package chain

import (
	"github.com/hnsresolver/hns-spv/pkg/chaincfg"
	"github.com/hnsresolver/hns-spv/pkg/storage"
	"github.com/hnsresolver/hns-spv/pkg/wire/payload"
)

// maxLocatorEntries bounds Locator's output (spec §4.E: "up to 10").
const maxLocatorEntries = 10

// Chain is a validated, checkpoint-anchored header sequence.
type Chain struct {
	db *chaindb
}

// New opens a Chain backed by store. Callers must call
// InitFromCheckpoint before using the chain if it has never been
// initialized (idempotent: a no-op once headers already exist).
func New(store *storage.Store) (*Chain, error) {
	db, err := openChaindb(store)
	if err != nil {
		return nil, err
	}
	return &Chain{db: db}, nil
}

// InitFromCheckpoint loads the compiled-in checkpoint range if the
// chain is still empty. Safe to call on every startup.
func (c *Chain) InitFromCheckpoint() error {
	_, ok, err := c.db.latestHeight()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	for i, hdr := range chaincfg.CheckpointHeaders() {
		height := uint32(chaincfg.CheckpointHeight + i)
		if err := c.db.putHeader(height, hdr); err != nil {
			return err
		}
	}
	return nil
}

// TipHeight returns the height of the highest stored header.
func (c *Chain) TipHeight() (uint32, error) {
	height, ok, err := c.db.latestHeight()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrEmptyChain
	}
	return height, nil
}

// TipHash returns the hash of the highest stored header.
func (c *Chain) TipHash() ([32]byte, error) {
	height, err := c.TipHeight()
	if err != nil {
		return [32]byte{}, err
	}
	hdr, err := c.db.headerAt(height)
	if err != nil {
		return [32]byte{}, err
	}
	return hdr.Hash(), nil
}

// CurrentNameRoot returns the name-tree root committed by the tip
// header, the value getproof requests are validated against.
func (c *Chain) CurrentNameRoot() ([32]byte, error) {
	height, err := c.TipHeight()
	if err != nil {
		return [32]byte{}, err
	}
	hdr, err := c.db.headerAt(height)
	if err != nil {
		return [32]byte{}, err
	}
	return hdr.NameRoot, nil
}

// Locator returns the tip plus up to maxLocatorEntries-1 ancestors,
// exponentially spaced (spec §4.E, §9 "exact spacing not codified in
// source"): step doubles after the first two entries, the same
// progression bitcoin-derived locators use to keep the list short
// while still reaching far back quickly.
func (c *Chain) Locator() ([][32]byte, error) {
	tip, err := c.TipHeight()
	if err != nil {
		return nil, err
	}

	var hashes [][32]byte
	step := int64(1)
	height := int64(tip)
	for len(hashes) < maxLocatorEntries && height >= int64(chaincfg.CheckpointHeight) {
		hdr, err := c.db.headerAt(uint32(height))
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hdr.Hash())
		if len(hashes) >= 2 {
			step *= 2
		}
		height -= step
	}
	return hashes, nil
}

// TryAppend classifies and, if accepted, stores a header at the next
// height after the current tip.
func (c *Chain) TryAppend(hdr *payload.BlockHeader) (AppendResult, error) {
	hash := hdr.Hash()
	if _, exists, err := c.db.heightOf(hash); err != nil {
		return Disconnected, err
	} else if exists {
		return Duplicate, nil
	}

	tipHeight, err := c.TipHeight()
	if err != nil {
		return Disconnected, err
	}
	tipHash, err := c.TipHash()
	if err != nil {
		return Disconnected, err
	}
	if hdr.PrevBlock != tipHash {
		return Disconnected, nil
	}

	if err := c.db.putHeader(tipHeight+1, hdr); err != nil {
		return Disconnected, err
	}
	return Accepted, nil
}
