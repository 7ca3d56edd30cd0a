package csm

import (
	"encoding/binary"

	"github.com/btcrollup/csmnode/common"
	"github.com/btcrollup/csmnode/storage"
)

// manifestCacheSize bounds the in-memory L1 manifest cache fronting the
// l1_manifest column family; manifests are small and looked up repeatedly
// as the follow-distance window slides forward, making them a good fit
// for a bounded LRU ahead of the KV store.
const manifestCacheSize = 4096

// StoreView is the live ReadView the worker supplies to Process, backed by
// the persistence layer's l1_manifest and l2_block column families (§6).
type StoreView struct {
	db        storage.Database
	manifests *common.Cache
}

func NewStoreView(db storage.Database) *StoreView {
	return &StoreView{db: db, manifests: common.NewCache(manifestCacheSize)}
}

func heightKey(height uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], height)
	return k[:]
}

func (v *StoreView) L1ManifestAtHeight(height uint64) (L1BlockManifest, bool, error) {
	if cached, ok := v.manifests.Get(height); ok {
		return cached.(L1BlockManifest), true, nil
	}

	kv := v.db.Family(storage.CFL1Manifest)
	raw, err := kv.Get(heightKey(height))
	if err == storage.ErrNotFound {
		return L1BlockManifest{}, false, nil
	}
	if err != nil {
		return L1BlockManifest{}, false, err
	}
	var m L1BlockManifest
	m.Height = height
	copy(m.BlockID[:], raw)
	v.manifests.Add(height, m)
	return m, true, nil
}

// PutL1Manifest records an L1 manifest at height, used by the L1 reader
// collaborator before emitting the corresponding L1BlockSeen event.
func (v *StoreView) PutL1Manifest(m L1BlockManifest) error {
	kv := v.db.Family(storage.CFL1Manifest)
	if err := kv.Put(heightKey(m.Height), m.BlockID[:]); err != nil {
		return err
	}
	v.manifests.Add(m.Height, m)
	return nil
}

func (v *StoreView) HasL2Block(id BlockID) (bool, error) {
	kv := v.db.Family(storage.CFL2Block)
	return kv.Has(id[:])
}

// GetL2Block reads back the full L2 block recorded under id, used by the
// worker to recover a header for fork-tree attachment after an UpdateTip
// action names a block by id alone.
func (v *StoreView) GetL2Block(id BlockID) (*L2Block, bool, error) {
	kv := v.db.Family(storage.CFL2Block)
	raw, err := kv.Get(id[:])
	if err == storage.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	block, err := decodeL2Block(raw)
	if err != nil {
		return nil, false, err
	}
	return block, true, nil
}

// PutL2Block records an L2 block body, used by the block-receive
// collaborator before emitting L2BlockReceived/L1DABatch events that name
// it.
func (v *StoreView) PutL2Block(block *L2Block, id BlockID) error {
	kv := v.db.Family(storage.CFL2Block)
	payload, err := encodeL2Block(block)
	if err != nil {
		return err
	}
	return kv.Put(id[:], payload)
}
