// Package registry provides the asset-custody collaborator consumed by the
// marketplace engine: mint/approve/transfer/ownerOf semantics over
// (collection, assetID) pairs. The marketplace only ever holds assets through
// this interface, so an in-memory implementation is enough for tests and for
// the local daemon.
package registry

import (
	"errors"
	"sync"
)

var (
	ErrUnknownAsset   = errors.New("registry: unknown asset")
	ErrAssetExists    = errors.New("registry: asset already minted")
	ErrNotOwner       = errors.New("registry: transfer from incorrect owner")
	ErrNotAuthorized  = errors.New("registry: caller is not owner nor approved")
	ErrZeroRecipient  = errors.New("registry: transfer to the zero address")
	ErrApproveToOwner = errors.New("registry: approval to current owner")
)

type assetKey struct {
	collection [20]byte
	assetID    uint64
}

type assetRecord struct {
	owner    [20]byte
	approved [20]byte
}

// InMemory is a thread-safe asset registry keeping owner and approval
// bookkeeping in process memory.
type InMemory struct {
	mu     sync.RWMutex
	assets map[assetKey]*assetRecord
	// operators[owner][operator] mirrors isApprovedForAll semantics.
	operators map[[20]byte]map[[20]byte]bool
}

// NewInMemory returns an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{
		assets:    make(map[assetKey]*assetRecord),
		operators: make(map[[20]byte]map[[20]byte]bool),
	}
}

// Mint records a new asset owned by the given address.
func (r *InMemory) Mint(collection [20]byte, assetID uint64, owner [20]byte) error {
	if owner == ([20]byte{}) {
		return ErrZeroRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := assetKey{collection: collection, assetID: assetID}
	if _, ok := r.assets[key]; ok {
		return ErrAssetExists
	}
	r.assets[key] = &assetRecord{owner: owner}
	return nil
}

// OwnerOf returns the current owner of the asset.
func (r *InMemory) OwnerOf(collection [20]byte, assetID uint64) ([20]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.assets[assetKey{collection: collection, assetID: assetID}]
	if !ok {
		return [20]byte{}, ErrUnknownAsset
	}
	return rec.owner, nil
}

// Approve grants a single address the right to transfer the asset.
func (r *InMemory) Approve(caller, approved [20]byte, collection [20]byte, assetID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.assets[assetKey{collection: collection, assetID: assetID}]
	if !ok {
		return ErrUnknownAsset
	}
	if rec.owner != caller && !r.operators[rec.owner][caller] {
		return ErrNotAuthorized
	}
	if approved == rec.owner {
		return ErrApproveToOwner
	}
	rec.approved = approved
	return nil
}

// SetApprovalForAll grants or revokes operator rights over every asset of the
// caller.
func (r *InMemory) SetApprovalForAll(caller, operator [20]byte, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := r.operators[caller]
	if ops == nil {
		ops = make(map[[20]byte]bool)
		r.operators[caller] = ops
	}
	ops[operator] = approved
}

// IsApprovedForAll reports whether operator may act on every asset of owner.
func (r *InMemory) IsApprovedForAll(owner, operator [20]byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators[owner][operator]
}

// Transfer moves the asset from its current owner to the recipient. The
// transfer succeeds when `from` is the owner, the approved address, or an
// operator for the owner; any approval is cleared afterwards.
func (r *InMemory) Transfer(collection [20]byte, assetID uint64, from, to [20]byte) error {
	if to == ([20]byte{}) {
		return ErrZeroRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := assetKey{collection: collection, assetID: assetID}
	rec, ok := r.assets[key]
	if !ok {
		return ErrUnknownAsset
	}
	if rec.owner != from {
		return ErrNotOwner
	}
	rec.owner = to
	rec.approved = [20]byte{}
	return nil
}

// TransferBy moves the asset on behalf of caller, enforcing approval checks.
func (r *InMemory) TransferBy(caller [20]byte, collection [20]byte, assetID uint64, from, to [20]byte) error {
	if to == ([20]byte{}) {
		return ErrZeroRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := assetKey{collection: collection, assetID: assetID}
	rec, ok := r.assets[key]
	if !ok {
		return ErrUnknownAsset
	}
	if rec.owner != from {
		return ErrNotOwner
	}
	if caller != rec.owner && caller != rec.approved && !r.operators[rec.owner][caller] {
		return ErrNotAuthorized
	}
	rec.owner = to
	rec.approved = [20]byte{}
	return nil
}
