package registry

import (
	"errors"
	"testing"
)

func testAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

var (
	collection = testAddr(0xC0)
	alice      = testAddr(0x01)
	bob        = testAddr(0x02)
	carol      = testAddr(0x03)
)

func TestMintAndOwnerOf(t *testing.T) {
	r := NewInMemory()
	if err := r.Mint(collection, 1, [20]byte{}); !errors.Is(err, ErrZeroRecipient) {
		t.Fatalf("mint to zero address: %v", err)
	}
	if err := r.Mint(collection, 1, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.Mint(collection, 1, bob); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("double mint: %v", err)
	}
	owner, err := r.OwnerOf(collection, 1)
	if err != nil || owner != alice {
		t.Fatalf("owner = %x (%v), want alice", owner, err)
	}
	if _, err := r.OwnerOf(collection, 2); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("unknown asset: %v", err)
	}
}

func TestTransfer(t *testing.T) {
	r := NewInMemory()
	if err := r.Mint(collection, 1, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.Transfer(collection, 1, bob, carol); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("transfer from non-owner: %v", err)
	}
	if err := r.Transfer(collection, 1, alice, [20]byte{}); !errors.Is(err, ErrZeroRecipient) {
		t.Fatalf("transfer to zero address: %v", err)
	}
	if err := r.Transfer(collection, 1, alice, bob); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, _ := r.OwnerOf(collection, 1)
	if owner != bob {
		t.Fatalf("owner = %x, want bob", owner)
	}
}

func TestApproveAndTransferBy(t *testing.T) {
	r := NewInMemory()
	if err := r.Mint(collection, 1, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.Approve(bob, carol, collection, 1); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("approve by stranger: %v", err)
	}
	if err := r.Approve(alice, alice, collection, 1); !errors.Is(err, ErrApproveToOwner) {
		t.Fatalf("approve to owner: %v", err)
	}
	if err := r.Approve(alice, bob, collection, 1); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := r.TransferBy(carol, collection, 1, alice, carol); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("transfer by unapproved caller: %v", err)
	}
	if err := r.TransferBy(bob, collection, 1, alice, carol); err != nil {
		t.Fatalf("transfer by approved caller: %v", err)
	}
	owner, _ := r.OwnerOf(collection, 1)
	if owner != carol {
		t.Fatalf("owner = %x, want carol", owner)
	}
	// Approval is cleared on transfer.
	if err := r.TransferBy(bob, collection, 1, carol, alice); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("stale approval honored: %v", err)
	}
}

func TestOperatorApproval(t *testing.T) {
	r := NewInMemory()
	if err := r.Mint(collection, 1, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if r.IsApprovedForAll(alice, bob) {
		t.Fatalf("operator approved by default")
	}
	r.SetApprovalForAll(alice, bob, true)
	if !r.IsApprovedForAll(alice, bob) {
		t.Fatalf("operator approval not recorded")
	}
	// Operators may grant per-asset approvals on the owner's behalf.
	if err := r.Approve(bob, carol, collection, 1); err != nil {
		t.Fatalf("approve via operator: %v", err)
	}
	if err := r.TransferBy(bob, collection, 1, alice, carol); err != nil {
		t.Fatalf("transfer via operator: %v", err)
	}
	r.SetApprovalForAll(alice, bob, false)
	if r.IsApprovedForAll(alice, bob) {
		t.Fatalf("operator approval not revoked")
	}
}
