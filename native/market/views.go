package market

import (
	"math/big"
	"sort"
)

// GetEntry returns a copy of the entry record.
func (e *Engine) GetEntry(id uint64) (*Entry, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.loadEntry(id)
}

// GetBid returns a copy of the bid record.
func (e *Engine) GetBid(id uint64) (*Bid, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.loadBid(id)
}

// IsEntryIDValid reports whether the entry id refers to a live listing.
// Deleted ids are never reused, so a false result is permanent.
func (e *Engine) IsEntryIDValid(id uint64) bool {
	if e == nil || e.state == nil {
		return false
	}
	_, ok := e.state.MarketEntryGet(id)
	return ok
}

// IsBidIDValid reports whether the bid id refers to a live bid.
func (e *Engine) IsBidIDValid(id uint64) bool {
	if e == nil || e.state == nil {
		return false
	}
	_, ok := e.state.MarketBidGet(id)
	return ok
}

// TotalEntries returns the count of live entries.
func (e *Engine) TotalEntries() uint64 {
	if e == nil || e.state == nil {
		return 0
	}
	return uint64(len(e.state.MarketEntryIDs()))
}

// TotalBids returns the count of live bids across all entries.
func (e *Engine) TotalBids() uint64 {
	if e == nil || e.state == nil {
		return 0
	}
	return uint64(len(e.state.MarketBidIDs()))
}

// InstallmentAmountFor returns the exact amount owed for installment n of the
// given bid.
func (e *Engine) InstallmentAmountFor(bidID uint64, n uint8) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	bid, err := e.loadBid(bidID)
	if err != nil {
		return nil, err
	}
	if n == 0 || n > bid.Plan.TotalInstallments() {
		return nil, ErrInvalidInstallmentNumber
	}
	return InstallmentAmount(bid.Plan, bid.Price, n), nil
}

// InstallmentDueDate returns the due timestamp of installment n for a
// selected bid. The schedule is anchored at the selection time.
func (e *Engine) InstallmentDueDate(bidID uint64, n uint8) (int64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	bid, err := e.loadBid(bidID)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > bid.Plan.TotalInstallments() {
		return 0, ErrInvalidInstallmentNumber
	}
	if !bid.Selected {
		return 0, ErrNoBidSelected
	}
	return dueDate(bid.Timestamp, n), nil
}

// VaultBalance returns the funds currently held by the escrow vault.
func (e *Engine) VaultBalance() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	acc, err := e.state.GetAccount(e.vault)
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(acc.Balance), nil
}

// EntriesOpenForSale returns every entry still accepting bids, ordered by id.
func (e *Engine) EntriesOpenForSale() []*Entry {
	return e.filterEntries(func(entry *Entry) bool { return entry.OnSale })
}

// EntriesBySeller returns every live entry listed by the seller, ordered by id.
func (e *Engine) EntriesBySeller(seller [20]byte) []*Entry {
	return e.filterEntries(func(entry *Entry) bool { return entry.Seller == seller })
}

// BidsForEntry returns every live bid placed against the entry, ordered by id.
func (e *Engine) BidsForEntry(entryID uint64) []*Bid {
	if e == nil || e.state == nil {
		return nil
	}
	ids := e.state.MarketBidIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*Bid
	for _, id := range ids {
		bid, ok := e.state.MarketBidGet(id)
		if ok && bid.EntryID == entryID {
			out = append(out, bid)
		}
	}
	return out
}

func (e *Engine) filterEntries(keep func(*Entry) bool) []*Entry {
	if e == nil || e.state == nil {
		return nil
	}
	ids := e.state.MarketEntryIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*Entry
	for _, id := range ids {
		entry, ok := e.state.MarketEntryGet(id)
		if ok && keep(entry) {
			out = append(out, entry)
		}
	}
	return out
}
