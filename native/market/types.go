package market

import (
	"fmt"
	"math/big"
)

// InstallmentPlan selects the payment schedule a buyer commits to. PlanNone is
// an outright purchase settled in full at bid selection.
type InstallmentPlan uint8

const (
	PlanNone InstallmentPlan = iota
	PlanThreeMonths
	PlanSixMonths
	PlanNineMonths
)

// Valid reports whether the plan value is within the supported range.
func (p InstallmentPlan) Valid() bool {
	switch p {
	case PlanNone, PlanThreeMonths, PlanSixMonths, PlanNineMonths:
		return true
	default:
		return false
	}
}

// TotalInstallments returns the number of monthly obligations for the plan.
// The down payment counts as installment #1.
func (p InstallmentPlan) TotalInstallments() uint8 {
	switch p {
	case PlanThreeMonths:
		return 3
	case PlanSixMonths:
		return 6
	case PlanNineMonths:
		return 9
	default:
		return 0
	}
}

func (p InstallmentPlan) String() string {
	switch p {
	case PlanNone:
		return "none"
	case PlanThreeMonths:
		return "three-months"
	case PlanSixMonths:
		return "six-months"
	case PlanNineMonths:
		return "nine-months"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(p))
	}
}

// Entry is a single asset's listing for sale. It owns the bid pool for that
// asset and carries the installment bookkeeping once a bid is selected.
type Entry struct {
	ID               uint64          `json:"id"`
	OnSale           bool            `json:"onSale"`
	Seller           [20]byte        `json:"seller"`
	Collection       [20]byte        `json:"collection"`
	AssetID          uint64          `json:"assetId"`
	ListedAt         int64           `json:"listedAt"`
	Price            *big.Int        `json:"price"`
	Plan             InstallmentPlan `json:"plan"`
	SelectedBidID    uint64          `json:"selectedBidId"`
	InstallmentsPaid uint8           `json:"installmentsPaid"`
	PaymentsClaimed  uint8           `json:"paymentsClaimed"`
	TotalBids        uint64          `json:"totalBids"`
}

// Clone returns a deep copy of the entry so callers can safely mutate the copy
// without affecting the stored instance.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Price != nil {
		clone.Price = new(big.Int).Set(e.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Bid is a buyer's funded commitment toward acquiring a specific entry under a
// chosen plan. PricePaid accumulates the down payment and every installment.
type Bid struct {
	ID            uint64          `json:"id"`
	EntryID       uint64          `json:"entryId"`
	Buyer         [20]byte        `json:"buyer"`
	Price         *big.Int        `json:"price"`
	Plan          InstallmentPlan `json:"plan"`
	PricePaid     *big.Int        `json:"pricePaid"`
	Timestamp     int64           `json:"timestamp"`
	Selected      bool            `json:"selected"`
	CertificateID uint64          `json:"certificateId"`
}

// Clone returns a deep copy of the bid.
func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Price != nil {
		clone.Price = new(big.Int).Set(b.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	if b.PricePaid != nil {
		clone.PricePaid = new(big.Int).Set(b.PricePaid)
	} else {
		clone.PricePaid = big.NewInt(0)
	}
	return &clone
}

// SanitizeEntry validates and normalises a listing record, returning a cloned
// instance with non-nil amounts. The original value is not mutated.
func SanitizeEntry(e *Entry) (*Entry, error) {
	if e == nil {
		return nil, fmt.Errorf("market: nil entry")
	}
	clone := e.Clone()
	if clone.Price == nil {
		clone.Price = big.NewInt(0)
	}
	if clone.Price.Sign() < 0 {
		return nil, fmt.Errorf("market: entry price must be non-negative")
	}
	if !clone.Plan.Valid() {
		return nil, fmt.Errorf("market: invalid installment plan: %d", clone.Plan)
	}
	total := clone.Plan.TotalInstallments()
	if clone.SelectedBidID != 0 {
		if clone.InstallmentsPaid > total && clone.Plan != PlanNone {
			return nil, fmt.Errorf("market: installments paid %d exceeds plan total %d", clone.InstallmentsPaid, total)
		}
		if clone.PaymentsClaimed > clone.InstallmentsPaid {
			return nil, fmt.Errorf("market: payments claimed %d exceeds installments paid %d", clone.PaymentsClaimed, clone.InstallmentsPaid)
		}
	}
	return clone, nil
}

// SanitizeBid validates and normalises a bid record, returning a cloned
// instance with non-nil amounts.
func SanitizeBid(b *Bid) (*Bid, error) {
	if b == nil {
		return nil, fmt.Errorf("market: nil bid")
	}
	clone := b.Clone()
	if clone.Price == nil {
		clone.Price = big.NewInt(0)
	}
	if clone.PricePaid == nil {
		clone.PricePaid = big.NewInt(0)
	}
	if clone.Price.Sign() < 0 || clone.PricePaid.Sign() < 0 {
		return nil, fmt.Errorf("market: bid amounts must be non-negative")
	}
	if !clone.Plan.Valid() {
		return nil, fmt.Errorf("market: invalid installment plan: %d", clone.Plan)
	}
	return clone, nil
}
