package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"nftmarket/core/types"
)

const (
	EventTypeSell                 = "market.sell"
	EventTypeBid                  = "market.bid"
	EventTypeBidSelected          = "market.bid_selected"
	EventTypeInstallmentPaid      = "market.installment_paid"
	EventTypePaymentWithdrawn     = "market.payment_withdrawn"
	EventTypeBidWithdrawn         = "market.bid_withdrawn"
	EventTypeSellWithdrawn        = "market.sell_withdrawn"
	EventTypeLiquidated           = "market.liquidated"
	EventTypeBiddingPeriodUpdated = "market.bidding_period_updated"
	EventTypeGracePeriodUpdated   = "market.grace_period_updated"
)

// NewSellEvent returns the canonical payload for a newly listed entry.
func NewSellEvent(e *Entry) *types.Event {
	attrs := entryAttributes(e)
	return &types.Event{Type: EventTypeSell, Attributes: attrs}
}

// NewBidEvent returns the canonical payload for a newly placed bid.
func NewBidEvent(b *Bid) *types.Event {
	attrs := bidAttributes(b)
	return &types.Event{Type: EventTypeBid, Attributes: attrs}
}

// NewBidSelectedEvent is emitted when the seller selects the winning bid.
func NewBidSelectedEvent(e *Entry, b *Bid) *types.Event {
	attrs := bidAttributes(b)
	attrs["installmentsPaid"] = "1"
	if e != nil {
		attrs["onSale"] = strconv.FormatBool(e.OnSale)
	}
	return &types.Event{Type: EventTypeBidSelected, Attributes: attrs}
}

// NewInstallmentPaidEvent is emitted for each fulfilled monthly obligation.
func NewInstallmentPaidEvent(b *Bid, installment uint8, amount *big.Int) *types.Event {
	attrs := bidAttributes(b)
	attrs["installment"] = strconv.FormatUint(uint64(installment), 10)
	attrs["amount"] = bigString(amount)
	return &types.Event{Type: EventTypeInstallmentPaid, Attributes: attrs}
}

// NewPaymentWithdrawnEvent is emitted when the seller claims earned funds.
func NewPaymentWithdrawnEvent(e *Entry, bidID uint64, amount *big.Int) *types.Event {
	attrs := entryAttributes(e)
	attrs["bidId"] = strconv.FormatUint(bidID, 10)
	attrs["amount"] = bigString(amount)
	return &types.Event{Type: EventTypePaymentWithdrawn, Attributes: attrs}
}

// NewBidWithdrawnEvent is emitted when a buyer refunds an unselected bid.
func NewBidWithdrawnEvent(b *Bid, refund *big.Int) *types.Event {
	attrs := bidAttributes(b)
	attrs["refund"] = bigString(refund)
	return &types.Event{Type: EventTypeBidWithdrawn, Attributes: attrs}
}

// NewSellWithdrawnEvent is emitted when the seller withdraws a listing.
func NewSellWithdrawnEvent(e *Entry) *types.Event {
	return &types.Event{Type: EventTypeSellWithdrawn, Attributes: entryAttributes(e)}
}

// NewLiquidatedEvent is emitted when a third party absorbs a defaulted bid.
func NewLiquidatedEvent(e *Entry, b *Bid, installment uint8, value *big.Int) *types.Event {
	attrs := bidAttributes(b)
	attrs["installment"] = strconv.FormatUint(uint64(installment), 10)
	attrs["value"] = bigString(value)
	if e != nil {
		attrs["entryId"] = strconv.FormatUint(e.ID, 10)
	}
	return &types.Event{Type: EventTypeLiquidated, Attributes: attrs}
}

// NewBiddingPeriodUpdatedEvent records a privileged bidding-period change.
func NewBiddingPeriodUpdatedEvent(prev, next int64) *types.Event {
	return &types.Event{Type: EventTypeBiddingPeriodUpdated, Attributes: map[string]string{
		"previous": strconv.FormatInt(prev, 10),
		"current":  strconv.FormatInt(next, 10),
	}}
}

// NewGracePeriodUpdatedEvent records a privileged grace-period change.
func NewGracePeriodUpdatedEvent(prev, next int64) *types.Event {
	return &types.Event{Type: EventTypeGracePeriodUpdated, Attributes: map[string]string{
		"previous": strconv.FormatInt(prev, 10),
		"current":  strconv.FormatInt(next, 10),
	}}
}

func entryAttributes(e *Entry) map[string]string {
	attrs := make(map[string]string)
	if e == nil {
		return attrs
	}
	attrs["entryId"] = strconv.FormatUint(e.ID, 10)
	attrs["seller"] = hex.EncodeToString(e.Seller[:])
	attrs["collection"] = hex.EncodeToString(e.Collection[:])
	attrs["assetId"] = strconv.FormatUint(e.AssetID, 10)
	attrs["price"] = bigString(e.Price)
	attrs["plan"] = e.Plan.String()
	attrs["onSale"] = strconv.FormatBool(e.OnSale)
	if e.SelectedBidID != 0 {
		attrs["selectedBidId"] = strconv.FormatUint(e.SelectedBidID, 10)
	}
	attrs["paymentsClaimed"] = strconv.FormatUint(uint64(e.PaymentsClaimed), 10)
	attrs["installmentsPaid"] = strconv.FormatUint(uint64(e.InstallmentsPaid), 10)
	return attrs
}

func bidAttributes(b *Bid) map[string]string {
	attrs := make(map[string]string)
	if b == nil {
		return attrs
	}
	attrs["bidId"] = strconv.FormatUint(b.ID, 10)
	attrs["entryId"] = strconv.FormatUint(b.EntryID, 10)
	attrs["buyer"] = hex.EncodeToString(b.Buyer[:])
	attrs["price"] = bigString(b.Price)
	attrs["pricePaid"] = bigString(b.PricePaid)
	attrs["plan"] = b.Plan.String()
	return attrs
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
