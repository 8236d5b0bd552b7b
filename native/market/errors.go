package market

import "errors"

// Every rejected transition surfaces one of these sentinel errors. Callers
// match with errors.Is; no transition leaves partial state behind.
var (
	ErrNilState    = errors.New("market engine: state not configured")
	ErrNilRegistry = errors.New("market engine: asset registry not configured")
	ErrNilRights   = errors.New("market engine: rights issuer not configured")

	ErrInvalidEntryID = errors.New("market: invalid entry id")
	ErrInvalidBidID   = errors.New("market: invalid bid id")

	ErrUnauthorized    = errors.New("market: caller is not the owner")
	ErrCallerNotSeller = errors.New("market: caller is not the seller")
	ErrCallerNotBuyer  = errors.New("market: caller is not the buyer")
	ErrInvalidCaller   = errors.New("market: seller and buyer cannot liquidate")

	ErrBiddingPeriodOver       = errors.New("market: bidding period is over")
	ErrBiddingPeriodNotOver    = errors.New("market: bidding period is not over")
	ErrPayAfterAppropriateTime = errors.New("market: installment not yet due")
	ErrDueDatePassed           = errors.New("market: grace period expired")
	ErrInstallmentOnTrack      = errors.New("market: installment still within grace period")

	ErrInvalidPrice             = errors.New("market: price must be positive")
	ErrInvalidPlan              = errors.New("market: invalid installment plan")
	ErrValueNotDownPayment      = errors.New("market: value does not equal required down payment")
	ErrInvalidInstallmentValue  = errors.New("market: value does not equal installment amount")
	ErrInvalidLiquidationValue  = errors.New("market: value does not equal liquidation amount")
	ErrInvalidBiddingPeriod     = errors.New("market: bidding period must be positive")
	ErrInvalidGracePeriod       = errors.New("market: grace period must be positive")
	ErrInvalidInstallmentNumber = errors.New("market: invalid installment number")

	ErrCannotReselectBid    = errors.New("market: entry already has a selected bid")
	ErrNoBidSelected        = errors.New("market: entry has no selected bid")
	ErrBidderSelected       = errors.New("market: bid is selected")
	ErrNoInstallmentLeft    = errors.New("market: no installment left to pay")
	ErrCannotReclaimPayment = errors.New("market: no unclaimed payment available")
	ErrInstallmentsComplete = errors.New("market: all installments are paid")
)
