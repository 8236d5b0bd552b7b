package market

import (
	"fmt"
	"math/big"
	"time"

	"nftmarket/core/events"
	"nftmarket/core/types"
)

// Time constants for the installment schedule. A schedule month is fixed at 30
// days so due dates stay deterministic regardless of calendar months.
const (
	OneMonth             int64 = 30 * 24 * 60 * 60
	DefaultBiddingPeriod int64 = 7 * 24 * 60 * 60
	DefaultGracePeriod   int64 = 7 * 24 * 60 * 60
)

// liquidationRefundPermille is the share of a defaulting buyer's contributed
// funds returned on liquidation. The remaining 5% stays in escrow for the
// seller as the default penalty.
const liquidationRefundPermille = 950

type engineState interface {
	MarketEntryPut(*Entry) error
	MarketEntryGet(id uint64) (*Entry, bool)
	MarketEntryDelete(id uint64) error
	MarketBidPut(*Bid) error
	MarketBidGet(id uint64) (*Bid, bool)
	MarketBidDelete(id uint64) error
	MarketNextEntryID() (uint64, error)
	MarketNextBidID() (uint64, error)
	MarketEntryIDs() []uint64
	MarketBidIDs() []uint64
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// AssetRegistry is the narrow custody capability the engine needs from the
// external non-fungible-asset registry.
type AssetRegistry interface {
	OwnerOf(collection [20]byte, assetID uint64) ([20]byte, error)
	Transfer(collection [20]byte, assetID uint64, from, to [20]byte) error
}

// RightsIssuer mints the time-boxed usage certificate handed to the winning
// bidder for the duration of the installment term.
type RightsIssuer interface {
	Create(holder [20]byte, expiresAt int64, uri string) (uint64, error)
	SetUser(id uint64, user [20]byte, expiresAt int64) error
	Burn(id uint64) error
}

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// Engine owns the marketplace ledger: entries, bids, the installment schedule
// and the escrow accounting binding them together. All transitions are
// validate-then-mutate; a returned error means no state changed.
type Engine struct {
	state         engineState
	registry      AssetRegistry
	rights        RightsIssuer
	emitter       events.Emitter
	owner         [20]byte
	vault         [20]byte
	biddingPeriod int64
	gracePeriod   int64
	nowFn         func() int64
}

// NewEngine creates a marketplace engine governed by the privileged owner
// address, escrowing funds and assets under the vault address.
func NewEngine(owner, vault [20]byte) *Engine {
	return &Engine{
		emitter:       events.NoopEmitter{},
		owner:         owner,
		vault:         vault,
		biddingPeriod: DefaultBiddingPeriod,
		gracePeriod:   DefaultGracePeriod,
		nowFn:         func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the asset custody collaborator.
func (e *Engine) SetRegistry(registry AssetRegistry) { e.registry = registry }

// SetRights configures the rights-grant issuer collaborator.
func (e *Engine) SetRights(rights RightsIssuer) { e.rights = rights }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Vault returns the escrow vault address.
func (e *Engine) Vault() [20]byte { return e.vault }

// BiddingPeriod returns the bidding window applied to new deadline checks.
func (e *Engine) BiddingPeriod() int64 { return e.biddingPeriod }

// GracePeriod returns the self-cure window applied after each due date.
func (e *Engine) GracePeriod() int64 { return e.gracePeriod }

// SetBiddingPeriod updates the bidding window. Owner only; takes effect for
// every deadline evaluated after the call.
func (e *Engine) SetBiddingPeriod(caller [20]byte, period int64) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	if period <= 0 {
		return ErrInvalidBiddingPeriod
	}
	prev := e.biddingPeriod
	e.biddingPeriod = period
	e.emit(NewBiddingPeriodUpdatedEvent(prev, period))
	return nil
}

// SetGracePeriod updates the grace window. Owner only.
func (e *Engine) SetGracePeriod(caller [20]byte, period int64) error {
	if caller != e.owner {
		return ErrUnauthorized
	}
	if period <= 0 {
		return ErrInvalidGracePeriod
	}
	prev := e.gracePeriod
	e.gracePeriod = period
	e.emit(NewGracePeriodUpdatedEvent(prev, period))
	return nil
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.registry == nil {
		return ErrNilRegistry
	}
	if e.rights == nil {
		return ErrNilRights
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (e *Engine) transferFunds(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("market: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return fmt.Errorf("market: insufficient balance")
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func (e *Engine) loadEntry(id uint64) (*Entry, error) {
	entry, ok := e.state.MarketEntryGet(id)
	if !ok {
		return nil, ErrInvalidEntryID
	}
	return entry, nil
}

func (e *Engine) loadBid(id uint64) (*Bid, error) {
	bid, ok := e.state.MarketBidGet(id)
	if !ok {
		return nil, ErrInvalidBidID
	}
	return bid, nil
}

func (e *Engine) biddingDeadline(entry *Entry) int64 {
	return entry.ListedAt + e.biddingPeriod
}

// dueDate returns the due timestamp for installment n of a selected bid. The
// selection timestamp anchors the whole schedule; installment #1 (the down
// payment) is due at selection itself.
func dueDate(selectedAt int64, n uint8) int64 {
	return selectedAt + int64(n-1)*OneMonth
}

// Sell lists an asset for sale, moving it into vault custody, and returns the
// new entry id. The caller must own the asset and have approved the vault.
func (e *Engine) Sell(caller, collection [20]byte, assetID uint64, price *big.Int, plan InstallmentPlan) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	if !plan.Valid() {
		return 0, ErrInvalidPlan
	}
	owner, err := e.registry.OwnerOf(collection, assetID)
	if err != nil {
		return 0, err
	}
	if owner != caller {
		return 0, ErrCallerNotSeller
	}
	if err := e.registry.Transfer(collection, assetID, caller, e.vault); err != nil {
		return 0, err
	}
	id, err := e.state.MarketNextEntryID()
	if err != nil {
		return 0, err
	}
	entry := &Entry{
		ID:         id,
		OnSale:     true,
		Seller:     caller,
		Collection: collection,
		AssetID:    assetID,
		ListedAt:   e.now(),
		Price:      cloneBigInt(price),
		Plan:       plan,
	}
	if err := e.state.MarketEntryPut(entry); err != nil {
		return 0, err
	}
	e.emit(NewSellEvent(entry))
	return id, nil
}

// PlaceBid commits a buyer's funds against an entry within the bidding
// window. The attached value must equal the plan's down payment exactly.
func (e *Engine) PlaceBid(caller [20]byte, entryID uint64, price *big.Int, plan InstallmentPlan, value *big.Int) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	entry, err := e.loadEntry(entryID)
	if err != nil {
		return 0, err
	}
	if !entry.OnSale {
		return 0, ErrBiddingPeriodOver
	}
	if e.now() > e.biddingDeadline(entry) {
		return 0, ErrBiddingPeriodOver
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	if !plan.Valid() {
		return 0, ErrInvalidPlan
	}
	required := DownPayment(plan, price)
	if value == nil || value.Cmp(required) != 0 {
		return 0, ErrValueNotDownPayment
	}
	if err := e.transferFunds(caller, e.vault, required); err != nil {
		return 0, err
	}
	id, err := e.state.MarketNextBidID()
	if err != nil {
		return 0, err
	}
	bid := &Bid{
		ID:        id,
		EntryID:   entryID,
		Buyer:     caller,
		Price:     cloneBigInt(price),
		Plan:      plan,
		PricePaid: cloneBigInt(required),
		Timestamp: e.now(),
	}
	entry.TotalBids++
	if err := e.state.MarketBidPut(bid); err != nil {
		return 0, err
	}
	if err := e.state.MarketEntryPut(entry); err != nil {
		return 0, err
	}
	e.emit(NewBidEvent(bid))
	return id, nil
}

// SelectBid finalizes the auction: for an outright bid it settles immediately,
// otherwise it anchors the installment schedule at the selection time and
// issues the rights-grant certificate to the buyer.
func (e *Engine) SelectBid(caller [20]byte, bidID uint64, certURI string) error {
	if err := e.ready(); err != nil {
		return err
	}
	bid, err := e.loadBid(bidID)
	if err != nil {
		return err
	}
	entry, err := e.loadEntry(bid.EntryID)
	if err != nil {
		return err
	}
	if caller != entry.Seller {
		return ErrCallerNotSeller
	}
	if !entry.OnSale || entry.SelectedBidID != 0 {
		return ErrCannotReselectBid
	}
	now := e.now()
	if now <= e.biddingDeadline(entry) {
		return ErrBiddingPeriodNotOver
	}

	if bid.Plan == PlanNone {
		// Outright sale: full price was escrowed at bid time. Settle and
		// clear the entry and bid in the same transition.
		if err := e.transferFunds(e.vault, entry.Seller, bid.PricePaid); err != nil {
			return err
		}
		if err := e.registry.Transfer(entry.Collection, entry.AssetID, e.vault, bid.Buyer); err != nil {
			return err
		}
		if err := e.state.MarketEntryDelete(entry.ID); err != nil {
			return err
		}
		if err := e.state.MarketBidDelete(bid.ID); err != nil {
			return err
		}
		bid.Selected = true
		e.emit(NewBidSelectedEvent(entry, bid))
		return nil
	}

	term := int64(bid.Plan.TotalInstallments()) * OneMonth
	certID, err := e.rights.Create(bid.Buyer, now+term, certURI)
	if err != nil {
		return err
	}
	entry.OnSale = false
	entry.SelectedBidID = bid.ID
	entry.Price = cloneBigInt(bid.Price)
	entry.Plan = bid.Plan
	entry.InstallmentsPaid = 1
	bid.Selected = true
	bid.Timestamp = now
	bid.CertificateID = certID
	if err := e.state.MarketBidPut(bid); err != nil {
		return err
	}
	if err := e.state.MarketEntryPut(entry); err != nil {
		return err
	}
	e.emit(NewBidSelectedEvent(entry, bid))
	return nil
}

// PayInstallment fulfils the next monthly obligation for the selected bid.
// The final installment transfers asset custody to the buyer; the entry stays
// alive for the seller's remaining withdrawal.
func (e *Engine) PayInstallment(caller [20]byte, entryID uint64, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	entry, err := e.loadEntry(entryID)
	if err != nil {
		return err
	}
	if entry.SelectedBidID == 0 {
		return ErrNoBidSelected
	}
	bid, err := e.loadBid(entry.SelectedBidID)
	if err != nil {
		return err
	}
	if caller != bid.Buyer {
		return ErrCallerNotBuyer
	}
	total := entry.Plan.TotalInstallments()
	if entry.InstallmentsPaid >= total {
		return ErrNoInstallmentLeft
	}
	next := entry.InstallmentsPaid + 1
	amount := InstallmentAmount(entry.Plan, entry.Price, next)
	if value == nil || amount == nil || value.Cmp(amount) != 0 {
		return ErrInvalidInstallmentValue
	}
	now := e.now()
	due := dueDate(bid.Timestamp, next)
	if now < due {
		return ErrPayAfterAppropriateTime
	}
	if now > due+e.gracePeriod {
		return ErrDueDatePassed
	}
	if err := e.transferFunds(caller, e.vault, amount); err != nil {
		return err
	}
	bid.PricePaid = new(big.Int).Add(bid.PricePaid, amount)
	entry.InstallmentsPaid = next
	if next == total {
		if err := e.registry.Transfer(entry.Collection, entry.AssetID, e.vault, bid.Buyer); err != nil {
			return err
		}
		if err := e.rights.Burn(bid.CertificateID); err != nil {
			return err
		}
	}
	if err := e.state.MarketBidPut(bid); err != nil {
		return err
	}
	if err := e.state.MarketEntryPut(entry); err != nil {
		return err
	}
	e.emit(NewInstallmentPaidEvent(bid, next, amount))
	return nil
}

// WithdrawPayment pays the seller every installment that has been paid but
// not yet claimed. When the final installment is claimed the entry and its
// selected bid are cleared for good.
func (e *Engine) WithdrawPayment(caller [20]byte, entryID uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	entry, err := e.loadEntry(entryID)
	if err != nil {
		return nil, err
	}
	if caller != entry.Seller {
		return nil, ErrCallerNotSeller
	}
	if entry.SelectedBidID == 0 || entry.InstallmentsPaid <= entry.PaymentsClaimed {
		return nil, ErrCannotReclaimPayment
	}
	amount := ScheduleAmount(entry.Plan, entry.Price, entry.PaymentsClaimed, entry.InstallmentsPaid)
	if err := e.transferFunds(e.vault, entry.Seller, amount); err != nil {
		return nil, err
	}
	entry.PaymentsClaimed = entry.InstallmentsPaid
	bidID := entry.SelectedBidID
	if entry.PaymentsClaimed == entry.Plan.TotalInstallments() {
		if err := e.state.MarketEntryDelete(entry.ID); err != nil {
			return nil, err
		}
		if err := e.state.MarketBidDelete(bidID); err != nil {
			return nil, err
		}
	} else if err := e.state.MarketEntryPut(entry); err != nil {
		return nil, err
	}
	e.emit(NewPaymentWithdrawnEvent(entry, bidID, amount))
	return amount, nil
}

// WithdrawBid refunds an unselected bid in full once the bidding window has
// closed. Bids orphaned by a withdrawn listing stay refundable through this
// path.
func (e *Engine) WithdrawBid(caller [20]byte, bidID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	bid, err := e.loadBid(bidID)
	if err != nil {
		return err
	}
	if caller != bid.Buyer {
		return ErrCallerNotBuyer
	}
	if bid.Selected {
		return ErrBidderSelected
	}
	entry, ok := e.state.MarketEntryGet(bid.EntryID)
	if ok && e.now() <= e.biddingDeadline(entry) {
		return ErrBiddingPeriodNotOver
	}
	refund := cloneBigInt(bid.PricePaid)
	if err := e.transferFunds(e.vault, bid.Buyer, refund); err != nil {
		return err
	}
	if err := e.state.MarketBidDelete(bid.ID); err != nil {
		return err
	}
	if ok {
		if entry.TotalBids > 0 {
			entry.TotalBids--
		}
		if err := e.state.MarketEntryPut(entry); err != nil {
			return err
		}
	}
	e.emit(NewBidWithdrawnEvent(bid, refund))
	return nil
}

// WithdrawSell cancels a listing after the bidding window, returning the
// asset to the seller. Outstanding bids remain individually refundable.
func (e *Engine) WithdrawSell(caller [20]byte, entryID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	entry, err := e.loadEntry(entryID)
	if err != nil {
		return err
	}
	if caller != entry.Seller {
		return ErrCallerNotSeller
	}
	if entry.SelectedBidID != 0 {
		return ErrBidderSelected
	}
	if e.now() <= e.biddingDeadline(entry) {
		return ErrBiddingPeriodNotOver
	}
	if err := e.registry.Transfer(entry.Collection, entry.AssetID, e.vault, entry.Seller); err != nil {
		return err
	}
	if err := e.state.MarketEntryDelete(entry.ID); err != nil {
		return err
	}
	e.emit(NewSellWithdrawnEvent(entry))
	return nil
}

// Liquidate lets a third party absorb a defaulted buyer's position by paying
// the defaulter's exit equity (95% of funds contributed) plus the missed
// installment. The 5% haircut stays in escrow for the seller.
func (e *Engine) Liquidate(caller [20]byte, entryID uint64, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	entry, err := e.loadEntry(entryID)
	if err != nil {
		return err
	}
	if entry.SelectedBidID == 0 {
		return ErrNoBidSelected
	}
	bid, err := e.loadBid(entry.SelectedBidID)
	if err != nil {
		return err
	}
	if caller == entry.Seller || caller == bid.Buyer {
		return ErrInvalidCaller
	}
	total := entry.Plan.TotalInstallments()
	if entry.InstallmentsPaid >= total {
		return ErrInstallmentsComplete
	}
	next := entry.InstallmentsPaid + 1
	due := dueDate(bid.Timestamp, next)
	if e.now() <= due+e.gracePeriod {
		return ErrInstallmentOnTrack
	}
	refund := permilleOf(bid.PricePaid, liquidationRefundPermille)
	amount := InstallmentAmount(entry.Plan, entry.Price, next)
	required := new(big.Int).Add(refund, amount)
	if value == nil || value.Cmp(required) != 0 {
		return ErrInvalidLiquidationValue
	}
	if err := e.transferFunds(caller, e.vault, required); err != nil {
		return err
	}
	if err := e.transferFunds(e.vault, bid.Buyer, refund); err != nil {
		return err
	}
	defaulted := bid.Buyer
	bid.Buyer = caller
	bid.PricePaid = new(big.Int).Add(bid.PricePaid, amount)
	entry.InstallmentsPaid = next
	term := dueDate(bid.Timestamp, total) + OneMonth
	if err := e.rights.SetUser(bid.CertificateID, caller, term); err != nil {
		return err
	}
	if next == total {
		if err := e.registry.Transfer(entry.Collection, entry.AssetID, e.vault, caller); err != nil {
			return err
		}
		if err := e.rights.Burn(bid.CertificateID); err != nil {
			return err
		}
	}
	if err := e.state.MarketBidPut(bid); err != nil {
		return err
	}
	if err := e.state.MarketEntryPut(entry); err != nil {
		return err
	}
	evt := NewLiquidatedEvent(entry, bid, next, value)
	evt.Attributes["defaultedBuyer"] = fmt.Sprintf("%x", defaulted)
	e.emit(evt)
	return nil
}
