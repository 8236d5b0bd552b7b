package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"nftmarket/native/market"
	"nftmarket/native/registry"
)

const requestLimit = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps engine sentinel errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, market.ErrInvalidEntryID),
		errors.Is(err, market.ErrInvalidBidID),
		errors.Is(err, registry.ErrUnknownAsset):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrCallerNotSeller),
		errors.Is(err, market.ErrCallerNotBuyer),
		errors.Is(err, market.ErrInvalidCaller),
		errors.Is(err, market.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, market.ErrBiddingPeriodOver),
		errors.Is(err, market.ErrBiddingPeriodNotOver),
		errors.Is(err, market.ErrPayAfterAppropriateTime),
		errors.Is(err, market.ErrDueDatePassed),
		errors.Is(err, market.ErrInstallmentOnTrack),
		errors.Is(err, market.ErrInstallmentsComplete),
		errors.Is(err, market.ErrNoInstallmentLeft),
		errors.Is(err, market.ErrCannotReselectBid),
		errors.Is(err, market.ErrCannotReclaimPayment),
		errors.Is(err, market.ErrBidderSelected),
		errors.Is(err, market.ErrNoBidSelected):
		status = http.StatusConflict
	case errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidPlan),
		errors.Is(err, market.ErrValueNotDownPayment),
		errors.Is(err, market.ErrInvalidInstallmentValue),
		errors.Is(err, market.ErrInvalidLiquidationValue),
		errors.Is(err, market.ErrInvalidInstallmentNumber),
		errors.Is(err, market.ErrInvalidBiddingPeriod),
		errors.Is(err, market.ErrInvalidGracePeriod):
		status = http.StatusBadRequest
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, requestLimit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func parseAddress(field, value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("%s must be a 0x-prefixed hex address", field)
	}
	return [20]byte(common.HexToAddress(trimmed)), nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%s required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a non-negative decimal integer", field)
	}
	return amount, nil
}

func parsePlan(value uint8) (market.InstallmentPlan, error) {
	plan := market.InstallmentPlan(value)
	if !plan.Valid() {
		return 0, fmt.Errorf("plan must be 0 (none), 1 (three months), 2 (six months) or 3 (nine months)")
	}
	return plan, nil
}

func pathID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

type entryPayload struct {
	ID               uint64 `json:"id"`
	OnSale           bool   `json:"onSale"`
	Seller           string `json:"seller"`
	Collection       string `json:"collection"`
	AssetID          uint64 `json:"assetId"`
	ListedAt         int64  `json:"listedAt"`
	Price            string `json:"price"`
	Plan             uint8  `json:"plan"`
	SelectedBidID    uint64 `json:"selectedBidId,omitempty"`
	InstallmentsPaid uint8  `json:"installmentsPaid"`
	PaymentsClaimed  uint8  `json:"paymentsClaimed"`
	TotalBids        uint64 `json:"totalBids"`
}

type bidPayload struct {
	ID            uint64 `json:"id"`
	EntryID       uint64 `json:"entryId"`
	Buyer         string `json:"buyer"`
	Price         string `json:"price"`
	Plan          uint8  `json:"plan"`
	PricePaid     string `json:"pricePaid"`
	Timestamp     int64  `json:"timestamp"`
	Selected      bool   `json:"selected"`
	CertificateID uint64 `json:"certificateId,omitempty"`
}

func encodeEntry(e *market.Entry) entryPayload {
	return entryPayload{
		ID:               e.ID,
		OnSale:           e.OnSale,
		Seller:           common.Address(e.Seller).Hex(),
		Collection:       common.Address(e.Collection).Hex(),
		AssetID:          e.AssetID,
		ListedAt:         e.ListedAt,
		Price:            e.Price.String(),
		Plan:             uint8(e.Plan),
		SelectedBidID:    e.SelectedBidID,
		InstallmentsPaid: e.InstallmentsPaid,
		PaymentsClaimed:  e.PaymentsClaimed,
		TotalBids:        e.TotalBids,
	}
}

func encodeBid(b *market.Bid) bidPayload {
	return bidPayload{
		ID:            b.ID,
		EntryID:       b.EntryID,
		Buyer:         common.Address(b.Buyer).Hex(),
		Price:         b.Price.String(),
		Plan:          uint8(b.Plan),
		PricePaid:     b.PricePaid.String(),
		Timestamp:     b.Timestamp,
		Selected:      b.Selected,
		CertificateID: b.CertificateID,
	}
}
