package rpc

import (
	"net/http"
	"strings"
)

type sellRequest struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	AssetID    uint64 `json:"assetId"`
	Price      string `json:"price"`
	Plan       uint8  `json:"plan"`
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	collection, err := parseAddress("collection", req.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := parseAmount("price", req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := parsePlan(req.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entryID, err := s.engine.Sell(caller, collection, req.AssetID, price, plan)
	if err != nil {
		s.metrics.RecordTransition("sell", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("sell", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusCreated, map[string]uint64{"entryId": entryID})
}

type placeBidRequest struct {
	Caller  string `json:"caller"`
	EntryID uint64 `json:"entryId"`
	Price   string `json:"price"`
	Plan    uint8  `json:"plan"`
	Value   string `json:"value"`
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := parseAmount("price", req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := parsePlan(req.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bidID, err := s.engine.PlaceBid(caller, req.EntryID, price, plan, value)
	if err != nil {
		s.metrics.RecordTransition("place_bid", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("place_bid", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusCreated, map[string]uint64{"bidId": bidID})
}

type selectBidRequest struct {
	Caller         string `json:"caller"`
	BidID          uint64 `json:"bidId"`
	CertificateURI string `json:"certificateUri"`
}

func (s *Server) handleSelectBid(w http.ResponseWriter, r *http.Request) {
	var req selectBidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.SelectBid(caller, req.BidID, strings.TrimSpace(req.CertificateURI)); err != nil {
		s.metrics.RecordTransition("select_bid", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("select_bid", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusOK, map[string]string{"status": "selected"})
}

type entryActionRequest struct {
	Caller  string `json:"caller"`
	EntryID uint64 `json:"entryId"`
	Value   string `json:"value,omitempty"`
}

func (s *Server) handlePayInstallment(w http.ResponseWriter, r *http.Request) {
	var req entryActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.PayInstallment(caller, req.EntryID, value); err != nil {
		s.metrics.RecordTransition("pay_installment", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("pay_installment", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (s *Server) handleWithdrawPayment(w http.ResponseWriter, r *http.Request) {
	var req entryActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := s.engine.WithdrawPayment(caller, req.EntryID)
	if err != nil {
		s.metrics.RecordTransition("withdraw_payment", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("withdraw_payment", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}

type bidActionRequest struct {
	Caller string `json:"caller"`
	BidID  uint64 `json:"bidId"`
}

func (s *Server) handleWithdrawBid(w http.ResponseWriter, r *http.Request) {
	var req bidActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.WithdrawBid(caller, req.BidID); err != nil {
		s.metrics.RecordTransition("withdraw_bid", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("withdraw_bid", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusOK, map[string]string{"status": "refunded"})
}

func (s *Server) handleWithdrawSell(w http.ResponseWriter, r *http.Request) {
	var req entryActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.WithdrawSell(caller, req.EntryID); err != nil {
		s.metrics.RecordTransition("withdraw_sell", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("withdraw_sell", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req entryActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Liquidate(caller, req.EntryID, value); err != nil {
		s.metrics.RecordTransition("liquidate", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("liquidate", "ok")
	s.publishGauges()
	writeJSON(w, http.StatusOK, map[string]string{"status": "liquidated"})
}

type periodRequest struct {
	Caller  string `json:"caller"`
	Seconds int64  `json:"seconds"`
}

func (s *Server) handleSetBiddingPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.SetBiddingPeriod(caller, req.Seconds); err != nil {
		s.metrics.RecordTransition("set_bidding_period", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("set_bidding_period", "ok")
	writeJSON(w, http.StatusOK, map[string]int64{"biddingPeriodSeconds": s.engine.BiddingPeriod()})
}

func (s *Server) handleSetGracePeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.SetGracePeriod(caller, req.Seconds); err != nil {
		s.metrics.RecordTransition("set_grace_period", "error")
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordTransition("set_grace_period", "ok")
	writeJSON(w, http.StatusOK, map[string]int64{"gracePeriodSeconds": s.engine.GracePeriod()})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var entries []entryPayload
	switch {
	case r.URL.Query().Get("seller") != "":
		seller, err := parseAddress("seller", r.URL.Query().Get("seller"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, e := range s.engine.EntriesBySeller(seller) {
			entries = append(entries, encodeEntry(e))
		}
	default:
		for _, e := range s.engine.EntriesOpenForSale() {
			entries = append(entries, encodeEntry(e))
		}
	}
	if entries == nil {
		entries = []entryPayload{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.engine.GetEntry(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeEntry(entry))
}

func (s *Server) handleEntryBids(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.engine.GetEntry(id); err != nil {
		writeEngineError(w, err)
		return
	}
	bids := []bidPayload{}
	for _, b := range s.engine.BidsForEntry(id) {
		bids = append(bids, encodeBid(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": bids})
}

func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bid, err := s.engine.GetBid(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeBid(bid))
}

type scheduleItem struct {
	Installment uint8  `json:"installment"`
	Amount      string `json:"amount"`
	DueDate     int64  `json:"dueDate,omitempty"`
}

// handleSchedule renders the full installment schedule for a bid. Due dates
// are included only once the bid has been selected, since selection anchors
// the clock.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bid, err := s.engine.GetBid(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	total := bid.Plan.TotalInstallments()
	items := []scheduleItem{}
	for n := uint8(1); n <= total; n++ {
		amount, err := s.engine.InstallmentAmountFor(id, n)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		item := scheduleItem{Installment: n, Amount: amount.String()}
		if bid.Selected {
			due, err := s.engine.InstallmentDueDate(id, n)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			item.DueDate = due
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"bidId": id, "schedule": items})
}
