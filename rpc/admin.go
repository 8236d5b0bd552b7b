package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"nftmarket/core/types"
)

// AssetMinter mints new assets into the custody registry.
type AssetMinter interface {
	Mint(collection [20]byte, assetID uint64, owner [20]byte) error
}

// AccountFunder credits ledger balances. The storage layer satisfies this.
type AccountFunder interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// EnableAdmin switches on the owner-gated provisioning endpoints: asset
// minting and balance crediting. Production deployments that source custody
// and balances elsewhere simply never call this.
func (s *Server) EnableAdmin(owner [20]byte, minter AssetMinter, funder AccountFunder) {
	s.adminOwner = owner
	s.minter = minter
	s.funder = funder
}

func (s *Server) requireAdmin(w http.ResponseWriter, caller [20]byte) bool {
	if s.minter == nil || s.funder == nil {
		writeError(w, http.StatusNotFound, "admin provisioning disabled")
		return false
	}
	if caller != s.adminOwner {
		writeError(w, http.StatusForbidden, "caller is not the marketplace owner")
		return false
	}
	return true
}

type mintAssetRequest struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	AssetID    uint64 `json:"assetId"`
	Owner      string `json:"owner"`
}

func (s *Server) handleMintAsset(w http.ResponseWriter, r *http.Request) {
	var req mintAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireAdmin(w, caller) {
		return
	}
	collection, err := parseAddress("collection", req.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.minter.Mint(collection, req.AssetID, owner); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "minted"})
}

type faucetRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireAdmin(w, caller) {
		return
	}
	target, err := parseAddress("address", req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := s.funder.GetAccount(target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	if err := s.funder.PutAccount(target, acc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": acc.Balance.String()})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	if s.funder == nil {
		writeError(w, http.StatusNotFound, "account lookups disabled")
		return
	}
	raw := strings.TrimSpace(chi.URLParam(r, "address"))
	addr, err := parseAddress("address", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := s.funder.GetAccount(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": common.Address(addr).Hex(),
		"balance": acc.Balance.String(),
	})
}
