package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"nftmarket/core/types"
	"nftmarket/native/market"
)

const (
	entryKeyPrefix   = "market:entry:"
	bidKeyPrefix     = "market:bid:"
	accountKeyPrefix = "account:"
	entrySeqKey      = "market:seq:entry"
	bidSeqKey        = "market:seq:bid"
)

// Store persists marketplace entries, bids and account balances in a
// key-value database. It is the state backend handed to the market engine.
type Store struct {
	mu sync.Mutex
	db Database
}

// NewStore wraps the given database.
func NewStore(db Database) *Store {
	return &Store{db: db}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func entryKey(id uint64) []byte { return recordKey(entryKeyPrefix, id) }
func bidKey(id uint64) []byte   { return recordKey(bidKeyPrefix, id) }

// recordKey builds "<prefix><8-byte big-endian id>" so records iterate in id
// order.
func recordKey(prefix string, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}

func accountKey(addr [20]byte) []byte {
	key := make([]byte, len(accountKeyPrefix)+len(addr))
	copy(key, accountKeyPrefix)
	copy(key[len(accountKeyPrefix):], addr[:])
	return key
}

// MarketEntryPut validates and persists a listing record.
func (s *Store) MarketEntryPut(e *market.Entry) error {
	sanitized, err := market.SanitizeEntry(e)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("encode entry %d: %w", sanitized.ID, err)
	}
	return s.db.Put(entryKey(sanitized.ID), raw)
}

// MarketEntryGet loads a listing record by id.
func (s *Store) MarketEntryGet(id uint64) (*market.Entry, bool) {
	raw, err := s.db.Get(entryKey(id))
	if err != nil {
		return nil, false
	}
	var entry market.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// MarketEntryDelete removes a listing record. The id stays burnt: the
// sequence counter never hands it out again.
func (s *Store) MarketEntryDelete(id uint64) error {
	if _, err := s.db.Get(entryKey(id)); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return fmt.Errorf("delete unknown entry %d", id)
		}
		return err
	}
	return s.db.Delete(entryKey(id))
}

// MarketBidPut validates and persists a bid record.
func (s *Store) MarketBidPut(b *market.Bid) error {
	sanitized, err := market.SanitizeBid(b)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("encode bid %d: %w", sanitized.ID, err)
	}
	return s.db.Put(bidKey(sanitized.ID), raw)
}

// MarketBidGet loads a bid record by id.
func (s *Store) MarketBidGet(id uint64) (*market.Bid, bool) {
	raw, err := s.db.Get(bidKey(id))
	if err != nil {
		return nil, false
	}
	var bid market.Bid
	if err := json.Unmarshal(raw, &bid); err != nil {
		return nil, false
	}
	return &bid, true
}

// MarketBidDelete removes a bid record.
func (s *Store) MarketBidDelete(id uint64) error {
	if _, err := s.db.Get(bidKey(id)); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return fmt.Errorf("delete unknown bid %d", id)
		}
		return err
	}
	return s.db.Delete(bidKey(id))
}

// MarketNextEntryID allocates the next listing id, starting at 1.
func (s *Store) MarketNextEntryID() (uint64, error) {
	return s.nextSequence(entrySeqKey)
}

// MarketNextBidID allocates the next bid id, starting at 1.
func (s *Store) MarketNextBidID() (uint64, error) {
	return s.nextSequence(bidSeqKey)
}

func (s *Store) nextSequence(key string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current uint64
	raw, err := s.db.Get([]byte(key))
	switch {
	case errors.Is(err, ErrKeyNotFound):
	case err != nil:
		return 0, err
	case len(raw) != 8:
		return 0, fmt.Errorf("corrupt sequence counter %q", key)
	default:
		current = binary.BigEndian.Uint64(raw)
	}
	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := s.db.Put([]byte(key), buf); err != nil {
		return 0, err
	}
	return next, nil
}

// MarketEntryIDs returns every live listing id in ascending order.
func (s *Store) MarketEntryIDs() []uint64 {
	return s.listIDs(entryKeyPrefix)
}

// MarketBidIDs returns every live bid id in ascending order.
func (s *Store) MarketBidIDs() []uint64 {
	return s.listIDs(bidKeyPrefix)
}

func (s *Store) listIDs(prefix string) []uint64 {
	var ids []uint64
	_ = s.db.Iterate([]byte(prefix), func(key, _ []byte) error {
		if len(key) != len(prefix)+8 {
			return nil
		}
		ids = append(ids, binary.BigEndian.Uint64(key[len(prefix):]))
		return nil
	})
	return ids
}

// GetAccount loads an account, returning a zero-balance account when the
// address has never been seen.
func (s *Store) GetAccount(addr [20]byte) (*types.Account, error) {
	raw, err := s.db.Get(accountKey(addr))
	if errors.Is(err, ErrKeyNotFound) {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	if err != nil {
		return nil, err
	}
	var account types.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("decode account %x: %w", addr, err)
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return &account, nil
}

// PutAccount persists an account record.
func (s *Store) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("nil account for %x", addr)
	}
	raw, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encode account %x: %w", addr, err)
	}
	return s.db.Put(accountKey(addr), raw)
}
