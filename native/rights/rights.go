// Package rights implements the time-boxed usage certificate issued to a
// winning bidder for the duration of the installment term. The marketplace
// engine is the sole privileged caller: it creates the grant at bid
// selection, reassigns the user on liquidation and burns it when the plan
// completes.
package rights

import (
	"errors"
	"sync"
)

var (
	ErrUnknownCertificate = errors.New("rights: unknown certificate")
	ErrExpiredInPast      = errors.New("rights: expiry must be in the future")
	ErrEmptyURI           = errors.New("rights: metadata uri required")
)

// Certificate is a transferable-but-usage-restricted grant. Holder owns the
// certificate; User carries the usage right until ExpiresAt.
type Certificate struct {
	ID        uint64
	Holder    [20]byte
	User      [20]byte
	ExpiresAt int64
	URI       string
}

// Issuer mints, reassigns and burns certificates. The marketplace engine is
// expected to be the only caller of the mutating methods.
type Issuer struct {
	mu     sync.RWMutex
	nextID uint64
	certs  map[uint64]*Certificate
	nowFn  func() int64
}

// NewIssuer returns an empty issuer reading time from now.
func NewIssuer(now func() int64) *Issuer {
	return &Issuer{
		certs: make(map[uint64]*Certificate),
		nowFn: now,
	}
}

func (i *Issuer) now() int64 {
	if i.nowFn == nil {
		return 0
	}
	return i.nowFn()
}

// Create mints a certificate to holder with the given expiry and metadata
// URI, returning the new certificate id. Ids are never reused.
func (i *Issuer) Create(holder [20]byte, expiresAt int64, uri string) (uint64, error) {
	if uri == "" {
		return 0, ErrEmptyURI
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if expiresAt <= i.now() {
		return 0, ErrExpiredInPast
	}
	i.nextID++
	id := i.nextID
	i.certs[id] = &Certificate{
		ID:        id,
		Holder:    holder,
		User:      holder,
		ExpiresAt: expiresAt,
		URI:       uri,
	}
	return id, nil
}

// SetUser reassigns the usage right, e.g. to a liquidator absorbing a
// defaulted position.
func (i *Issuer) SetUser(id uint64, user [20]byte, expiresAt int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	cert, ok := i.certs[id]
	if !ok {
		return ErrUnknownCertificate
	}
	cert.User = user
	cert.Holder = user
	cert.ExpiresAt = expiresAt
	return nil
}

// Burn destroys the certificate. Burning an unknown id is an error so the
// marketplace notices double-burns.
func (i *Issuer) Burn(id uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.certs[id]; !ok {
		return ErrUnknownCertificate
	}
	delete(i.certs, id)
	return nil
}

// UserOf returns the address currently carrying the usage right, or the zero
// address once the grant has expired.
func (i *Issuer) UserOf(id uint64) ([20]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	cert, ok := i.certs[id]
	if !ok {
		return [20]byte{}, ErrUnknownCertificate
	}
	if cert.ExpiresAt <= i.now() {
		return [20]byte{}, nil
	}
	return cert.User, nil
}

// UserExpires returns the expiry timestamp of the usage right.
func (i *Issuer) UserExpires(id uint64) (int64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	cert, ok := i.certs[id]
	if !ok {
		return 0, ErrUnknownCertificate
	}
	return cert.ExpiresAt, nil
}

// TotalSupply returns the number of live certificates.
func (i *Issuer) TotalSupply() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.certs)
}
