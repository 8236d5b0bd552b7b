package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks the loaded configuration for operator mistakes that would
// otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if !common.IsHexAddress(strings.TrimSpace(c.OwnerAddress)) {
		return fmt.Errorf("config: OwnerAddress must be a 0x-prefixed hex address")
	}
	if !common.IsHexAddress(strings.TrimSpace(c.VaultAddress)) {
		return fmt.Errorf("config: VaultAddress must be a 0x-prefixed hex address")
	}
	if c.Owner() == c.Vault() {
		return fmt.Errorf("config: OwnerAddress and VaultAddress must differ")
	}
	if c.BiddingPeriodSeconds <= 0 {
		return fmt.Errorf("config: BiddingPeriodSeconds must be positive")
	}
	if c.GracePeriodSeconds <= 0 {
		return fmt.Errorf("config: GracePeriodSeconds must be positive")
	}
	if c.RPCRateLimitPerSecond <= 0 {
		return fmt.Errorf("config: RPCRateLimitPerSecond must be positive")
	}
	if c.RPCRateLimitBurst <= 0 {
		return fmt.Errorf("config: RPCRateLimitBurst must be positive")
	}
	return nil
}

// Owner returns the privileged marketplace owner address. Call Validate
// first; an unparseable address returns the zero address.
func (c *Config) Owner() [20]byte {
	return [20]byte(common.HexToAddress(strings.TrimSpace(c.OwnerAddress)))
}

// Vault returns the escrow vault address.
func (c *Config) Vault() [20]byte {
	return [20]byte(common.HexToAddress(strings.TrimSpace(c.VaultAddress)))
}
