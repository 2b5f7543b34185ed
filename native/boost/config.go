package boost

import (
	"fmt"
	"math/big"
	"strings"
)

// Config controls the behaviour of the boost engine.
//
// All monetary values are expressed in the smallest denomination of the
// reserve token (wei-style integers). The reserve token and oracle reference
// are fixed at seeding time; everything else is owner-mutable.
type Config struct {
	Multiplier        uint64
	MaxBoostPerWinner *big.Int
	ReserveToken      string
	Oracle            [20]byte
	Paused            bool
}

// Clone produces a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := &Config{
		Multiplier:   c.Multiplier,
		ReserveToken: c.ReserveToken,
		Oracle:       c.Oracle,
		Paused:       c.Paused,
	}
	if c.MaxBoostPerWinner != nil {
		clone.MaxBoostPerWinner = new(big.Int).Set(c.MaxBoostPerWinner)
	}
	return clone
}

// Normalize ensures pointer fields are non-nil and string fields canonical.
// The method returns the receiver to allow chaining.
func (c *Config) Normalize() *Config {
	if c == nil {
		return nil
	}
	c.ReserveToken = strings.ToUpper(strings.TrimSpace(c.ReserveToken))
	if c.MaxBoostPerWinner == nil {
		c.MaxBoostPerWinner = big.NewInt(0)
	}
	if c.MaxBoostPerWinner.Sign() < 0 {
		c.MaxBoostPerWinner = big.NewInt(0)
	}
	return c
}

// Validate performs static validation of the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.ReserveToken) == "" {
		return fmt.Errorf("%w: reserve token must be configured", ErrInvalidConfig)
	}
	if c.MaxBoostPerWinner != nil && c.MaxBoostPerWinner.Sign() < 0 {
		return fmt.Errorf("%w: per-winner limit must not be negative", ErrInvalidConfig)
	}
	return nil
}
