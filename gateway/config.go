package gateway

import (
	"fmt"
	"time"

	"github.com/40acres/lngateway/lightning"
)

// MaxPollTimeout bounds how long a polling request may wait on the node.
const MaxPollTimeout = 120 * time.Second

// ErrInvalidConfig is returned when the gateway configuration is invalid
func ErrInvalidConfig(message string) error {
	return fmt.Errorf("invalid gateway config: %s", message)
}

// Config holds the settings of the invoice lifecycle
type Config struct {
	Coin lightning.Coin
	// Outbound node calls made while answering a poll share this deadline
	PollTimeout time.Duration
	// A renewal claimed longer ago than this is considered abandoned
	RenewalTimeout time.Duration
	// How often orders awaiting payment are checked in the background, 0 disables it
	SweepInterval time.Duration
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Coin:           lightning.Bitcoin,
		PollTimeout:    30 * time.Second,
		RenewalTimeout: 2 * time.Minute,
		SweepInterval:  time.Minute,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := lightning.ParseCoin(string(c.Coin)); err != nil {
		return ErrInvalidConfig(err.Error())
	}
	if c.PollTimeout <= 0 {
		return ErrInvalidConfig("poll timeout must be positive")
	}
	if c.PollTimeout > MaxPollTimeout {
		return ErrInvalidConfig(fmt.Sprintf("poll timeout must not exceed %s", MaxPollTimeout))
	}
	if c.RenewalTimeout <= 0 {
		return ErrInvalidConfig("renewal timeout must be positive")
	}
	if c.SweepInterval < 0 {
		return ErrInvalidConfig("sweep interval must be non-negative")
	}

	return nil
}
