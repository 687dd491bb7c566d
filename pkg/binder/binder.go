// Package binder resolves a call against a set of candidate overloads and
// builds the execution plan that marshals the call-site arguments into the
// chosen method's parameters.
package binder

import (
	"fmt"
	"log/slog"
)

type Config struct {
	Narrowing NarrowingRange

	// MaxSplatExpansion bounds how many elements of a spread sequence are
	// bound as discrete arguments. The rest are collapsed.
	MaxSplatExpansion int

	// DisableDelegates forces every plan onto the tree path.
	DisableDelegates bool
}

func DefaultConfig() Config {
	return Config{
		Narrowing:         FullNarrowing(),
		MaxSplatExpansion: 8,
	}
}

func (c *Config) Validate(logger *slog.Logger) error {
	err := c.Narrowing.Validate()
	if err != nil {
		return err
	}

	if c.MaxSplatExpansion < 0 {
		return fmt.Errorf("max splat expansion must not be negative, got %d", c.MaxSplatExpansion)
	}

	if c.MaxSplatExpansion == 0 {
		logger.Debug("splat expansion disabled, every spread element is collapsed")
	}

	return nil
}

type Binder struct {
	logger      *slog.Logger
	Config      Config
	conversions Conversions
}

// New returns a binder. A nil conversions uses DefaultConversions.
func New(logger *slog.Logger, config Config, conversions Conversions) (*Binder, error) {
	err := config.Validate(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to validate binder config: %w", err)
	}

	if conversions == nil {
		conversions = DefaultConversions{}
	}

	return &Binder{
		logger:      logger,
		Config:      config,
		conversions: conversions,
	}, nil
}

func (b *Binder) Conversions() Conversions {
	return b.conversions
}
