package config

import (
	"errors"
	"fmt"
)

type Policy string

const (
	PolicyPropShare Policy = "propshare"
	// PolicyTFT keeps its optimistic peer between rotations and ranks over
	// two rounds of history.
	PolicyTFT Policy = "tft"
	// PolicyStd and PolicyTourney draw a new optimistic peer every round and
	// rank over the last round only.
	PolicyStd     Policy = "std"
	PolicyTourney Policy = "tourney"
	PolicyTyrant  Policy = "tyrant"
	PolicyNever   Policy = "never"
)

var Policies = []Policy{PolicyPropShare, PolicyTFT, PolicyStd, PolicyTourney, PolicyTyrant, PolicyNever}

var ErrInvalidConfig = errors.New("invalid config")
var ErrUnknownPolicy = errors.New("unknown policy")

// Config is fixed when a peer strategy is built.
type Config struct {
	Policy             Policy
	UploadCapacity     int
	MaxRequestsPerPeer int
	Seed               int64

	OptimisticFraction float64

	Slots           int
	OptimisticSlots int
	Lookback        int
	RotationPeriod  int

	InitialPrice     float64
	Growth           float64
	Shrink           float64
	ConfidenceRounds int
	AssumedPeerSlots int
	PriceFloor       float64
	Redistribute     bool
}

func Default() Config {
	return Config{
		Policy:             PolicyTFT,
		UploadCapacity:     40,
		MaxRequestsPerPeer: 5,
		Seed:               1,
		OptimisticFraction: 0.1,
		Slots:              4,
		OptimisticSlots:    1,
		Lookback:           2,
		RotationPeriod:     3,
		Growth:             1.2,
		Shrink:             0.9,
		ConfidenceRounds:   3,
		AssumedPeerSlots:   4,
		PriceFloor:         1,
		Redistribute:       true,
	}
}

func ParsePolicy(name string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

func (c Config) Validate() error {
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	switch {
	case c.UploadCapacity < 0:
		return fmt.Errorf("%w: upload capacity must not be negative", ErrInvalidConfig)
	case c.MaxRequestsPerPeer < 0:
		return fmt.Errorf("%w: max requests per peer must not be negative", ErrInvalidConfig)
	case c.OptimisticFraction < 0 || c.OptimisticFraction > 1:
		return fmt.Errorf("%w: optimistic fraction must be within [0, 1]", ErrInvalidConfig)
	case c.Slots < 1 || c.OptimisticSlots < 0 || c.OptimisticSlots > c.Slots:
		return fmt.Errorf("%w: need at least one slot and no more optimistic slots than slots", ErrInvalidConfig)
	case c.Lookback < 1:
		return fmt.Errorf("%w: lookback must be at least one round", ErrInvalidConfig)
	case c.RotationPeriod < 0:
		return fmt.Errorf("%w: rotation period must not be negative", ErrInvalidConfig)
	case c.InitialPrice < 0 || c.PriceFloor < 0:
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidConfig)
	case c.Growth < 1:
		return fmt.Errorf("%w: growth factor must be at least 1", ErrInvalidConfig)
	case c.Shrink <= 0 || c.Shrink >= 1:
		return fmt.Errorf("%w: shrink factor must be within (0, 1)", ErrInvalidConfig)
	case c.ConfidenceRounds < 1:
		return fmt.Errorf("%w: confidence rounds must be at least one", ErrInvalidConfig)
	case c.AssumedPeerSlots < 1:
		return fmt.Errorf("%w: assumed peer slots must be at least one", ErrInvalidConfig)
	}
	return nil
}
