// Package config loads the immutable, process-wide configuration every
// replica boots from: the fixed validator roster, pacemaker timing
// constants and the faucet keypair, all sourced from environment
// variables per spec.md §6.4. It is constructed once at startup and
// never mutated afterward (spec.md §9 "Global state").
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable configuration shared by every subcomponent of
// a replica.
type Config struct {
	// NumValidators is N in the 3f+1 roster.
	NumValidators int
	// TickDuration is the pacemaker's base view timeout T0.
	TickDuration time.Duration
	// MultiplicativeFactor is the pacemaker's exponential backoff
	// factor M, M > 1.
	MultiplicativeFactor float64

	// PublicKeys[i] / SecretKeys[i] are the base58 encoded ed25519 keys
	// of validator i, i in [0, NumValidators).
	PublicKeys []string
	SecretKeys []string

	// FaucetPK / FaucetSK are the distinguished faucet account's keys,
	// used to sign Drip transactions on a client's behalf.
	FaucetPK string
	FaucetSK string
}

// New loads and validates configuration from environment variables
// bound to v. Missing mandatory variables are fatal per spec.md §7's
// Fatal-init error kind.
func New(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	if err := bindEnv(v,
		"TICK_DURATION",
		"MULTIPLICATIVE_FACTOR",
		"NUM_VALIDATORS",
		"FAUCET_PK",
		"FAUCET_SK",
	); err != nil {
		return nil, err
	}

	numValidators := v.GetInt("NUM_VALIDATORS")
	if numValidators <= 0 {
		return nil, fmt.Errorf("NUM_VALIDATORS is missing or not positive")
	}

	tickMs := v.GetInt64("TICK_DURATION")
	if tickMs <= 0 {
		return nil, fmt.Errorf("TICK_DURATION is missing or not positive")
	}

	factor := v.GetFloat64("MULTIPLICATIVE_FACTOR")
	if factor <= 1 {
		return nil, fmt.Errorf("MULTIPLICATIVE_FACTOR is missing or not > 1")
	}

	faucetPK := v.GetString("FAUCET_PK")
	faucetSK := v.GetString("FAUCET_SK")
	if faucetPK == "" || faucetSK == "" {
		return nil, fmt.Errorf("FAUCET_PK or FAUCET_SK is missing")
	}

	c := &Config{
		NumValidators:        numValidators,
		TickDuration:         time.Duration(tickMs) * time.Millisecond,
		MultiplicativeFactor: factor,
		PublicKeys:           make([]string, numValidators),
		SecretKeys:           make([]string, numValidators),
		FaucetPK:             faucetPK,
		FaucetSK:             faucetSK,
	}

	for i := 0; i < numValidators; i++ {
		pubVar := fmt.Sprintf("PUBLIC_KEY_%d", i)
		secVar := fmt.Sprintf("SECRET_KEY_%d", i)
		if err := bindEnv(v, pubVar, secVar); err != nil {
			return nil, err
		}

		pub := v.GetString(pubVar)
		sec := v.GetString(secVar)
		if pub == "" {
			return nil, fmt.Errorf("%s is missing", pubVar)
		}
		if sec == "" {
			return nil, fmt.Errorf("%s is missing", secVar)
		}
		c.PublicKeys[i] = pub
		c.SecretKeys[i] = sec
	}

	return c, nil
}

func bindEnv(v *viper.Viper, names ...string) error {
	for _, n := range names {
		if err := v.BindEnv(n); err != nil {
			return err
		}
	}
	return nil
}

// LeaderOf returns the validator id leading view.
func (c *Config) LeaderOf(view uint64) int {
	return int(view) % c.NumValidators
}

// QuorumSize is the minimum vote count (2f+1) needed to form a QC.
func (c *Config) QuorumSize() int {
	f := (c.NumValidators - 1) / 3
	return 2*f + 1
}

// FaultTolerance is f, the maximum number of Byzantine replicas
// tolerated for NumValidators = 3f+1.
func (c *Config) FaultTolerance() int {
	return (c.NumValidators - 1) / 3
}
