package custody

import (
	"errors"
	"time"
)

// CeremonyConfig controls authenticator ceremonies. Fields are fixed and
// typed; Validate runs once at construction.
type CeremonyConfig struct {
	RPID             string        // relying-party identifier the credential is bound to
	Timeout          time.Duration // whole-ceremony budget
	UserVerification string        // "required", "preferred", or "discouraged"
}

// DefaultCeremonyConfig returns the ceremony settings the wallet app ships with.
func DefaultCeremonyConfig() CeremonyConfig {
	return CeremonyConfig{
		RPID:             "cycles.local",
		Timeout:          60 * time.Second,
		UserVerification: "required",
	}
}

// Validate rejects malformed ceremony settings up front.
func (c CeremonyConfig) Validate() error {
	if c.RPID == "" {
		return errors.New("ceremony: rp id required")
	}
	if c.Timeout <= 0 {
		return errors.New("ceremony: timeout must be positive")
	}
	switch c.UserVerification {
	case "required", "preferred", "discouraged":
	default:
		return errors.New("ceremony: user verification must be required, preferred, or discouraged")
	}
	return nil
}

// KDFParams configures the credential-to-key derivation hardness.
type KDFParams struct {
	Iterations int // PBKDF2-SHA256 rounds
}

// DefaultKDFParams returns defaults reasonable for phones and laptops.
func DefaultKDFParams() KDFParams {
	return KDFParams{Iterations: 210_000}
}

// Validate enforces the derivation floor.
func (p KDFParams) Validate() error {
	if p.Iterations < 100_000 {
		return errors.New("kdf: iterations below 100000")
	}
	return nil
}

// Config wires the custody service together.
type Config struct {
	Ceremony  CeremonyConfig
	KDF       KDFParams
	StorePath string // sqlite file holding wallet records
}

// DefaultConfig returns a Config with library defaults applied; callers
// still need to fill StorePath.
func DefaultConfig() Config {
	return Config{
		Ceremony: DefaultCeremonyConfig(),
		KDF:      DefaultKDFParams(),
	}
}

// Validate checks the whole service configuration.
func (c Config) Validate() error {
	if err := c.Ceremony.Validate(); err != nil {
		return err
	}
	if err := c.KDF.Validate(); err != nil {
		return err
	}
	if c.StorePath == "" {
		return errors.New("config: store path required")
	}
	return nil
}
