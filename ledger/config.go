package ledger

import "errors"

// Config holds chain connection settings.
type Config struct {
	GRPCEndpoint string
	ChainID      string
	Denom        string // base denom for fees and default transfers
	FeeAmount    int64  // flat fee in base denom units
	GasLimit     uint64
}

// DefaultConfig returns the settings the wallet app ships with.
func DefaultConfig() Config {
	return Config{
		GRPCEndpoint: "grpc.cosmos.network:443",
		ChainID:      "cosmoshub-4",
		Denom:        "uatom",
		FeeAmount:    500,
		GasLimit:     200_000,
	}
}

// Validate rejects incomplete configs before any dial happens.
func (c Config) Validate() error {
	if c.GRPCEndpoint == "" {
		return errors.New("ledger: grpc endpoint required")
	}
	if c.ChainID == "" {
		return errors.New("ledger: chain id required")
	}
	if c.Denom == "" {
		return errors.New("ledger: denom required")
	}
	if c.GasLimit == 0 {
		return errors.New("ledger: gas limit required")
	}
	return nil
}
