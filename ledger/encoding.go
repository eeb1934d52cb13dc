package ledger

import (
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/std"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
)

// encodingConfig carries the minimal codec surface a signing client needs:
// auth accounts for sequence queries and bank messages for transfers.
type encodingConfig struct {
	registry codectypes.InterfaceRegistry
	codec    codec.Codec
	txConfig client.TxConfig
}

func makeEncodingConfig() encodingConfig {
	registry := codectypes.NewInterfaceRegistry()
	std.RegisterInterfaces(registry)
	authtypes.RegisterInterfaces(registry)
	banktypes.RegisterInterfaces(registry)

	cdc := codec.NewProtoCodec(registry)
	return encodingConfig{
		registry: registry,
		codec:    cdc,
		txConfig: authtx.NewTxConfig(cdc, authtx.DefaultSignModes),
	}
}
