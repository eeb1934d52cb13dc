// ABOUTME: Cosmos ledger client consuming the custody service's signing-key material.
// ABOUTME: Signs bank transfers SIGN_MODE_DIRECT and broadcasts them over gRPC.
package ledger

import (
	"bytes"
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdktx "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authsigning "github.com/cosmos/cosmos-sdk/x/auth/signing"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"github.com/dusterbloom/wallet-gamma/custody"
)

// Dialer builds signer clients from serialized signing-key material. It is
// the concrete ledger collaborator the custody service consumes.
type Dialer struct {
	cfg Config
	enc encodingConfig
	log logrus.FieldLogger
}

// NewDialer validates cfg and prepares the codec surface.
func NewDialer(cfg Config, log logrus.FieldLogger) (*Dialer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dialer{cfg: cfg, enc: makeEncodingConfig(), log: log}, nil
}

// Connect dials the chain and returns a signer-ready client for key.
func (d *Dialer) Connect(ctx context.Context, key *custody.SigningKey) (custody.SignerClient, error) {
	if key == nil || len(key.PrivKey) == 0 {
		return nil, fmt.Errorf("ledger: signing key material required")
	}
	priv := &secp256k1.PrivKey{Key: key.PrivKey}
	if len(key.PubKey) > 0 && !bytes.Equal(priv.PubKey().Bytes(), key.PubKey) {
		return nil, fmt.Errorf("ledger: signing key material is inconsistent")
	}
	addr := sdk.AccAddress(priv.PubKey().Address())
	if key.Address != "" && key.Address != addr.String() {
		return nil, fmt.Errorf("ledger: address does not match signing key")
	}

	conn, err := grpc.NewClient(
		d.cfg.GRPCEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.cfg.GRPCEndpoint, err)
	}

	d.log.WithFields(logrus.Fields{
		"endpoint": d.cfg.GRPCEndpoint,
		"chain_id": d.cfg.ChainID,
		"address":  addr.String(),
	}).Info("ledger client connected")

	return &Client{
		cfg:  d.cfg,
		enc:  d.enc,
		log:  d.log,
		conn: conn,
		priv: priv,
		addr: addr,
	}, nil
}

// Client is a connected signer bound to one address.
type Client struct {
	cfg  Config
	enc  encodingConfig
	log  logrus.FieldLogger
	conn *grpc.ClientConn
	priv *secp256k1.PrivKey
	addr sdk.AccAddress
}

// Address returns the bech32 account address the client signs for.
func (c *Client) Address() string { return c.addr.String() }

// Close releases the chain connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Send signs and broadcasts a bank transfer, returning the tx hash.
func (c *Client) Send(ctx context.Context, to, amount, denom string) (string, error) {
	toAddr, err := sdk.AccAddressFromBech32(to)
	if err != nil {
		return "", fmt.Errorf("recipient address: %w", err)
	}
	amt, ok := sdkmath.NewIntFromString(amount)
	if !ok || !amt.IsPositive() {
		return "", fmt.Errorf("amount must be a positive integer, got %q", amount)
	}
	if denom == "" {
		denom = c.cfg.Denom
	}

	msg := banktypes.NewMsgSend(c.addr, toAddr, sdk.NewCoins(sdk.NewCoin(denom, amt)))

	txBuilder := c.enc.txConfig.NewTxBuilder()
	if err := txBuilder.SetMsgs(msg); err != nil {
		return "", fmt.Errorf("set messages: %w", err)
	}
	txBuilder.SetGasLimit(c.cfg.GasLimit)
	txBuilder.SetFeeAmount(sdk.NewCoins(sdk.NewCoin(c.cfg.Denom, sdkmath.NewInt(c.cfg.FeeAmount))))

	accNum, accSeq, err := c.accountNumbers(ctx)
	if err != nil {
		return "", err
	}

	signerData := authsigning.SignerData{
		Address:       c.addr.String(),
		ChainID:       c.cfg.ChainID,
		AccountNumber: accNum,
		Sequence:      accSeq,
		PubKey:        c.priv.PubKey(),
	}

	// Round one: placeholder signature so the sign bytes cover the right
	// signer infos.
	sigV2 := signing.SignatureV2{
		PubKey: c.priv.PubKey(),
		Data: &signing.SingleSignatureData{
			SignMode:  signing.SignMode_SIGN_MODE_DIRECT,
			Signature: nil,
		},
		Sequence: accSeq,
	}
	if err := txBuilder.SetSignatures(sigV2); err != nil {
		return "", fmt.Errorf("set signatures: %w", err)
	}

	sigV2, err = tx.SignWithPrivKey(
		ctx,
		signing.SignMode_SIGN_MODE_DIRECT,
		signerData,
		txBuilder,
		c.priv,
		c.enc.txConfig,
		accSeq,
	)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := txBuilder.SetSignatures(sigV2); err != nil {
		return "", fmt.Errorf("set final signatures: %w", err)
	}

	raw, err := c.enc.txConfig.TxEncoder()(txBuilder.GetTx())
	if err != nil {
		return "", fmt.Errorf("encode tx: %w", err)
	}

	res, err := sdktx.NewServiceClient(c.conn).BroadcastTx(ctx, &sdktx.BroadcastTxRequest{
		TxBytes: raw,
		Mode:    sdktx.BroadcastMode_BROADCAST_MODE_SYNC,
	})
	if err != nil {
		return "", fmt.Errorf("broadcast: %w", err)
	}
	if res.TxResponse == nil {
		return "", fmt.Errorf("broadcast: empty response")
	}
	if res.TxResponse.Code != 0 {
		return "", fmt.Errorf("broadcast rejected (code %d): %s", res.TxResponse.Code, res.TxResponse.RawLog)
	}

	c.log.WithFields(logrus.Fields{
		"to":      to,
		"amount":  amount,
		"denom":   denom,
		"tx_hash": res.TxResponse.TxHash,
	}).Info("transfer broadcast")

	return res.TxResponse.TxHash, nil
}

// Balance returns the address's balance in denom base units.
func (c *Client) Balance(ctx context.Context, denom string) (string, error) {
	if denom == "" {
		denom = c.cfg.Denom
	}
	res, err := banktypes.NewQueryClient(c.conn).Balance(ctx, &banktypes.QueryBalanceRequest{
		Address: c.addr.String(),
		Denom:   denom,
	})
	if err != nil {
		return "", fmt.Errorf("query balance: %w", err)
	}
	if res.Balance == nil {
		return "0", nil
	}
	return res.Balance.Amount.String(), nil
}

// AllBalances returns every denom the address holds.
func (c *Client) AllBalances(ctx context.Context) (sdk.Coins, error) {
	res, err := banktypes.NewQueryClient(c.conn).AllBalances(ctx, &banktypes.QueryAllBalancesRequest{
		Address: c.addr.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	return res.Balances, nil
}

func (c *Client) accountNumbers(ctx context.Context) (accNum, accSeq uint64, err error) {
	res, err := authtypes.NewQueryClient(c.conn).Account(ctx, &authtypes.QueryAccountRequest{
		Address: c.addr.String(),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("query account: %w", err)
	}
	var account sdk.AccountI
	if err := c.enc.registry.UnpackAny(res.Account, &account); err != nil {
		return 0, 0, fmt.Errorf("unpack account: %w", err)
	}
	return account.GetAccountNumber(), account.GetSequence(), nil
}
