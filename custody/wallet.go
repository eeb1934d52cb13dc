// ABOUTME: BIP39 mnemonic generation and Cosmos keypair derivation.
// ABOUTME: Produces the serializable signing-key material the ledger client consumes.
package custody

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/tyler-smith/go-bip39"
)

// DefaultHDPath is the BIP-44 derivation path for Cosmos accounts.
const DefaultHDPath = "m/44'/118'/0'/0/0"

// SigningKey is the recoverable wallet secret plus its derived keypair.
// Serialized as a whole into the encrypted envelope; treated as an opaque
// blob by everything except the ledger client.
type SigningKey struct {
	Mnemonic string `json:"mnemonic"`
	HDPath   string `json:"hd_path"`
	PrivKey  []byte `json:"priv_key"`
	PubKey   []byte `json:"pub_key"`
	Address  string `json:"address"`
}

// GenerateWallet mints a fresh 24-word mnemonic and derives its keypair.
func GenerateWallet() (*SigningKey, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	return WalletFromMnemonic(mnemonic)
}

// WalletFromMnemonic derives the keypair and cosmos1 address for an
// existing phrase. Checksum validation happens before any key material is
// touched.
func WalletFromMnemonic(mnemonic string) (*SigningKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if mnemonic == "" {
		return nil, fmt.Errorf("%w: empty phrase", ErrInvalidMnemonic)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, ch := hd.ComputeMastersFromSeed(seed)
	derived, err := hd.DerivePrivateKeyForPath(master, ch, DefaultHDPath)
	if err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	priv := &secp256k1.PrivKey{Key: derived}
	pub := priv.PubKey()
	return &SigningKey{
		Mnemonic: mnemonic,
		HDPath:   DefaultHDPath,
		PrivKey:  priv.Key,
		PubKey:   pub.Bytes(),
		Address:  sdk.AccAddress(pub.Address()).String(),
	}, nil
}

// Marshal serializes the signing key for sealing.
func (k *SigningKey) Marshal() ([]byte, error) {
	return json.Marshal(k)
}

// UnmarshalSigningKey reverses Marshal.
func UnmarshalSigningKey(data []byte) (*SigningKey, error) {
	var k SigningKey
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, err
	}
	if k.Mnemonic == "" || len(k.PrivKey) == 0 || k.Address == "" {
		return nil, errors.New("signing key blob missing fields")
	}
	return &k, nil
}

// Zero wipes private material. Strings cannot be wiped in place; the
// mnemonic is cleared by dropping the reference.
func (k *SigningKey) Zero() {
	zeroBytes(k.PrivKey)
	k.Mnemonic = ""
}
