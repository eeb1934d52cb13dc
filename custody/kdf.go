package custody

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// Versioned application salt and expansion label. Bumping either revs the
// envelope version alongside, since derived keys change.
const (
	kdfSaltV1      = "cycles/wrap/v1:pbkdf2"
	hkdfInfoWrapV1 = "cycles/wrap/v1:aead"
)

// WrapKey is the 256-bit AEAD key derived from a passkey credential. It is
// never persisted; callers Zero it as soon as the seal/open completes.
type WrapKey [32]byte

// Zero wipes the key material in place.
func (k *WrapKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// DeriveWrapKey turns a credential handle into the wallet wrapping key.
// The derivation keys off the stable RawID so that independent ceremonies
// against the same registered passkey reproduce the same key.
func DeriveWrapKey(cred Credential, params KDFParams) (WrapKey, error) {
	if len(cred.RawID) == 0 {
		return WrapKey{}, fmt.Errorf("%w: credential has no raw id", ErrKeyDerivationFailed)
	}
	if err := params.Validate(); err != nil {
		return WrapKey{}, fmt.Errorf("%w: %v", ErrKeyDerivationFailed, err)
	}

	master := pbkdf2.Key(cred.RawID, []byte(kdfSaltV1), params.Iterations, 32, sha256.New)
	defer zeroBytes(master)

	var key WrapKey
	r := hkdf.New(sha256.New, master, nil, []byte(hkdfInfoWrapV1))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return WrapKey{}, fmt.Errorf("%w: %v", ErrKeyDerivationFailed, err)
	}
	return key, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
