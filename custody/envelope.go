package custody

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// EnvelopeVersion tags the current ciphertext layout: ChaCha20-Poly1305
// with a 12-byte IV and the auth tag folded into the ciphertext.
const EnvelopeVersion = 1

const ivSize = chacha20poly1305.NonceSize

// Envelope is the persisted form of a wrapped wallet secret.
type Envelope struct {
	Version    uint32 `json:"version"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under key with a fresh random IV. IV uniqueness
// is owned here, never by the caller. aad binds context (the identity
// label) into the auth tag and may be nil.
func Seal(key WrapKey, plaintext, aad []byte) (Envelope, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return Envelope{}, fmt.Errorf("seal: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, fmt.Errorf("seal: %w", err)
	}
	ct := aead.Seal(nil, iv, plaintext, aad)
	return Envelope{Version: EnvelopeVersion, IV: iv, Ciphertext: ct}, nil
}

// Open decrypts an envelope. Any failure — wrong key, tampered ciphertext,
// corrupted envelope — surfaces as the same ErrDecryptionFailed so callers
// cannot distinguish why.
func Open(key WrapKey, env Envelope, aad []byte) ([]byte, error) {
	if env.Version != EnvelopeVersion || len(env.IV) != ivSize {
		return nil, ErrDecryptionFailed
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	pt, err := aead.Open(nil, env.IV, env.Ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return pt, nil
}
