package custody

import (
	"bytes"
	"errors"
	"testing"
)

func testKey(t *testing.T, seed string) WrapKey {
	t.Helper()
	k, err := DeriveWrapKey(Credential{RawID: []byte(seed)}, DefaultKDFParams())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return k
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(t, "roundtrip")
	aad := []byte("alice")
	msg := []byte("wallet secret")

	env, err := Seal(key, msg, aad)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if env.Version != EnvelopeVersion {
		t.Errorf("version = %d, want %d", env.Version, EnvelopeVersion)
	}
	if len(env.IV) != 12 {
		t.Errorf("iv length = %d, want 12", len(env.IV))
	}

	plain, err := Open(key, env, aad)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(plain, msg) {
		t.Fatalf("expected %q got %q", msg, plain)
	}
}

func TestSealFreshIVPerCall(t *testing.T) {
	key := testKey(t, "fresh-iv")
	a, err := Seal(key, []byte("p"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := Seal(key, []byte("p"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(a.IV, b.IV) {
		t.Fatal("iv reused across seal calls")
	}
}

func TestOpenWrongKey(t *testing.T) {
	env, err := Seal(testKey(t, "key-one"), []byte("p"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(testKey(t, "key-two"), env, nil); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpenTamperedCiphertext(t *testing.T) {
	key := testKey(t, "tamper")
	env, err := Seal(key, []byte("p"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	env.Ciphertext[0] ^= 0xff
	if _, err := Open(key, env, nil); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpenWrongAAD(t *testing.T) {
	key := testKey(t, "aad")
	env, err := Seal(key, []byte("p"), []byte("alice"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(key, env, []byte("bob")); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpenCorruptEnvelope(t *testing.T) {
	key := testKey(t, "corrupt")
	cases := []Envelope{
		{Version: 99, IV: make([]byte, 12)},
		{Version: EnvelopeVersion, IV: make([]byte, 5)},
		{Version: EnvelopeVersion, IV: make([]byte, 12), Ciphertext: nil},
	}
	for i, env := range cases {
		if _, err := Open(key, env, nil); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("case %d: expected ErrDecryptionFailed, got %v", i, err)
		}
	}
}
