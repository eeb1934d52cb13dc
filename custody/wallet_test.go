// ABOUTME: Tests for mnemonic generation and Cosmos keypair derivation.
// ABOUTME: Verifies address format, determinism and checksum rejection.
package custody

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var addressRe = regexp.MustCompile(`^cosmos1[a-z0-9]{38}$`)

func TestGenerateWallet(t *testing.T) {
	w, err := GenerateWallet()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := len(strings.Fields(w.Mnemonic)); got != 24 {
		t.Errorf("expected 24 words, got %d", got)
	}
	if !addressRe.MatchString(w.Address) {
		t.Errorf("address %q does not match cosmos1 format", w.Address)
	}
	if w.HDPath != DefaultHDPath {
		t.Errorf("hd path = %q, want %q", w.HDPath, DefaultHDPath)
	}
	if len(w.PrivKey) == 0 || len(w.PubKey) == 0 {
		t.Error("missing key material")
	}
}

func TestGenerateWalletUnrelated(t *testing.T) {
	a, err := GenerateWallet()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateWallet()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Address == b.Address {
		t.Fatal("two generated wallets share an address")
	}
}

func TestWalletFromMnemonicDeterministic(t *testing.T) {
	a, err := WalletFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("from mnemonic: %v", err)
	}
	b, err := WalletFromMnemonic("  abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon   about ")
	if err != nil {
		t.Fatalf("from mnemonic (unnormalized): %v", err)
	}
	if a.Address != b.Address {
		t.Fatalf("addresses differ: %s vs %s", a.Address, b.Address)
	}
	if !addressRe.MatchString(a.Address) {
		t.Errorf("address %q does not match cosmos1 format", a.Address)
	}
}

func TestWalletFromMnemonicRejectsBadChecksum(t *testing.T) {
	bad := []string{
		"",
		"not a real phrase",
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
	}
	for _, phrase := range bad {
		if _, err := WalletFromMnemonic(phrase); !errors.Is(err, ErrInvalidMnemonic) {
			t.Errorf("phrase %q: expected ErrInvalidMnemonic, got %v", phrase, err)
		}
	}
}

func TestSigningKeyMarshalRoundTrip(t *testing.T) {
	w, err := WalletFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("from mnemonic: %v", err)
	}
	blob, err := w.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalSigningKey(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Address != w.Address || got.Mnemonic != w.Mnemonic {
		t.Fatal("round trip lost fields")
	}
}

func TestUnmarshalSigningKeyRejectsPartialBlob(t *testing.T) {
	if _, err := UnmarshalSigningKey([]byte(`{"address":"cosmos1x"}`)); err == nil {
		t.Fatal("expected error for blob missing key material")
	}
	if _, err := UnmarshalSigningKey([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed blob")
	}
}
