package custody

import (
	"bytes"
	"testing"
)

func TestDeriveWrapKeyDeterministic(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	// Same registered passkey, structurally distinct handles.
	a := Credential{ID: "a", RawID: append([]byte(nil), raw...)}
	b := Credential{ID: "b", RawID: append([]byte(nil), raw...)}

	ka, err := DeriveWrapKey(a, DefaultKDFParams())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	kb, err := DeriveWrapKey(b, DefaultKDFParams())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(ka[:], kb[:]) {
		t.Fatal("same raw id must derive identical keys")
	}
}

func TestDeriveWrapKeyDistinctCredentials(t *testing.T) {
	ka, err := DeriveWrapKey(Credential{RawID: []byte("credential-one")}, DefaultKDFParams())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	kb, err := DeriveWrapKey(Credential{RawID: []byte("credential-two")}, DefaultKDFParams())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(ka[:], kb[:]) {
		t.Fatal("distinct credentials derived the same key")
	}
}

func TestDeriveWrapKeyRejectsEmptyHandle(t *testing.T) {
	if _, err := DeriveWrapKey(Credential{}, DefaultKDFParams()); err == nil {
		t.Fatal("expected error for empty raw id")
	}
}

func TestDeriveWrapKeyRejectsWeakParams(t *testing.T) {
	_, err := DeriveWrapKey(Credential{RawID: []byte("x")}, KDFParams{Iterations: 1000})
	if err == nil {
		t.Fatal("expected error for iteration count below floor")
	}
}

func TestWrapKeyZero(t *testing.T) {
	k, err := DeriveWrapKey(Credential{RawID: []byte("zero-me")}, DefaultKDFParams())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k.Zero()
	if k != (WrapKey{}) {
		t.Fatal("Zero left key material behind")
	}
}
