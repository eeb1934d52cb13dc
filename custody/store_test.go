package custody

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "wallets.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(label, address, plaintext string) WalletRecord {
	return WalletRecord{
		Label:   label,
		Address: address,
		Envelope: Envelope{
			Version:    EnvelopeVersion,
			IV:         []byte("twelve-bytes"),
			Ciphertext: []byte(plaintext),
		},
	}
}

func TestStorePutGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := testRecord("alice", "cosmos1aaa", "ct-alice")
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Address != want.Address || string(got.Envelope.Ciphertext) != "ct-alice" {
		t.Fatalf("record mismatch: %+v", got)
	}
	if got.Envelope.Version != EnvelopeVersion {
		t.Errorf("version = %d", got.Envelope.Version)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get(context.Background(), "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorePutOverwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, testRecord("dave", "cosmos1old", "ct-old")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, testRecord("dave", "cosmos1new", "ct-new")); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, err := s.Get(ctx, "dave")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Address != "cosmos1new" || string(got.Envelope.Ciphertext) != "ct-new" {
		t.Fatal("second put did not overwrite first")
	}
}

func TestStoreReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallets.db")
	ctx := context.Background()

	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put(ctx, testRecord("carol", "cosmos1ccc", "ct")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Schema creation is idempotent and must not destroy records.
	s, err = OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, err := s.Get(ctx, "carol"); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
}
