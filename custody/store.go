package custody

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// WalletRecord is the stored value for one identity label. Address lives
// in cleartext so the UI can display it without a decryption ceremony.
type WalletRecord struct {
	Label    string
	Address  string
	Envelope Envelope
}

// Store persists wallet records in a local SQLite database. Single writer
// per label; concurrent puts for the same label race and the last write
// wins.
type Store struct {
	db *sql.DB
}

// OpenStore opens/creates the database and runs migrations. Schema
// creation is idempotent and never destroys existing records.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS wallets (
  label TEXT PRIMARY KEY,
  version INTEGER NOT NULL,
  iv BLOB NOT NULL,
  ciphertext BLOB NOT NULL,
  address TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	return err
}

// Put upserts the record for rec.Label, overwriting any prior one.
func (s *Store) Put(ctx context.Context, rec WalletRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO wallets(label, version, iv, ciphertext, address, updated_at)
VALUES(?,?,?,?,?,?)
ON CONFLICT(label) DO UPDATE SET
  version=excluded.version,
  iv=excluded.iv,
  ciphertext=excluded.ciphertext,
  address=excluded.address,
  updated_at=excluded.updated_at`,
		rec.Label, rec.Envelope.Version, rec.Envelope.IV, rec.Envelope.Ciphertext,
		rec.Address, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Get fetches the record stored under label.
func (s *Store) Get(ctx context.Context, label string) (WalletRecord, error) {
	rec := WalletRecord{Label: label}
	err := s.db.QueryRowContext(ctx, `
SELECT version, iv, ciphertext, address FROM wallets WHERE label = ?`, label).
		Scan(&rec.Envelope.Version, &rec.Envelope.IV, &rec.Envelope.Ciphertext, &rec.Address)
	if err == sql.ErrNoRows {
		return WalletRecord{}, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	if err != nil {
		return WalletRecord{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return rec, nil
}
