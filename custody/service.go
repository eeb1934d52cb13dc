// ABOUTME: Wallet custody service orchestrating passkey, KDF, cipher and store.
// ABOUTME: Owns session state and the four entry operations setup/load/export/import.
package custody

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Service runs the custody pipelines. One logical actor per operation:
// calls touching the same identity label are serialized through a per-label
// latch because the store has no transactional isolation.
type Service struct {
	cfg     Config
	auth    Authenticator
	store   *Store
	dialer  Dialer
	session *Session

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService validates cfg and wires the collaborators. dialer may be nil
// when no chain connectivity is configured.
func NewService(cfg Config, auth Authenticator, store *Store, dialer Dialer) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, errors.New("custody: authenticator required")
	}
	if store == nil {
		return nil, errors.New("custody: store required")
	}
	return &Service{
		cfg:     cfg,
		auth:    auth,
		store:   store,
		dialer:  dialer,
		session: &Session{},
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Session exposes the explicit session object owned by the service.
func (s *Service) Session() *Session { return s.session }

// Setup registers a new passkey, generates a wallet, seals it and stores
// the record under identityLabel. A second Setup for the same label
// produces an unrelated wallet that overwrites the first.
func (s *Service) Setup(ctx context.Context, identityLabel string) Result {
	const op = "setup"
	label, err := normalizeLabel(identityLabel, ErrCreationFailed)
	if err != nil {
		return failure(op, err)
	}
	unlock := s.lockLabel(label)
	defer unlock()

	cred, err := s.auth.Register(ctx, label)
	if err != nil {
		return failure(op, err)
	}
	key, err := DeriveWrapKey(cred, s.cfg.KDF)
	if err != nil {
		return failure(op, err)
	}
	defer key.Zero()

	wallet, err := GenerateWallet()
	if err != nil {
		return failure(op, err)
	}
	if res, ok := s.sealAndStore(ctx, op, key, wallet, label); !ok {
		return res
	}
	s.session.set(wallet)
	return success(wallet.Address)
}

// Load authenticates against the registered passkey and reconstitutes the
// wallet stored under identityLabel.
func (s *Service) Load(ctx context.Context, identityLabel string) Result {
	const op = "load"
	label, err := normalizeLabel(identityLabel, ErrNotFound)
	if err != nil {
		return failure(op, err)
	}
	unlock := s.lockLabel(label)
	defer unlock()

	cred, err := s.auth.Authenticate(ctx)
	if err != nil {
		return failure(op, err)
	}
	key, err := DeriveWrapKey(cred, s.cfg.KDF)
	if err != nil {
		return failure(op, err)
	}
	defer key.Zero()

	rec, err := s.store.Get(ctx, label)
	if err != nil {
		return failure(op, err)
	}

	blob, err := Open(key, rec.Envelope, []byte(label))
	if err != nil {
		// The common cause is a passkey other than the one used at
		// setup; report it as such rather than a bare crypto error.
		return failure(op, fmt.Errorf("%w: %v", ErrAuthenticationMismatch, err))
	}
	wallet, err := UnmarshalSigningKey(blob)
	zeroBytes(blob)
	if err != nil {
		return failure(op, fmt.Errorf("%w: %v", ErrAuthenticationMismatch, err))
	}

	s.session.set(wallet)
	return success(wallet.Address)
}

// Export returns the decrypted recovery phrase. It requires an active
// session; callers wanting a fresh authentication gate run Authenticate
// themselves first.
func (s *Service) Export() (string, error) {
	return s.session.Mnemonic()
}

// BackupPayload is the QR backup document produced by ExportBackup.
type BackupPayload struct {
	Type      string `json:"type"`
	Phrase    string `json:"phrase"`
	Timestamp int64  `json:"timestamp"`
}

// ExportBackup wraps Export into the scannable backup format.
func (s *Service) ExportBackup() (BackupPayload, error) {
	phrase, err := s.Export()
	if err != nil {
		return BackupPayload{}, err
	}
	return BackupPayload{
		Type:      "cosmos-wallet-backup",
		Phrase:    phrase,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// QR serializes the payload for QR rendering.
func (p BackupPayload) QR() ([]byte, error) {
	return json.Marshal(p)
}

// Import validates phrase first, then authenticates, seals and overwrites
// any prior record for identityLabel.
func (s *Service) Import(ctx context.Context, phrase, identityLabel string) Result {
	const op = "import"
	label, err := normalizeLabel(identityLabel, ErrCreationFailed)
	if err != nil {
		return failure(op, err)
	}
	unlock := s.lockLabel(label)
	defer unlock()

	wallet, err := WalletFromMnemonic(phrase)
	if err != nil {
		return failure(op, err)
	}

	cred, err := s.auth.Authenticate(ctx)
	if err != nil {
		return failure(op, err)
	}
	key, err := DeriveWrapKey(cred, s.cfg.KDF)
	if err != nil {
		return failure(op, err)
	}
	defer key.Zero()

	if res, ok := s.sealAndStore(ctx, op, key, wallet, label); !ok {
		return res
	}
	s.session.set(wallet)
	return success(wallet.Address)
}

// Connect obtains a signer-ready client for the active session.
func (s *Service) Connect(ctx context.Context) error {
	key := s.session.signingKey()
	if key == nil {
		return ErrNoActiveSession
	}
	if s.dialer == nil {
		return fmt.Errorf("%w: no ledger client configured", ErrChainConnectionFailed)
	}
	signer, err := s.dialer.Connect(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainConnectionFailed, err)
	}
	s.session.setSigner(signer)
	return nil
}

// Send broadcasts a transfer through the session's signer, connecting
// lazily if needed. Failures surface once; no internal retries.
func (s *Service) Send(ctx context.Context, to, amount, denom string) (string, error) {
	if s.session.currentSigner() == nil {
		if err := s.Connect(ctx); err != nil {
			return "", err
		}
	}
	hash, err := s.session.currentSigner().Send(ctx, to, amount, denom)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	return hash, nil
}

// Balance queries the active address's balance in denom base units.
func (s *Service) Balance(ctx context.Context, denom string) (string, error) {
	if s.session.currentSigner() == nil {
		if err := s.Connect(ctx); err != nil {
			return "", err
		}
	}
	bal, err := s.session.currentSigner().Balance(ctx, denom)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChainConnectionFailed, err)
	}
	return bal, nil
}

// Logout clears the session.
func (s *Service) Logout() {
	s.session.Clear()
}

func (s *Service) sealAndStore(ctx context.Context, op string, key WrapKey, wallet *SigningKey, label string) (Result, bool) {
	blob, err := wallet.Marshal()
	if err != nil {
		return failure(op, err), false
	}
	env, err := Seal(key, blob, []byte(label))
	zeroBytes(blob)
	if err != nil {
		return failure(op, err), false
	}
	if err := s.store.Put(ctx, WalletRecord{Label: label, Address: wallet.Address, Envelope: env}); err != nil {
		return failure(op, err), false
	}
	return Result{}, true
}

func (s *Service) lockLabel(label string) func() {
	s.mu.Lock()
	l, ok := s.locks[label]
	if !ok {
		l = &sync.Mutex{}
		s.locks[label] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func normalizeLabel(label string, sentinel error) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("%w: identity label required", sentinel)
	}
	return label, nil
}
