package custody

import (
	"context"
	"sync"
)

// SignerClient is the signer-ready handle the ledger collaborator returns.
type SignerClient interface {
	Send(ctx context.Context, to, amount, denom string) (txHash string, err error)
	Balance(ctx context.Context, denom string) (string, error)
	Close() error
}

// Dialer connects serialized signing-key material to the chain.
type Dialer interface {
	Connect(ctx context.Context, key *SigningKey) (SignerClient, error)
}

// Session is the in-memory state built by Setup/Load/Import and discarded
// between app runs. Never persisted as a unit.
type Session struct {
	mu     sync.RWMutex
	key    *SigningKey
	signer SignerClient
}

// Active reports whether an unlock has populated the session.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Address returns the current wallet address, or "" when inactive.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return ""
	}
	return s.key.Address
}

// Mnemonic returns the decrypted recovery phrase for the active session.
func (s *Session) Mnemonic() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil || s.key.Mnemonic == "" {
		return "", ErrNoActiveSession
	}
	return s.key.Mnemonic, nil
}

// Clear wipes key material and drops the signer handle. Safe to call on an
// already-empty session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		s.key.Zero()
		s.key = nil
	}
	if s.signer != nil {
		_ = s.signer.Close()
		s.signer = nil
	}
}

func (s *Session) set(key *SigningKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		s.key.Zero()
	}
	if s.signer != nil {
		_ = s.signer.Close()
		s.signer = nil
	}
	s.key = key
}

func (s *Session) signingKey() *SigningKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *Session) setSigner(c SignerClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signer != nil {
		_ = s.signer.Close()
	}
	s.signer = c
}

func (s *Session) currentSigner() SignerClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer
}
