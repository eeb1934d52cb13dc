// ABOUTME: Typed errors for wallet custody operations.
// ABOUTME: Enables programmatic error handling with errors.Is() and errors.As().
package custody

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic handling. Every failure a custody
// pipeline can surface maps onto exactly one of these.
var (
	ErrUnsupportedPlatform    = errors.New("platform authenticator unsupported")
	ErrUserCancelled          = errors.New("ceremony cancelled by user")
	ErrNoCredential           = errors.New("no credential registered")
	ErrCreationFailed         = errors.New("credential creation failed")
	ErrKeyDerivationFailed    = errors.New("key derivation failed")
	ErrDecryptionFailed       = errors.New("decrypt failed")
	ErrAuthenticationMismatch = errors.New("presented passkey does not match wallet")
	ErrInvalidMnemonic        = errors.New("invalid mnemonic phrase")
	ErrStorageUnavailable     = errors.New("wallet storage unavailable")
	ErrNotFound               = errors.New("wallet not found")
	ErrNoActiveSession        = errors.New("no active session")
	ErrChainConnectionFailed  = errors.New("chain connection failed")
	ErrBroadcastFailed        = errors.New("broadcast failed")
)

// Kind is the wire-friendly name of a failure category, suitable for a UI
// to key retry and messaging behavior on.
type Kind string

const (
	KindUnsupportedPlatform    Kind = "unsupported_platform"
	KindUserCancelled          Kind = "user_cancelled"
	KindNoCredential           Kind = "no_credential"
	KindCreationFailed         Kind = "creation_failed"
	KindKeyDerivationFailed    Kind = "key_derivation_failed"
	KindDecryptionFailed       Kind = "decryption_failed"
	KindAuthenticationMismatch Kind = "authentication_mismatch"
	KindInvalidMnemonic        Kind = "invalid_mnemonic"
	KindStorageUnavailable     Kind = "storage_unavailable"
	KindNotFound               Kind = "not_found"
	KindNoActiveSession        Kind = "no_active_session"
	KindChainConnectionFailed  Kind = "chain_connection_failed"
	KindBroadcastFailed        Kind = "broadcast_failed"
	KindInternal               Kind = "internal"
)

var kindSentinels = []struct {
	err  error
	kind Kind
}{
	{ErrUnsupportedPlatform, KindUnsupportedPlatform},
	{ErrUserCancelled, KindUserCancelled},
	{ErrNoCredential, KindNoCredential},
	{ErrCreationFailed, KindCreationFailed},
	{ErrKeyDerivationFailed, KindKeyDerivationFailed},
	{ErrAuthenticationMismatch, KindAuthenticationMismatch},
	{ErrDecryptionFailed, KindDecryptionFailed},
	{ErrInvalidMnemonic, KindInvalidMnemonic},
	{ErrNotFound, KindNotFound},
	{ErrStorageUnavailable, KindStorageUnavailable},
	{ErrNoActiveSession, KindNoActiveSession},
	{ErrChainConnectionFailed, KindChainConnectionFailed},
	{ErrBroadcastFailed, KindBroadcastFailed},
}

// KindOf classifies err against the custody taxonomy.
func KindOf(err error) Kind {
	for _, s := range kindSentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

// CustodyError wraps a pipeline failure with the operation that produced it.
type CustodyError struct {
	Op   string // "setup", "load", "export", "import", "connect", "send"
	Kind Kind
	Err  error
}

func (e *CustodyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CustodyError) Unwrap() error {
	return e.Err
}

// Result is the discriminated outcome the UI surface consumes. Failures
// carry a Kind and a human-readable message instead of a raw error so
// screens can render them without crashing.
type Result struct {
	Success bool   `json:"success"`
	Address string `json:"address,omitempty"`
	Kind    Kind   `json:"error_kind,omitempty"`
	Message string `json:"message,omitempty"`
}

func success(address string) Result {
	return Result{Success: true, Address: address}
}

func failure(op string, err error) Result {
	kind := KindOf(err)
	return Result{Success: false, Kind: kind, Message: (&CustodyError{Op: op, Kind: kind, Err: err}).Error()}
}
