// ABOUTME: Platform authenticator gateway for passkey ceremonies.
// ABOUTME: Provides the Authenticator seam plus a file-backed software authenticator.
package custody

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/argon2"
	"golang.org/x/time/rate"
)

// Credential is the opaque handle a ceremony produces. RawID is stable for
// the life of a registration; key derivation keys off it and nothing else.
type Credential struct {
	ID    string // base64url form of RawID
	RawID []byte
}

// Authenticator is the gateway the custody service drives. Implementations
// own the OS-level verification UI; no network calls happen here.
type Authenticator interface {
	Supported() bool
	Register(ctx context.Context, identityLabel string) (Credential, error)
	Authenticate(ctx context.Context) (Credential, error)
}

const challengeSize = 32

// argon2id parameters for the resident PIN verifier.
const (
	pinSaltSize  = 16
	pinTime      = 2
	pinMemoryKB  = 64 * 1024
	pinThreads   = 1
	pinVerifierN = 32
)

// PINPrompt collects the user-verification secret. It stands in for the
// biometric/PIN UI a real platform authenticator would raise.
type PINPrompt func(ctx context.Context) (string, error)

// SoftAuthenticator is a software platform authenticator holding one
// resident credential per relying party in a local file. Registration
// replaces any prior credential for the same RPID.
type SoftAuthenticator struct {
	cfg     CeremonyConfig
	path    string
	prompt  PINPrompt
	limiter *rate.Limiter
	mu      sync.Mutex
}

// NewSoftAuthenticator validates cfg once and returns a gateway persisting
// its credential at path.
func NewSoftAuthenticator(cfg CeremonyConfig, path string, prompt PINPrompt) (*SoftAuthenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New("authenticator: credential path required")
	}
	return &SoftAuthenticator{
		cfg:     cfg,
		path:    path,
		prompt:  prompt,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
	}, nil
}

// Supported reports whether ceremonies can run at all. Without a
// user-verification prompt there is no secure context to speak of.
func (a *SoftAuthenticator) Supported() bool {
	return a.prompt != nil
}

type residentCredential struct {
	RPID         string `json:"rp_id"`
	CredentialID []byte `json:"credential_id"`
	UserHandle   string `json:"user_handle"`
	Label        string `json:"label"`
	SigningSeed  []byte `json:"signing_seed"`
	PINSalt      []byte `json:"pin_salt"`
	PINVerifier  []byte `json:"pin_verifier"`
	CreatedAt    int64  `json:"created_at"`
}

// Register creates a new resident credential bound to identityLabel and the
// configured relying party, replacing any existing one.
func (a *SoftAuthenticator) Register(ctx context.Context, identityLabel string) (Credential, error) {
	if !a.Supported() {
		return Credential{}, ErrUnsupportedPlatform
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Challenge is minted per ceremony but never leaves the process;
	// this is an unescorted local ceremony, not server challenge-response.
	if _, err := a.newChallenge(); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	pin, err := a.prompt(ctx)
	if err != nil {
		return Credential{}, a.ceremonyErr(ctx, err)
	}
	salt := make([]byte, pinSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	verifier := pinDigest(pin, salt)

	credID := make([]byte, challengeSize)
	if _, err := rand.Read(credID); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	rec := residentCredential{
		RPID:         a.cfg.RPID,
		CredentialID: credID,
		UserHandle:   ulid.Make().String(),
		Label:        identityLabel,
		SigningSeed:  priv.Seed(),
		PINSalt:      salt,
		PINVerifier:  verifier,
		CreatedAt:    time.Now().Unix(),
	}
	if err := a.save(rec); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	return credentialFrom(credID), nil
}

// Authenticate asserts the resident credential after user verification.
func (a *SoftAuthenticator) Authenticate(ctx context.Context) (Credential, error) {
	if !a.Supported() {
		return Credential{}, ErrUnsupportedPlatform
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.load()
	if err != nil {
		return Credential{}, err
	}

	if !a.limiter.Allow() {
		return Credential{}, fmt.Errorf("%w: too many verification attempts", ErrUserCancelled)
	}

	challenge, err := a.newChallenge()
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	pin, err := a.prompt(ctx)
	if err != nil {
		return Credential{}, a.ceremonyErr(ctx, err)
	}
	if subtle.ConstantTimeCompare(pinDigest(pin, rec.PINSalt), rec.PINVerifier) != 1 {
		return Credential{}, fmt.Errorf("%w: user verification failed", ErrUserCancelled)
	}

	// Assertion signature over the challenge; nothing verifies it remotely.
	priv := ed25519.NewKeyFromSeed(rec.SigningSeed)
	_ = ed25519.Sign(priv, challenge)

	return credentialFrom(rec.CredentialID), nil
}

func (a *SoftAuthenticator) newChallenge() ([]byte, error) {
	ch := make([]byte, challengeSize)
	if _, err := rand.Read(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (a *SoftAuthenticator) ceremonyErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: ceremony timed out", ErrUserCancelled)
	}
	return fmt.Errorf("%w: %v", ErrUserCancelled, err)
}

func (a *SoftAuthenticator) load() (residentCredential, error) {
	raw, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return residentCredential{}, ErrNoCredential
	}
	if err != nil {
		return residentCredential{}, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	var rec residentCredential
	if err := json.Unmarshal(raw, &rec); err != nil {
		return residentCredential{}, fmt.Errorf("%w: corrupt credential record", ErrCreationFailed)
	}
	if rec.RPID != a.cfg.RPID || len(rec.CredentialID) == 0 {
		return residentCredential{}, ErrNoCredential
	}
	return rec, nil
}

func (a *SoftAuthenticator) save(rec residentCredential) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return err
	}
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, a.path)
}

func credentialFrom(rawID []byte) Credential {
	return Credential{
		ID:    base64.RawURLEncoding.EncodeToString(rawID),
		RawID: append([]byte(nil), rawID...),
	}
}

func pinDigest(pin string, salt []byte) []byte {
	return argon2.IDKey([]byte(pin), salt, pinTime, pinMemoryKB, pinThreads, pinVerifierN)
}
