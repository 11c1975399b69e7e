package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/equisplit/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid member or passphrase")
	ErrWeakPassphrase     = errors.New("passphrase must be at least 8 characters")
)

// MemberStorage is the subset of the ledger store the authenticator needs.
type MemberStorage interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// PassphraseAuthenticator checks a shared group passphrase against a bcrypt hash.
type PassphraseAuthenticator struct {
	storage MemberStorage
	hash    []byte
}

var _ Authenticator = (*PassphraseAuthenticator)(nil)

// NewPassphraseAuthenticator creates an authenticator for the given bcrypt hash.
func NewPassphraseAuthenticator(storage MemberStorage, passphraseHash string) *PassphraseAuthenticator {
	return &PassphraseAuthenticator{
		storage: storage,
		hash:    []byte(passphraseHash),
	}
}

// Authenticate verifies that userID is a group member and that the
// passphrase matches. Both failures return ErrInvalidCredentials.
func (a *PassphraseAuthenticator) Authenticate(ctx context.Context, userID, credential string) (*models.User, error) {
	user, err := a.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ValidatePassphrase checks if the passphrase meets minimum requirements.
func ValidatePassphrase(passphrase string) error {
	if len(passphrase) < 8 {
		return ErrWeakPassphrase
	}
	return nil
}

// HashPassphrase validates and hashes a passphrase with bcrypt.
func HashPassphrase(passphrase string, cost int) (string, error) {
	if err := ValidatePassphrase(passphrase); err != nil {
		return "", err
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %w", err)
	}
	return string(hashed), nil
}
