package auth

import (
	"context"

	"github.com/mmynk/equisplit/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The group uses a shared passphrase today; another method only needs to
// satisfy this interface to plug into the auth service.
type Authenticator interface {
	// Authenticate verifies the member's credential and returns the member if successful.
	Authenticate(ctx context.Context, userID, credential string) (*models.User, error)
}
