package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/account-service/internal/domain"
)

// UserRepository is the credential store. Every state transition the reset
// protocol relies on is a single atomic update on one user record, so no
// caller ever does read-modify-write across two round trips.
type UserRepository interface {
	// Create persists a new user. Returns domain.ErrUserExists when the email
	// or username is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// ListPending returns pending accounts, oldest first.
	ListPending(ctx context.Context, limit int) ([]*domain.User, error)

	// Approve moves the user to approved and returns the updated record.
	Approve(ctx context.Context, id string) (*domain.User, error)

	// SetResetPermit stores untilMS (epoch millis) on the user. Zero clears it.
	SetResetPermit(ctx context.Context, id string, untilMS int64) (*domain.User, error)

	// ConsumeResetPermit clears the permit of the user with the given email
	// only if it is non-zero and later than now. Returns
	// domain.ErrConfirmationRequired when no live permit exists and
	// domain.ErrUserNotFound when there is no such user.
	ConsumeResetPermit(ctx context.Context, email string, now time.Time) (*domain.User, error)

	// ReplacePassword swaps currentHash for newHash. Returns
	// domain.ErrPasswordChanged when the stored hash is no longer currentHash.
	ReplacePassword(ctx context.Context, id, currentHash, newHash string) error

	// ClearExpiredPermits zeroes permits that lapsed before now and reports
	// how many were cleared.
	ClearExpiredPermits(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
}
