package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/metrics"
	"github.com/ErlanBelekov/account-service/internal/password"
	"github.com/ErlanBelekov/account-service/internal/repository"
	"github.com/ErlanBelekov/account-service/internal/token"
)

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 200
)

type AccountUsecase struct {
	users  repository.UserRepository
	hasher *password.Hasher
	tokens *token.Issuer
	logger *slog.Logger
}

func NewAccountUsecase(users repository.UserRepository, hasher *password.Hasher, tokens *token.Issuer, logger *slog.Logger) *AccountUsecase {
	return &AccountUsecase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With("component", "account_usecase"),
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Username string
	Password string
}

// Signup creates a pending account with the user role.
func (u *AccountUsecase) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	user, err := u.signup(ctx, input)
	metrics.SignupsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	return user, err
}

func (u *AccountUsecase) signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, domain.ErrValidation
	}
	if !password.IsStrong(input.Password) {
		return nil, domain.ErrWeakPassword
	}

	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = domain.DefaultName
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.StatusPending,
		Role:         domain.RoleUser,
	}
	if username := domain.NormalizeUsername(input.Username); username != "" {
		user.Username = &username
	}

	created, err := u.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	u.logger.InfoContext(ctx, "account created", "user_id", created.ID)
	return created, nil
}

type LoginInput struct {
	// Identifier is an email address or a username.
	Identifier string
	Password   string
}

type LoginResult struct {
	Token string
	User  *domain.User
}

// Login checks approval before the password, so an unapproved account is
// refused the same way whether or not the password is right.
func (u *AccountUsecase) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	res, err := u.login(ctx, input)
	metrics.LoginsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	return res, err
}

func (u *AccountUsecase) login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, domain.ErrValidation
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = u.users.FindByEmail(ctx, domain.NormalizeEmail(identifier))
	} else {
		user, err = u.users.FindByUsername(ctx, domain.NormalizeUsername(identifier))
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.Approved() {
		return nil, domain.ErrAccountNotApproved
	}
	if !u.hasher.Compare(user.PasswordHash, input.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	signed, err := u.tokens.Issue(token.SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, token.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: signed, User: user}, nil
}

// Approve moves a pending account to approved. Callers must have checked
// that the actor is an admin.
func (u *AccountUsecase) Approve(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.Approve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("approve user: %w", err)
	}
	metrics.ApprovalsTotal.Inc()
	u.logger.InfoContext(ctx, "account approved", "user_id", user.ID)
	return user, nil
}

func (u *AccountUsecase) ListPending(ctx context.Context, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	limit = min(limit, maxPendingLimit)

	users, err := u.users.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return users, nil
}
