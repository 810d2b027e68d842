package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/email"
	"github.com/ErlanBelekov/account-service/internal/metrics"
	"github.com/ErlanBelekov/account-service/internal/password"
	"github.com/ErlanBelekov/account-service/internal/repository"
	"github.com/ErlanBelekov/account-service/internal/token"
)

// PermitWindow is how long a confirmed reset request stays redeemable.
const PermitWindow = 15 * time.Minute

const notifyTimeout = 10 * time.Second

type ResetUsecase struct {
	users      repository.UserRepository
	hasher     *password.Hasher
	tokens     *token.Issuer
	sender     email.Sender
	publicBase string
	now        func() time.Time
	logger     *slog.Logger

	notifications sync.WaitGroup
}

type ResetConfig struct {
	// PublicBaseURL is where this service is reachable; confirmation links
	// point back at it.
	PublicBaseURL string
	Now           func() time.Time
}

func NewResetUsecase(
	users repository.UserRepository,
	hasher *password.Hasher,
	tokens *token.Issuer,
	sender email.Sender,
	cfg ResetConfig,
	logger *slog.Logger,
) *ResetUsecase {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ResetUsecase{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		sender:     sender,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:        now,
		logger:     logger.With("component", "reset_usecase"),
	}
}

// Forgot mails a confirmation request to the account owner. An unknown email
// returns nil and sends nothing, so callers cannot tell the two apart.
func (u *ResetUsecase) Forgot(ctx context.Context, rawEmail string) error {
	err := u.forgot(ctx, rawEmail)
	metrics.ResetStepsTotal.WithLabelValues("forgot", metrics.Outcome(err)).Inc()
	return err
}

func (u *ResetUsecase) forgot(ctx context.Context, rawEmail string) error {
	addr := domain.NormalizeEmail(rawEmail)
	if addr == "" {
		return domain.ErrValidation
	}

	user, err := u.users.FindByEmail(ctx, addr)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	confirm, err := u.tokens.Issue(token.ConfirmClaims{UserID: user.ID, Email: user.Email}, token.ConfirmTTL)
	if err != nil {
		return err
	}

	msg := email.ConfirmResetMessage(user.Email, user.Name, u.oneTapURL(confirm, true), u.oneTapURL(confirm, false))
	err = u.sender.Send(ctx, msg)
	metrics.EmailsTotal.WithLabelValues("confirm_reset", metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmailDelivery, err)
	}

	u.logger.InfoContext(ctx, "reset confirmation sent", "user_id", user.ID)
	return nil
}

func (u *ResetUsecase) oneTapURL(confirm string, allow bool) string {
	q := url.Values{}
	q.Set("token", confirm)
	q.Set("allow", strconv.FormatBool(allow))
	return u.publicBase + "/forgot-confirm-oneTap?" + q.Encode()
}

type ConfirmResult struct {
	Allowed bool
	// PermittedUntil is the permit expiry in epoch milliseconds; zero when
	// the request was declined.
	PermittedUntil int64
}

// ConfirmForgot records the owner's answer. Allowing opens a permit window;
// declining clears any permit.
func (u *ResetUsecase) ConfirmForgot(ctx context.Context, rawToken string, allow bool) (*ConfirmResult, error) {
	res, _, err := u.confirm(ctx, rawToken, allow)
	metrics.ResetStepsTotal.WithLabelValues("confirm", metrics.Outcome(err)).Inc()
	return res, err
}

func (u *ResetUsecase) confirm(ctx context.Context, rawToken string, allow bool) (*ConfirmResult, *domain.User, error) {
	claims, err := u.tokens.VerifyConfirm(rawToken)
	if err != nil {
		return nil, nil, err
	}

	var until int64
	if allow {
		until = u.now().Add(PermitWindow).UnixMilli()
	}

	user, err := u.users.SetResetPermit(ctx, claims.UserID, until)
	if err != nil {
		return nil, nil, fmt.Errorf("set reset permit: %w", err)
	}

	if allow {
		u.logger.InfoContext(ctx, "reset confirmed", "user_id", user.ID)
	} else {
		u.logger.InfoContext(ctx, "reset declined", "user_id", user.ID)
	}
	return &ConfirmResult{Allowed: allow, PermittedUntil: until}, user, nil
}

type OneTapResult struct {
	Allowed bool
	// ResetToken is set only when Allowed.
	ResetToken string
}

// ConfirmForgotOneTap is ConfirmForgot for the emailed link: an allowed
// request goes straight on to issue a reset token.
func (u *ResetUsecase) ConfirmForgotOneTap(ctx context.Context, rawToken string, allow bool) (*OneTapResult, error) {
	res, user, err := u.confirm(ctx, rawToken, allow)
	metrics.ResetStepsTotal.WithLabelValues("confirm", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return &OneTapResult{}, nil
	}

	pwd, err := u.IssueReset(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	return &OneTapResult{Allowed: true, ResetToken: pwd}, nil
}

// IssueReset redeems a live permit for a pwd token. The permit is cleared in
// the same store operation that checks it, so concurrent callers get at most
// one token.
func (u *ResetUsecase) IssueReset(ctx context.Context, rawEmail string) (string, error) {
	pwd, err := u.issueReset(ctx, rawEmail)
	metrics.ResetStepsTotal.WithLabelValues("issue_reset", metrics.Outcome(err)).Inc()
	return pwd, err
}

func (u *ResetUsecase) issueReset(ctx context.Context, rawEmail string) (string, error) {
	addr := domain.NormalizeEmail(rawEmail)
	if addr == "" {
		return "", domain.ErrValidation
	}

	user, err := u.users.ConsumeResetPermit(ctx, addr, u.now())
	if err != nil {
		return "", fmt.Errorf("consume reset permit: %w", err)
	}

	pwd, err := u.tokens.Issue(token.PwdClaims{
		UserID:      user.ID,
		Fingerprint: password.Fingerprint(user.PasswordHash),
	}, token.PwdTTL)
	if err != nil {
		return "", err
	}

	u.logger.InfoContext(ctx, "reset token issued", "user_id", user.ID)
	return pwd, nil
}

// Reset replaces the password named by a pwd token. A token is good for one
// replacement: once the hash changes its fingerprint no longer matches.
func (u *ResetUsecase) Reset(ctx context.Context, rawToken, newPassword string) error {
	err := u.reset(ctx, rawToken, newPassword)
	metrics.ResetStepsTotal.WithLabelValues("reset", metrics.Outcome(err)).Inc()
	return err
}

func (u *ResetUsecase) reset(ctx context.Context, rawToken, newPassword string) error {
	claims, err := u.tokens.VerifyPwd(rawToken)
	if err != nil {
		return err
	}
	if !password.IsStrong(newPassword) {
		return domain.ErrWeakPassword
	}

	user, err := u.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if password.Fingerprint(user.PasswordHash) != claims.Fingerprint {
		return domain.ErrTokenInvalid
	}

	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = u.users.ReplacePassword(ctx, user.ID, user.PasswordHash, hash)
	if errors.Is(err, domain.ErrPasswordChanged) {
		return domain.ErrTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("replace password: %w", err)
	}

	u.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	u.notifyPasswordChanged(ctx, user)
	return nil
}

// notifyPasswordChanged sends the notice in the background. Delivery failure
// is logged and never reaches the caller.
func (u *ResetUsecase) notifyPasswordChanged(ctx context.Context, user *domain.User) {
	msg := email.PasswordChangedMessage(user.Email, user.Name)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)

	u.notifications.Add(1)
	go func() {
		defer u.notifications.Done()
		defer cancel()

		err := u.sender.Send(ctx, msg)
		metrics.EmailsTotal.WithLabelValues("password_changed", metrics.Outcome(err)).Inc()
		if err != nil {
			u.logger.ErrorContext(ctx, "password changed notification failed", "user_id", user.ID, "error", err)
		}
	}()
}

// Wait blocks until background notifications have finished.
func (u *ResetUsecase) Wait() {
	u.notifications.Wait()
}
