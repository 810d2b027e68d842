// Package token issues and verifies the service's signed, expiring tokens.
//
// Every token is an HS256 JWT whose payload carries a kind tag. The kind is
// part of the signed content, so a confirm token can never be replayed where a
// pwd or session token is expected.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindSession Kind = "session"
	KindConfirm Kind = "confirm"
	KindPwd     Kind = "pwd"
)

const (
	SessionTTL = 24 * time.Hour
	ConfirmTTL = 15 * time.Minute
	PwdTTL     = 15 * time.Minute
)

// Claims is the payload of a verified token. The set of implementations is
// closed: SessionClaims, ConfirmClaims and PwdClaims.
type Claims interface {
	Kind() Kind
	Subject() string
	sealed()
}

// SessionClaims back the bearer token handed out by login.
type SessionClaims struct {
	UserID string
	Email  string
	Role   domain.Role
}

// ConfirmClaims prove the holder received a link at Email.
type ConfirmClaims struct {
	UserID string
	Email  string
}

// PwdClaims authorize a single password replacement. Fingerprint pins the
// password hash the token was minted against, so the token stops verifying
// against the account once the password has been replaced.
type PwdClaims struct {
	UserID      string
	Fingerprint string
}

func (SessionClaims) Kind() Kind        { return KindSession }
func (c SessionClaims) Subject() string { return c.UserID }
func (SessionClaims) sealed()           {}

func (ConfirmClaims) Kind() Kind        { return KindConfirm }
func (c ConfirmClaims) Subject() string { return c.UserID }
func (ConfirmClaims) sealed()           {}

func (PwdClaims) Kind() Kind        { return KindPwd }
func (c PwdClaims) Subject() string { return c.UserID }
func (PwdClaims) sealed()           {}

// Config holds the process-wide signing material.
type Config struct {
	Secret []byte
	Issuer string
}

type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(cfg Config) *Issuer {
	return NewIssuerWithClock(cfg, time.Now)
}

// NewIssuerWithClock is NewIssuer with an injectable clock for expiry tests.
func NewIssuerWithClock(cfg Config, now func() time.Time) *Issuer {
	return &Issuer{secret: cfg.Secret, issuer: cfg.Issuer, now: now}
}

// envelope is the wire form of every token.
type envelope struct {
	Kind        Kind        `json:"kind"`
	Email       string      `json:"email,omitempty"`
	Role        domain.Role `json:"role,omitempty"`
	Fingerprint string      `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs c with an expiry of now+ttl.
func (i *Issuer) Issue(c Claims, ttl time.Duration) (string, error) {
	if c == nil || c.Subject() == "" {
		return "", errors.New("issue token: empty subject")
	}

	now := i.now()
	env := envelope{
		Kind: c.Kind(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	switch v := c.(type) {
	case SessionClaims:
		env.Email = v.Email
		env.Role = v.Role
	case ConfirmClaims:
		env.Email = v.Email
	case PwdClaims:
		if v.Fingerprint == "" {
			return "", errors.New("issue token: pwd token without fingerprint")
		}
		env.Fingerprint = v.Fingerprint
	default:
		return "", fmt.Errorf("issue token: unsupported claims %T", c)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, env).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry, then decodes the
// payload into its concrete Claims type. Every failure is reported as
// domain.ErrTokenInvalid.
func (i *Issuer) Verify(raw string) (Claims, error) {
	var env envelope
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	tok, err := jwt.ParseWithClaims(raw, &env, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if env.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	switch env.Kind {
	case KindSession:
		if env.Role != domain.RoleUser && env.Role != domain.RoleAdmin {
			return nil, domain.ErrTokenInvalid
		}
		return SessionClaims{UserID: env.Subject, Email: env.Email, Role: env.Role}, nil
	case KindConfirm:
		if env.Email == "" {
			return nil, domain.ErrTokenInvalid
		}
		return ConfirmClaims{UserID: env.Subject, Email: env.Email}, nil
	case KindPwd:
		if env.Fingerprint == "" {
			return nil, domain.ErrTokenInvalid
		}
		return PwdClaims{UserID: env.Subject, Fingerprint: env.Fingerprint}, nil
	default:
		return nil, domain.ErrTokenInvalid
	}
}

func (i *Issuer) VerifySession(raw string) (SessionClaims, error) {
	c, err := i.Verify(raw)
	if err != nil {
		return SessionClaims{}, err
	}
	switch v := c.(type) {
	case SessionClaims:
		return v, nil
	default:
		return SessionClaims{}, domain.ErrTokenInvalid
	}
}

func (i *Issuer) VerifyConfirm(raw string) (ConfirmClaims, error) {
	c, err := i.Verify(raw)
	if err != nil {
		return ConfirmClaims{}, err
	}
	switch v := c.(type) {
	case ConfirmClaims:
		return v, nil
	default:
		return ConfirmClaims{}, domain.ErrTokenInvalid
	}
}

func (i *Issuer) VerifyPwd(raw string) (PwdClaims, error) {
	c, err := i.Verify(raw)
	if err != nil {
		return PwdClaims{}, err
	}
	switch v := c.(type) {
	case PwdClaims:
		return v, nil
	default:
		return PwdClaims{}, domain.ErrTokenInvalid
	}
}
