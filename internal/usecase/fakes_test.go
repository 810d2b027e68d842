package usecase_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/email"
	"github.com/ErlanBelekov/account-service/internal/password"
	"github.com/ErlanBelekov/account-service/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

// fakeUserRepo delegates to whichever func fields a test sets.
type fakeUserRepo struct {
	create             func(ctx context.Context, user *domain.User) (*domain.User, error)
	findByID           func(ctx context.Context, id string) (*domain.User, error)
	findByEmail        func(ctx context.Context, email string) (*domain.User, error)
	findByUsername     func(ctx context.Context, username string) (*domain.User, error)
	listPending        func(ctx context.Context, limit int) ([]*domain.User, error)
	approve            func(ctx context.Context, id string) (*domain.User, error)
	setResetPermit     func(ctx context.Context, id string, untilMS int64) (*domain.User, error)
	consumeResetPermit func(ctx context.Context, email string, now time.Time) (*domain.User, error)
	replacePassword    func(ctx context.Context, id, currentHash, newHash string) error
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.create(ctx, user)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findByUsername(ctx, username)
}

func (r *fakeUserRepo) ListPending(ctx context.Context, limit int) ([]*domain.User, error) {
	return r.listPending(ctx, limit)
}

func (r *fakeUserRepo) Approve(ctx context.Context, id string) (*domain.User, error) {
	return r.approve(ctx, id)
}

func (r *fakeUserRepo) SetResetPermit(ctx context.Context, id string, untilMS int64) (*domain.User, error) {
	return r.setResetPermit(ctx, id, untilMS)
}

func (r *fakeUserRepo) ConsumeResetPermit(ctx context.Context, email string, now time.Time) (*domain.User, error) {
	return r.consumeResetPermit(ctx, email, now)
}

func (r *fakeUserRepo) ReplacePassword(ctx context.Context, id, currentHash, newHash string) error {
	return r.replacePassword(ctx, id, currentHash, newHash)
}

func (r *fakeUserRepo) ClearExpiredPermits(context.Context, time.Time) (int64, error) { return 0, nil }
func (r *fakeUserRepo) Ping(context.Context) error                                    { return nil }

// memUserRepo is an in-memory store with the same atomicity guarantees as the
// real ones: every method holds the lock for its whole read-check-write.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
		if u.Username != nil && user.Username != nil && *u.Username == *user.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	c := *user
	c.ID = fmt.Sprintf("user-%d", r.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byEmail(email)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username != nil && *u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) ListPending(_ context.Context, limit int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if u.Status == domain.StatusPending {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memUserRepo) Approve(_ context.Context, id string) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) { u.Status = domain.StatusApproved })
}

func (r *memUserRepo) SetResetPermit(_ context.Context, id string, untilMS int64) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) { u.ResetPermitUntil = untilMS })
}

func (r *memUserRepo) ConsumeResetPermit(_ context.Context, email string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byEmail(email)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if !u.ResetPermitted(now) {
		return nil, domain.ErrConfirmationRequired
	}
	u.ResetPermitUntil = 0
	c := *u
	return &c, nil
}

func (r *memUserRepo) ReplacePassword(_ context.Context, id, currentHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.PasswordHash != currentHash {
		return domain.ErrPasswordChanged
	}
	u.PasswordHash = newHash
	return nil
}

func (r *memUserRepo) ClearExpiredPermits(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.byID {
		if u.ResetPermitUntil != 0 && u.ResetPermitUntil <= now.UnixMilli() {
			u.ResetPermitUntil = 0
			n++
		}
	}
	return n, nil
}

func (r *memUserRepo) Ping(context.Context) error { return nil }

func (r *memUserRepo) mutate(id string, fn func(*domain.User)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	fn(u)
	c := *u
	return &c, nil
}

func (r *memUserRepo) byEmail(email string) *domain.User {
	for _, u := range r.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// recordingSender keeps every message it is asked to send.
type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) messages() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.Message(nil), s.sent...)
}

// ---- helpers ----

const (
	testSecret     = "usecase-test-secret-at-least-32-chars"
	testPublicBase = "http://localhost:8080"
	strongPassword = "Secr3t!pass"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newHasher() *password.Hasher {
	return password.NewHasher(bcrypt.MinCost)
}

func newIssuer(c *clock) *token.Issuer {
	return token.NewIssuerWithClock(token.Config{Secret: []byte(testSecret), Issuer: "accounts"}, c.now)
}

var allowLinkRe = regexp.MustCompile(`Allow: (\S+)`)
var denyLinkRe = regexp.MustCompile(`Cancel: (\S+)`)

// linkToken pulls the confirm token out of a confirmation email link.
func linkToken(t *testing.T, msg email.Message, re *regexp.Regexp) (tok, allow string) {
	t.Helper()
	m := re.FindStringSubmatch(msg.Text)
	if m == nil {
		t.Fatalf("no link in message text: %q", msg.Text)
	}
	u, err := url.Parse(m[1])
	if err != nil {
		t.Fatalf("parse link %q: %v", m[1], err)
	}
	return u.Query().Get("token"), u.Query().Get("allow")
}
