package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Key layout:
//
//	<prefix>:user:<id>             hash with the user record
//	<prefix>:email:<email>         id
//	<prefix>:username:<username>   id
//	<prefix>:pending               zset of pending ids scored by creation time (ms)
//	<prefix>:permits               zset of ids with a permit scored by its expiry (ms)
const defaultPrefix = "acct"

// maxTxRetries bounds optimistic-lock retries when a WATCHed key changes
// under us.
const maxTxRetries = 8

var errTxConflict = errors.New("redis transaction kept conflicting")

// hashReader is satisfied by both the client and a WATCH transaction.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
}

type userRecord struct {
	ID               string `redis:"id"`
	Name             string `redis:"name"`
	Email            string `redis:"email"`
	Username         string `redis:"username"`
	PasswordHash     string `redis:"password_hash"`
	Status           string `redis:"status"`
	Role             string `redis:"role"`
	ResetPermitUntil int64  `redis:"reset_permit_until"`
	CreatedAt        int64  `redis:"created_at"`
	UpdatedAt        int64  `redis:"updated_at"`
}

func (r userRecord) toDomain() *domain.User {
	u := &domain.User{
		ID:               r.ID,
		Name:             r.Name,
		Email:            r.Email,
		PasswordHash:     r.PasswordHash,
		Status:           domain.Status(r.Status),
		Role:             domain.Role(r.Role),
		ResetPermitUntil: r.ResetPermitUntil,
		CreatedAt:        time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:        time.UnixMilli(r.UpdatedAt).UTC(),
	}
	if r.Username != "" {
		username := r.Username
		u.Username = &username
	}
	return u
}

type UserRepository struct {
	rdb    goredis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewUserRepository(rdb goredis.UniversalClient, prefix string) *UserRepository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &UserRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *UserRepository) userKey(id string) string       { return r.prefix + ":user:" + id }
func (r *UserRepository) emailKey(email string) string   { return r.prefix + ":email:" + email }
func (r *UserRepository) usernameKey(name string) string { return r.prefix + ":username:" + name }
func (r *UserRepository) pendingKey() string             { return r.prefix + ":pending" }
func (r *UserRepository) permitsKey() string             { return r.prefix + ":permits" }

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := r.now().UnixMilli()
	rec := userRecord{
		ID:           uuid.NewString(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Status:       string(user.Status),
		Role:         string(user.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Username != nil {
		rec.Username = *user.Username
	}

	watched := []string{r.emailKey(rec.Email)}
	if rec.Username != "" {
		watched = append(watched, r.usernameKey(rec.Username))
	}

	err := r.withRetry(ctx, func() error {
		return r.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			n, err := tx.Exists(ctx, watched...).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrUserExists
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.HSet(ctx, r.userKey(rec.ID), rec)
				pipe.Set(ctx, r.emailKey(rec.Email), rec.ID, 0)
				if rec.Username != "" {
					pipe.Set(ctx, r.usernameKey(rec.Username), rec.ID, 0)
				}
				if rec.Status == string(domain.StatusPending) {
					pipe.ZAdd(ctx, r.pendingKey(), goredis.Z{Score: float64(rec.CreatedAt), Member: rec.ID})
				}
				return nil
			})
			return err
		}, watched...)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	rec, err := r.load(ctx, r.rdb, id)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByIndex(ctx, r.emailKey(email))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findByIndex(ctx, r.usernameKey(username))
}

func (r *UserRepository) findByIndex(ctx context.Context, indexKey string) (*domain.User, error) {
	id, err := r.rdb.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user index: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) ListPending(ctx context.Context, limit int) ([]*domain.User, error) {
	ids, err := r.rdb.ZRange(ctx, r.pendingKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		rec, err := r.load(ctx, r.rdb, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, rec.toDomain())
	}
	return users, nil
}

func (r *UserRepository) Approve(ctx context.Context, id string) (*domain.User, error) {
	return r.update(ctx, id, func(rec *userRecord, pipe goredis.Pipeliner) {
		rec.Status = string(domain.StatusApproved)
		pipe.HSet(ctx, r.userKey(id), "status", rec.Status)
		pipe.ZRem(ctx, r.pendingKey(), id)
	})
}

func (r *UserRepository) SetResetPermit(ctx context.Context, id string, untilMS int64) (*domain.User, error) {
	return r.update(ctx, id, func(rec *userRecord, pipe goredis.Pipeliner) {
		rec.ResetPermitUntil = untilMS
		pipe.HSet(ctx, r.userKey(id), "reset_permit_until", untilMS)
		if untilMS == 0 {
			pipe.ZRem(ctx, r.permitsKey(), id)
		} else {
			pipe.ZAdd(ctx, r.permitsKey(), goredis.Z{Score: float64(untilMS), Member: id})
		}
	})
}

func (r *UserRepository) ConsumeResetPermit(ctx context.Context, email string, now time.Time) (*domain.User, error) {
	id, err := r.rdb.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user index: %w", err)
	}

	var consumed *domain.User
	key := r.userKey(id)
	err = r.withRetry(ctx, func() error {
		return r.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			rec, err := r.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if !rec.toDomain().ResetPermitted(now) {
				return domain.ErrConfirmationRequired
			}

			rec.ResetPermitUntil = 0
			rec.UpdatedAt = r.now().UnixMilli()
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.HSet(ctx, key, "reset_permit_until", 0, "updated_at", rec.UpdatedAt)
				pipe.ZRem(ctx, r.permitsKey(), id)
				return nil
			})
			if err != nil {
				return err
			}
			consumed = rec.toDomain()
			return nil
		}, key)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrConfirmationRequired) {
			return nil, err
		}
		return nil, fmt.Errorf("consume reset permit: %w", err)
	}
	return consumed, nil
}

func (r *UserRepository) ReplacePassword(ctx context.Context, id, currentHash, newHash string) error {
	key := r.userKey(id)
	err := r.withRetry(ctx, func() error {
		return r.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			rec, err := r.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if rec.PasswordHash != currentHash {
				return domain.ErrPasswordChanged
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.HSet(ctx, key, "password_hash", newHash, "updated_at", r.now().UnixMilli())
				return nil
			})
			return err
		}, key)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrPasswordChanged) {
			return err
		}
		return fmt.Errorf("replace password: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearExpiredPermits(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UnixMilli()
	ids, err := r.rdb.ZRangeByScore(ctx, r.permitsKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list expired permits: %w", err)
	}

	var cleared int64
	for _, id := range ids {
		key := r.userKey(id)
		err := r.withRetry(ctx, func() error {
			return r.rdb.Watch(ctx, func(tx *goredis.Tx) error {
				rec, err := r.load(ctx, tx, id)
				if errors.Is(err, domain.ErrUserNotFound) {
					return tx.ZRem(ctx, r.permitsKey(), id).Err()
				}
				if err != nil {
					return err
				}
				// Re-granted since the range query; leave it alone.
				if rec.ResetPermitUntil > cutoff {
					return nil
				}
				_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
					pipe.HSet(ctx, key, "reset_permit_until", 0, "updated_at", r.now().UnixMilli())
					pipe.ZRem(ctx, r.permitsKey(), id)
					return nil
				})
				if err == nil && rec.ResetPermitUntil != 0 {
					cleared++
				}
				return err
			}, key)
		})
		if err != nil {
			return cleared, fmt.Errorf("clear expired permit: %w", err)
		}
	}
	return cleared, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// update applies mutate to the stored record inside a WATCH transaction and
// returns the record as written.
func (r *UserRepository) update(ctx context.Context, id string, mutate func(*userRecord, goredis.Pipeliner)) (*domain.User, error) {
	var updated *domain.User
	key := r.userKey(id)

	err := r.withRetry(ctx, func() error {
		return r.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			rec, err := r.load(ctx, tx, id)
			if err != nil {
				return err
			}
			rec.UpdatedAt = r.now().UnixMilli()
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				mutate(rec, pipe)
				pipe.HSet(ctx, key, "updated_at", rec.UpdatedAt)
				return nil
			})
			if err != nil {
				return err
			}
			updated = rec.toDomain()
			return nil
		}, key)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (r *UserRepository) load(ctx context.Context, c hashReader, id string) (*userRecord, error) {
	cmd := c.HGetAll(ctx, r.userKey(id))
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrUserNotFound
	}

	var rec userRecord
	if err := cmd.Scan(&rec); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &rec, nil
}

// withRetry reruns fn while its WATCHed keys keep changing underneath it.
func (r *UserRepository) withRetry(ctx context.Context, fn func() error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := fn()
		if errors.Is(err, goredis.TxFailedErr) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return err
	}
	return errTxConflict
}
