// Package lock provides short-lived mutual exclusion for jobs that must not
// overlap, backed by redis when the cache runs on redis and by process
// memory otherwise.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/config"
)

// ErrNotObtained is returned when the lock is held elsewhere.
var ErrNotObtained = errors.New("lock not obtained")

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker obtains named locks that expire after ttl.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Module provides the Locker to Fx.
var Module = fx.Provide(New)

// New selects the locker matching the cache driver.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) Locker {
	if cfg.Cache.Driver != "redis" {
		logger.Info("using in-process locks")
		return NewLocal()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	logger.Info("using redis locks", zap.String("addr", cfg.Cache.Redis.Addr))
	return NewRedis(client)
}

// Redis is a Locker backed by redislock.
type Redis struct {
	client *redislock.Client
}

// NewRedis wraps a redis client.
func NewRedis(client goredis.UniversalClient) *Redis {
	return &Redis{client: redislock.New(client)}
}

func (r *Redis) Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	l, err := r.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return redisLease{lock: l}, nil
}

type redisLease struct {
	lock *redislock.Lock
}

func (l redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// Local is an in-memory Locker for a single process.
type Local struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocal builds an empty Local locker.
func NewLocal() *Local {
	return &Local{held: map[string]time.Time{}, now: time.Now}
}

func (l *Local) Obtain(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrNotObtained
	}
	expires := now.Add(ttl)
	l.held[key] = expires
	return &localLease{owner: l, key: key, expires: expires}, nil
}

type localLease struct {
	owner   *Local
	key     string
	expires time.Time
	once    sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		defer l.owner.mu.Unlock()
		// A lease that expired may have been taken over.
		if current, ok := l.owner.held[l.key]; ok && current.Equal(l.expires) {
			delete(l.owner.held, l.key)
		}
	})
	return nil
}
