package sessionlock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/coursemap-backend/internal/platform/envutil"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
)

// ErrHeld is returned when a session's transition lock could not be
// acquired before the context expired: another submission is in flight.
var ErrHeld = errors.New("session transition already in flight")

// Locker serializes step transitions per session. At most one holder
// per session id at a time.
type Locker interface {
	// Acquire blocks until the session's lock is held or ctx expires.
	// The returned release function is safe to call exactly once.
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// NewFromEnv returns a Redis-backed locker when REDIS_ADDR is set, so
// multiple backend instances serialize against the same store, and an
// in-process locker otherwise.
func NewFromEnv(log *logger.Logger) Locker {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		log.Info("Session locking in-process (REDIS_ADDR not set)")
		return NewLocal()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
	})
	ttl := envutil.Seconds("SESSION_LOCK_TTL_SECONDS", 120*time.Second)
	log.Info("Session locking via redis", "addr", addr, "ttl", ttl.String())
	return NewRedis(log, client, ttl)
}

// ---- Redis locker ----

// releaseScript deletes the lock only when the holder token matches,
// so a lock that expired and was re-acquired is never released by the
// previous holder.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

type redisLocker struct {
	log    *logger.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(log *logger.Logger, client *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	return &redisLocker{
		log:    log.With("client", "SessionLocker"),
		client: client,
		ttl:    ttl,
	}
}

func (rl *redisLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := "session_lock:" + strings.TrimSpace(sessionID)
	token := uuid.New().String()

	retry := 50 * time.Millisecond
	for {
		ok, err := rl.client.SetNX(ctx, key, token, rl.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrHeld
		case <-time.After(retry):
		}
		if retry < 500*time.Millisecond {
			retry *= 2
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Release must not inherit a canceled request context.
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rl.client.Eval(relCtx, releaseScript, []string{key}, token).Err(); err != nil {
				rl.log.Warn("Session lock release failed", "key", key, "error", err)
			}
		})
	}
	return release, nil
}

// ---- In-process locker ----

type localSlot struct {
	ch   chan struct{}
	refs int
}

type localLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

func NewLocal() Locker {
	return &localLocker{slots: make(map[string]*localSlot)}
}

// checkout pins a slot for the caller. Slots are refcounted so an idle
// session id does not leak a channel for the life of the process.
func (ll *localLocker) checkout(sessionID string) *localSlot {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	s, ok := ll.slots[sessionID]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		ll.slots[sessionID] = s
	}
	s.refs++
	return s
}

func (ll *localLocker) checkin(sessionID string, s *localSlot) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(ll.slots, sessionID)
	}
}

func (ll *localLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	s := ll.checkout(sessionID)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		ll.checkin(sessionID, s)
		return nil, ErrHeld
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			ll.checkin(sessionID, s)
		})
	}, nil
}
