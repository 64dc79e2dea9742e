package keylock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("keylock: timed out waiting for lock")

// Locker serializa secciones críticas por key (ej: childID).
// Lock bloquea hasta obtener la key o hasta que ctx termine.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Memory es un lock por key dentro del proceso.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*entry)}
}

func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.release(key, e)
		})
	}, nil
}

func (m *Memory) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// Redis implementa el lock con SET NX PX + borrado condicionado al token,
// para varias instancias del servicio detrás de un balanceador.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedis(client *redis.Client, ttl, wait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &Redis{client: client, ttl: ttl, wait: wait, retry: 25 * time.Millisecond}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	key = "family-locator:lock:" + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	backoff := r.retry
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// contexto propio: el del request puede estar cancelado al liberar
			rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
			defer rcancel()
			_ = releaseScript.Run(rctx, r.client, []string{key}, token).Err()
		})
	}, nil
}
