package httpapi_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alexmorten/rconsole/internal/domain"
)

// fakeRedisStore is an in-memory stand-in for internal/storage.RedisClient,
// satisfying the unexported redisStore interface internal/auth.
// RevocationCache depends on.
type fakeRedisStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: make(map[string]string)}
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = "1"
	return nil
}

// fakeServerRepo is an in-memory domain.ServerRepository used across the
// handler test files in this package.
type fakeServerRepo struct {
	mu      sync.Mutex
	servers map[uuid.UUID]*domain.Server
	access  map[uuid.UUID][]uuid.UUID // userID -> server uids
}

func newFakeServerRepo() *fakeServerRepo {
	return &fakeServerRepo{
		servers: make(map[uuid.UUID]*domain.Server),
		access:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeServerRepo) GetByUID(ctx context.Context, uid uuid.UUID) (*domain.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.servers[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeServerRepo) GetAll(ctx context.Context) ([]*domain.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Server
	for _, s := range f.servers {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeServerRepo) GetUserServers(ctx context.Context, userID uuid.UUID) ([]*domain.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Server
	for _, uid := range f.access[userID] {
		if s, ok := f.servers[uid]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeServerRepo) Create(ctx context.Context, s *domain.Server) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.UID == uuid.Nil {
		s.UID = uuid.New()
	}
	f.servers[s.UID] = s
	return nil
}

func (f *fakeServerRepo) Update(ctx context.Context, s *domain.Server) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.servers[s.UID]; !ok {
		return domain.ErrNotFound
	}
	f.servers[s.UID] = s
	return nil
}

func (f *fakeServerRepo) Delete(ctx context.Context, uid uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.servers[uid]; !ok {
		return domain.ErrNotFound
	}
	delete(f.servers, uid)
	return nil
}

// fakeUserRepo is an in-memory domain.UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(seed ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range seed {
		repo.users[u.Username] = u
	}
	return repo
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetWithPassword(ctx context.Context, username string) (*domain.User, error) {
	return f.GetByUsername(ctx, username)
}

func (f *fakeUserRepo) GetAll(ctx context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.Username] = u
	return nil
}

func (f *fakeUserRepo) SetDisabled(ctx context.Context, username string, disabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return domain.ErrNotFound
	}
	u.Disabled = disabled
	return nil
}
