package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bandungair/udara/internal/domain"
	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/domain/user"
)

// fakeStore is an in-memory database.Store.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*user.User)}
}

func (f *fakeStore) CreateUser(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListUsers(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []user.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CountUsers(_ context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total, admins := 0, 0
	for _, u := range f.users {
		total++
		if u.Role == user.RoleAdmin {
			admins++
		}
	}
	return total, admins, nil
}

// fakeLLM returns a canned completion or error.
type fakeLLM struct {
	content string
	err     error
	calls   int
	lastSys string
	lastUsr string
}

func (f *fakeLLM) CompleteJSON(_ context.Context, system, userPrompt string, _ float64) (string, error) {
	f.calls++
	f.lastSys = system
	f.lastUsr = userPrompt
	return f.content, f.err
}

func (f *fakeLLM) Model() string { return "test-model" }

// fakeByteCache is an in-memory cache.Cache without TTL handling.
type fakeByteCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeByteCache() *fakeByteCache {
	return &fakeByteCache{entries: make(map[string][]byte)}
}

func (f *fakeByteCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	return v, ok, nil
}

func (f *fakeByteCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return nil
}

func (f *fakeByteCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

// staticSource serves fixed rows as a rowsource.Source.
type staticSource struct {
	rows []reading.Record
	err  error
}

func (s *staticSource) Fetch(context.Context, string, string) ([]reading.Record, error) {
	return s.rows, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sensorRow(pairs ...string) reading.Record {
	r := reading.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

var errLLMDown = errors.New("llm down")
