package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testdb"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type published struct {
	Topic, Key, Type string
	Payload          any
}

type recorder struct {
	mu  sync.Mutex
	got []published
}

func (r *recorder) Publish(_ context.Context, topic, key, eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, published{Topic: topic, Key: key, Type: eventType, Payload: payload})
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, p := range r.got {
		out = append(out, p.Type)
	}
	return out
}

type fakeSearch struct {
	docs    map[uuid.UUID]models.Product
	hits    []uuid.UUID
	failing bool
}

func newFakeSearch() *fakeSearch { return &fakeSearch{docs: map[uuid.UUID]models.Product{}} }

func (f *fakeSearch) Upsert(_ context.Context, p models.Product) error {
	if f.failing {
		return errors.New("search down")
	}
	f.docs[p.ID] = p
	return nil
}

func (f *fakeSearch) Delete(_ context.Context, id uuid.UUID) error {
	if f.failing {
		return errors.New("search down")
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeSearch) Search(context.Context, string, int, int) (int64, []uuid.UUID, error) {
	if f.failing {
		return 0, nil, errors.New("search down")
	}
	return int64(len(f.hits)), f.hits, nil
}

type memIdem struct {
	m map[string]string
}

func (s *memIdem) Lookup(_ context.Context, userID, key string) (string, error) {
	return s.m[userID+"/"+key], nil
}

func (s *memIdem) Remember(_ context.Context, userID, key, orderID string) error {
	s.m[userID+"/"+key] = orderID
	return nil
}

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return &repo.GormRepo{DB: testdb.Open(t)}
}

var (
	admin = tokens.Identity{UserID: uuid.New(), IsAdmin: true}
	guest = tokens.Identity{UserID: uuid.New()}
)
