package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

// fakeES is a tiny in-memory stand-in for the endpoints the index uses.
type fakeES struct {
	mu      sync.Mutex
	created bool
	docs    map[string]document
	queries []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
	case r.Method == http.MethodHead && len(parts) == 1:
		if f.created {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && len(parts) == 1:
		f.created = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case len(parts) == 3 && parts[1] == "_doc" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		var d document
		_ = json.NewDecoder(r.Body).Decode(&d)
		f.docs[parts[2]] = d
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := f.docs[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(f.docs, parts[2])
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case len(parts) == 2 && parts[1] == "_search":
		var body struct {
			Query struct {
				MultiMatch struct {
					Query string `json:"query"`
				} `json:"multi_match"`
			} `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		q := strings.ToLower(body.Query.MultiMatch.Query)
		f.queries = append(f.queries, q)

		type hit struct {
			Source document `json:"_source"`
		}
		hits := []hit{}
		for _, d := range f.docs {
			if strings.Contains(strings.ToLower(d.Name+" "+d.Description), q) {
				hits = append(hits, hit{Source: d})
			}
		}
		resp := map[string]any{"hits": map[string]any{
			"total": map[string]any{"value": len(hits)},
			"hits":  hits,
		}}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func newTestIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]document{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	idx, err := New(context.Background(), Config{URL: srv.URL, Index: "products"})
	require.NoError(t, err)
	return idx, fake
}

func TestIndex_CreatesIndexOnStart(t *testing.T) {
	_, fake := newTestIndex(t)
	assert.True(t, fake.created)
}

func TestIndex_UpsertSearchDelete(t *testing.T) {
	idx, fake := newTestIndex(t)
	ctx := context.Background()

	teapot := models.Product{ID: uuid.New(), Name: "Blue Teapot", Description: "ceramic", Price: decimal.RequireFromString("12.50"), CategoryID: uuid.New()}
	lamp := models.Product{ID: uuid.New(), Name: "Desk Lamp", Description: "bright", Price: decimal.NewFromInt(30), CategoryID: uuid.New()}
	require.NoError(t, idx.Upsert(ctx, teapot))
	require.NoError(t, idx.Upsert(ctx, lamp))
	assert.InDelta(t, 12.5, fake.docs[teapot.ID.String()].Price, 0.001)

	total, ids, err := idx.Search(ctx, "teapot", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []uuid.UUID{teapot.ID}, ids)
	assert.Equal(t, []string{"teapot"}, fake.queries)

	require.NoError(t, idx.Delete(ctx, teapot.ID))
	require.NoError(t, idx.Delete(ctx, teapot.ID))

	total, ids, err = idx.Search(ctx, "teapot", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, ids)
}

func TestIndex_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	idx := NewIndex(client, "products")

	_, _, err = idx.Search(context.Background(), "x", 0, 10)
	assert.ErrorContains(t, err, "elasticsearch search")
}
