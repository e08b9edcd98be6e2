package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := indexer.Open(config.IndexerConfig{DataDir: t.TempDir(), MaxSegmentsBeforeMerge: 8})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	err = store.Upsert(context.Background(), []index.Document{
		{ID: "p1", Content: "Explain the process of Glycolysis.", Subject: "Biology"},
		{ID: "p2", Content: "State Newton's laws of motion.", Subject: "Physics"},
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.SearchConfig{
		DefaultLimit:       10,
		MaxResults:         50,
		MinQueryLength:     3,
		FuzzyMinTermLength: 4,
		MaxFuzzyExpansions: 50,
	}
	return New(searcher.New(store, cfg), nil, nil, cfg.MinQueryLength)
}

func doSearch(t *testing.T, h *Handler, url string) (*httptest.ResponseRecorder, SearchResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, url, nil))
	var resp SearchResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return rec, resp
}

func TestSearchValidation(t *testing.T) {
	h := newHandler(t)
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"missing q", "/api/v1/search", http.StatusBadRequest},
		{"short q", "/api/v1/search?q=ab", http.StatusBadRequest},
		{"bad limit", "/api/v1/search?q=glycolysis&limit=x", http.StatusBadRequest},
		{"zero limit", "/api/v1/search?q=glycolysis&limit=0", http.StatusBadRequest},
		{"ok", "/api/v1/search?q=glycolysis&limit=5", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doSearch(t, h, tt.url)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestSearchTiers(t *testing.T) {
	h := newHandler(t)

	_, exact := doSearch(t, h, "/api/v1/search?q=Glycolysis")
	if exact.Status != searcher.StatusHits || exact.Tier != searcher.TierExact || exact.Count != 1 || exact.Results[0].ID != "p1" {
		t.Errorf("exact response = %+v", exact)
	}

	_, fuzzy := doSearch(t, h, "/api/v1/search?q=Glycolsis")
	if fuzzy.Tier != searcher.TierFuzzy || fuzzy.Count != 1 || fuzzy.Results[0].ID != "p1" {
		t.Errorf("fuzzy response = %+v", fuzzy)
	}

	_, none := doSearch(t, h, "/api/v1/search?q=zzzzzzzz")
	if none.Status != searcher.StatusEmpty || none.Results == nil {
		t.Errorf("empty response = %+v", none)
	}
}

func TestSearchParseErrorIsReported(t *testing.T) {
	h := newHandler(t)
	rec, resp := doSearch(t, h, "/api/v1/search?q=%28glycolysis")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Status != searcher.StatusError || resp.Error == "" || resp.Count != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("stats status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status = %d", rec.Code)
	}
}
