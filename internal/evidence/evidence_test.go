package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maowise/go-engine/internal/params"
)

// #region fakes

type fakeSearcher struct {
	results []Citation
	err     error
	query   string
	k       int
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int) ([]Citation, error) {
	f.query = query
	f.k = k
	return f.results, f.err
}

// #endregion fakes

func TestQueryFormat(t *testing.T) {
	v := params.Vector{VoltageV: 420.4, TimeMin: 30.6, DutyCyclePct: 25}
	if got := Query(v); got != "MAO 420 V 31 min 25%" {
		t.Fatalf("query = %q", got)
	}
}

func TestAttachNilSearcher(t *testing.T) {
	l := NewLinker(nil)
	if got := l.Attach(context.Background(), params.Vector{}); got != nil {
		t.Fatalf("nil searcher returned %d citations", len(got))
	}
}

func TestAttachDegradesOnSearchError(t *testing.T) {
	l := NewLinker(&fakeSearcher{err: errors.New("kb down")})
	if got := l.Attach(context.Background(), params.Vector{}); got != nil {
		t.Fatalf("failed search returned %d citations", len(got))
	}
}

func TestAttachQueriesWithTopK(t *testing.T) {
	fs := &fakeSearcher{results: []Citation{{DocID: "d1", Page: 3, Snippet: "MAO on AZ91"}}}
	l := NewLinker(fs)
	got := l.Attach(context.Background(), params.Vector{VoltageV: 400, TimeMin: 20, DutyCyclePct: 30})
	if len(got) != 1 {
		t.Fatalf("attached %d citations, want 1", len(got))
	}
	if fs.query != "MAO 400 V 20 min 30%" {
		t.Fatalf("query = %q", fs.query)
	}
	if fs.k != 3 {
		t.Fatalf("k = %d, want 3", fs.k)
	}
}

func TestConsistencyCheck(t *testing.T) {
	long := strings.Repeat("x", 600)
	in := []Citation{
		{DocID: "d1", Page: 1, Snippet: "first"},
		{DocID: "d1", Page: 1, Snippet: "duplicate doc/page"},
		{DocID: "d2", Page: 4, Snippet: ""},
		{DocID: "d3", Page: 2, Snippet: long},
		{DocID: "d4", Page: 1, Snippet: "a"},
		{DocID: "d5", Page: 1, Snippet: "b"},
		{DocID: "d6", Page: 1, Snippet: "c"},
		{DocID: "d7", Page: 1, Snippet: "over the cap"},
	}

	out := consistencyCheck(in)
	if len(out) != 5 {
		t.Fatalf("kept %d citations, want cap of 5", len(out))
	}
	if out[0].Snippet != "first" {
		t.Fatalf("first citation = %+v", out[0])
	}
	if len(out[1].Snippet) != 500 {
		t.Fatalf("oversized snippet kept %d chars, want 500", len(out[1].Snippet))
	}
	for _, c := range out {
		if c.DocID == "d7" {
			t.Fatal("citation past the cap leaked through")
		}
	}
}

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/maowise/v1/kb/search" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "MAO 400 V 20 min 30%" || req.K != 3 {
			t.Fatalf("request = %+v", req)
		}
		json.NewEncoder(w).Encode([]Citation{
			{DocID: "paper-12", Page: 7, Score: 0.91, Snippet: "bipolar pulses improved emittance", URL: "https://kb/paper-12#p7"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.Search(context.Background(), "MAO 400 V 20 min 30%", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].DocID != "paper-12" || got[0].Page != 7 {
		t.Fatalf("citations = %+v", got)
	}
}

func TestClientSearchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Search(context.Background(), "q", 3); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}
