package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/maowise/go-engine/internal/params"
)

// #region types

// Citation is one literature snippet backing a recommended recipe.
type Citation struct {
	DocID   string  `json:"doc_id"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
	URL     string  `json:"citation_url"`
}

// Searcher is the knowledge-base retrieval interface the linker consumes.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Citation, error)
}

// #endregion types

// #region client

// Client calls the KB search HTTP service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the KB service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: http.DefaultClient}
}

// NewClientWithHTTP creates a Client with an injected *http.Client.
// Used for testing without a real service.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// Search implements Searcher against the KB service.
func (c *Client) Search(ctx context.Context, query string, k int) ([]Citation, error) {
	body, err := json.Marshal(searchRequest{Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("marshal kb request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/maowise/v1/kb/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build kb request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kb search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kb search: status %d", resp.StatusCode)
	}
	var out []Citation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode kb response: %w", err)
	}
	return out, nil
}

// #endregion client

// #region linker

const (
	defaultTopK       = 3
	maxSnippetLen     = 500
	maxCitationsAfter = 5
)

// Linker attaches KB evidence to solutions. Retrieval failures never block
// ranking: every error path degrades to an empty list.
type Linker struct {
	searcher Searcher
	topK     int
}

// NewLinker creates a Linker over a searcher. A nil searcher yields a linker
// that always returns no evidence.
func NewLinker(s Searcher) *Linker {
	return &Linker{searcher: s, topK: defaultTopK}
}

// Attach queries the KB with a parameter-derived query and returns the
// consistency-checked citations. Never returns an error.
func (l *Linker) Attach(ctx context.Context, v params.Vector) []Citation {
	if l.searcher == nil {
		return nil
	}
	query := Query(v)
	results, err := l.searcher.Search(ctx, query, l.topK)
	if err != nil {
		return nil
	}
	return consistencyCheck(results)
}

// Query builds the short KB query string for a recipe.
func Query(v params.Vector) string {
	return fmt.Sprintf("MAO %.0f V %.0f min %.0f%%", v.VoltageV, v.TimeMin, v.DutyCyclePct)
}

// consistencyCheck drops empty snippets and duplicate doc/page pairs, and
// truncates oversized snippets.
func consistencyCheck(in []Citation) []Citation {
	seen := make(map[string]bool, len(in))
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		if c.Snippet == "" {
			continue
		}
		key := fmt.Sprintf("%s#%d", c.DocID, c.Page)
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(c.Snippet) > maxSnippetLen {
			c.Snippet = c.Snippet[:maxSnippetLen]
		}
		out = append(out, c)
		if len(out) == maxCitationsAfter {
			break
		}
	}
	return out
}

// #endregion linker
