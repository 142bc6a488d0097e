package generation

import (
	"ai-search-be/pkg/embedding"
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/protocol"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Retriever finds sources for a query. The embedder is the session's
// negotiated embedding model, for retrievers that need one.
type Retriever interface {
	Retrieve(ctx context.Context, query string, history []llm.Message, emb embedding.Embedder) ([]protocol.Source, error)
}

// NoopRetriever answers from the model alone.
type NoopRetriever struct{}

func (NoopRetriever) Retrieve(context.Context, string, []llm.Message, embedding.Embedder) ([]protocol.Source, error) {
	return nil, nil
}

// SearxngRetriever queries a SearxNG instance's JSON API. Results keep the
// order SearxNG returns them in.
type SearxngRetriever struct {
	BaseURL    string
	Client     *http.Client
	MaxResults int
	Engines    []string
}

func NewSearxngRetriever(baseURL string, maxResults int) *SearxngRetriever {
	return &SearxngRetriever{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Client:     http.DefaultClient,
		MaxResults: maxResults,
	}
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (r *SearxngRetriever) Retrieve(ctx context.Context, query string, _ []llm.Message, _ embedding.Embedder) ([]protocol.Source, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if len(r.Engines) > 0 {
		params.Set("engines", strings.Join(r.Engines, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create searxng request: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("searxng error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}

	sources := make([]protocol.Source, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.URL == "" {
			continue
		}
		sources = append(sources, protocol.Source{
			PageContent: res.Content,
			Metadata:    protocol.SourceMetadata{URL: res.URL, Title: res.Title},
		})
		if r.MaxResults > 0 && len(sources) == r.MaxResults {
			break
		}
	}
	return sources, nil
}
