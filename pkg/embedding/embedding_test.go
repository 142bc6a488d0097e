package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	out := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, Normalize(zero))
}

func TestOllamaGenerateNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "query", req.Prompt)
		fmt.Fprint(w, `{"embedding":[3,0,4]}`)
	}))
	defer srv.Close()

	vec, err := NewOllamaProvider(srv.URL+"/", "").Generate(context.Background(), "query", TaskRetrievalQuery)
	require.NoError(t, err)
	require.Len(t, vec, 3)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestOllamaGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing").Generate(context.Background(), "q", "")
	assert.ErrorContains(t, err, "status 404")
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`)
	}))
	defer srv.Close()

	vec, err := NewOpenAIProvider("k", srv.URL, "").Generate(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestEmptyInputIsRejected(t *testing.T) {
	_, err := NewOllamaProvider("", "").Generate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = NewOpenAIProvider("k", "", "").Generate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
