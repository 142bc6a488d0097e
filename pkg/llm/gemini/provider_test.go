package gemini

import (
	"context"
	"errors"
	"testing"

	"ai-search-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestConvertSplitsSystemAndMapsRoles(t *testing.T) {
	cfg, contents := convert([]llm.Message{
		{Role: "system", Content: "answer with sources"},
		{Role: "human", Content: "hi"},
		{Role: "ai", Content: "hello"},
		{Role: "user", Content: "capital of France?"},
	}, llm.Options{Temperature: 0.5, MaxTokens: 100})

	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "answer with sources", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, *cfg.Temperature, 1e-6)
	assert.EqualValues(t, 100, cfg.MaxOutputTokens)

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "capital of France?", contents[2].Parts[0].Text)
}

func TestConvertLeavesTemperatureUnsetByDefault(t *testing.T) {
	cfg, _ := convert([]llm.Message{{Role: "user", Content: "q"}}, llm.Options{})
	assert.Nil(t, cfg.Temperature)
	assert.Nil(t, cfg.SystemInstruction)
}

func textChunk(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: s}}},
	}}}
}

func TestPullForwardsTextAndErrors(t *testing.T) {
	seq := func(yield func(*genai.GenerateContentResponse, error) bool) {
		if !yield(textChunk("Par"), nil) {
			return
		}
		if !yield(textChunk("is"), nil) {
			return
		}
		yield(nil, errors.New("connection reset"))
	}

	ch := make(chan llm.TokenEvent, 8)
	pull(context.Background(), ch, seq)
	close(ch)

	text, err := llm.Collect(context.Background(), ch)
	assert.Equal(t, "Paris", text)
	assert.ErrorContains(t, err, "connection reset")
}

func TestModelInfoSupports(t *testing.T) {
	m := ModelInfo{Name: "gemini-2.0-flash", Actions: []string{"generateContent", "countTokens"}}
	assert.True(t, m.Supports("generateContent"))
	assert.False(t, m.Supports("embedContent"))
}
