package assembler

import (
	"testing"

	"ai-search-be/pkg/protocol"

	"github.com/stretchr/testify/assert"
)

func TestLinkCitations(t *testing.T) {
	sources := []protocol.Source{
		{Metadata: protocol.SourceMetadata{URL: "https://a.example"}},
		{Metadata: protocol.SourceMetadata{URL: "https://b.example"}},
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"resolved", "Paris [1].", "Paris [1](https://a.example)."},
		{"second source", "see [2]", "see [2](https://b.example)"},
		{"out of range stays literal", "see [3]", "see [3]"},
		{"zero stays literal", "see [0]", "see [0]"},
		{"not a number", "array[i]", "array[i]"},
		{"several", "[1][2][9]", "[1](https://a.example)[2](https://b.example)[9]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LinkCitations(tt.text, sources))
		})
	}
}

func TestLinkCitationsWithoutSources(t *testing.T) {
	assert.Equal(t, "fact [1]", LinkCitations("fact [1]", nil))
}

func TestStripCitations(t *testing.T) {
	assert.Equal(t, "Paris is the capital.", StripCitations("Paris[1] is the capital[2]."))
}
