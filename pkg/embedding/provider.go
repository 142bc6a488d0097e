package embedding

import (
	"context"
	"errors"
	"math"
)

// Task types understood by providers that distinguish queries from documents.
// Providers without the distinction ignore them.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

var ErrEmptyInput = errors.New("embedding: empty input")

// Embedder turns text into a vector.
type Embedder interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}

// Normalize scales vec to unit length so dot products equal cosine similarity.
func Normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	// Avoid division by zero
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}

func toFloat32s(f64 []float64) []float32 {
	out := make([]float32, len(f64))
	for i, v := range f64 {
		out[i] = float32(v)
	}
	return out
}
