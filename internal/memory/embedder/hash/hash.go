// Package hash provides a dependency-free embedder that maps text to a
// deterministic pseudo-random unit vector. Identical texts always embed
// identically, which is enough for exact-recall behavior in local runs
// and for tests; it has no semantic similarity.
package hash

import (
	"context"
	"hash/fnv"
	"math"
)

const dimensions = 384

// Embedder generates deterministic embeddings from a text hash.
type Embedder struct{}

// New creates a hash embedder.
func New() *Embedder {
	return &Embedder{}
}

// Embed hashes the text and expands the hash into a unit vector with a
// linear congruential generator.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, dimensions)
	for i := range embedding {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
