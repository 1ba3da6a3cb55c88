// Package memory provides long-term conversational recall for the chat
// agent. Exchanges and financial insights are embedded and stored in an
// in-process vector database, then retrieved by similarity against the
// user's current question.
package memory

import "context"

// Embedder converts text to a vector for similarity search.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Config tunes recall behavior.
type Config struct {
	// Enabled toggles the memory system. When false, Retrieve returns
	// nothing and Record calls are no-ops.
	Enabled bool

	// MaxRecall caps how many memories a single retrieval returns.
	MaxRecall int

	// MinSimilarity is the minimum cosine similarity for a memory to be
	// considered relevant [0.0-1.0]. Small local embedding models score
	// similar text around 0.3-0.4; hosted models score higher.
	MinSimilarity float32
}

// DefaultConfig returns defaults suitable for local use.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		MaxRecall:     5,
		MinSimilarity: 0.3,
	}
}
