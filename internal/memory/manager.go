package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

const (
	kindExchange = "exchange"
	kindInsight  = "insight"

	// Exchanges shorter than this carry no recallable signal
	// ("hi", "thanks", "ok").
	minExchangeLen = 12

	excerptLen = 300
)

// Manager stores and retrieves per-user memories in chromem, an embedded
// pure-Go vector database. Each user gets an isolated collection.
type Manager struct {
	db       *chromem.DB
	embedder Embedder
	cfg      Config
	logger   *zap.Logger

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// NewManager creates a Manager backed by an in-process vector store.
func NewManager(embedder Embedder, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		db:          chromem.NewDB(),
		embedder:    embedder,
		cfg:         cfg,
		logger:      logger,
		collections: make(map[string]*chromem.Collection),
	}
}

// Retrieve returns memory snippets relevant to the query, most similar
// first, filtered by the configured similarity floor.
func (m *Manager) Retrieve(ctx context.Context, userID, query string) ([]string, error) {
	if !m.cfg.Enabled || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	col, err := m.collection(userID)
	if err != nil {
		return nil, err
	}

	results, err := m.queryCollection(ctx, col, embedding, m.cfg.MaxRecall)
	if err != nil {
		return nil, err
	}

	snippets := make([]string, 0, len(results))
	for _, r := range results {
		if r.Similarity < m.cfg.MinSimilarity {
			continue
		}
		snippets = append(snippets, r.Content)
	}

	m.logger.Debug("memory retrieval",
		zap.String("user_id", userID),
		zap.Int("candidates", len(results)),
		zap.Int("returned", len(snippets)))
	return snippets, nil
}

// RecordExchange stores one chat exchange. Trivial user messages are
// skipped; they would only dilute future retrievals.
func (m *Manager) RecordExchange(ctx context.Context, userID, userMessage, assistantMessage string) error {
	if !m.cfg.Enabled {
		return nil
	}
	if len(strings.TrimSpace(userMessage)) < minExchangeLen {
		return nil
	}

	content := fmt.Sprintf("User asked: %s Assistant replied: %s",
		excerpt(userMessage), excerpt(assistantMessage))
	return m.store(ctx, userID, kindExchange, content)
}

// RecordInsight stores one generated financial insight for later recall.
func (m *Manager) RecordInsight(ctx context.Context, userID, insight string) error {
	if !m.cfg.Enabled || strings.TrimSpace(insight) == "" {
		return nil
	}
	return m.store(ctx, userID, kindInsight, "Financial insight: "+excerpt(insight))
}

func (m *Manager) store(ctx context.Context, userID, kind, content string) error {
	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to embed memory: %w", err)
	}

	col, err := m.collection(userID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        uuid.NewString(),
		Content:   content,
		Embedding: embedding,
		Metadata: map[string]string{
			"kind":       kind,
			"user_id":    userID,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}

	m.logger.Debug("memory stored",
		zap.String("user_id", userID),
		zap.String("kind", kind))
	return nil
}

// queryCollection queries with progressively smaller limits; chromem
// rejects nResults larger than the collection size.
func (m *Manager) queryCollection(ctx context.Context, col *chromem.Collection, embedding []float32, limit int) ([]chromem.Result, error) {
	for n := limit; n >= 1; n-- {
		results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			return results, nil
		}
		if isInsufficientDocsError(err) {
			continue
		}
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	return nil, nil
}

// collection returns the per-user collection, creating it on first use.
func (m *Manager) collection(userID string) (*chromem.Collection, error) {
	m.mu.RLock()
	col, ok := m.collections[userID]
	m.mu.RUnlock()
	if ok {
		return col, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.collections[userID]; ok {
		return col, nil
	}

	col, err := m.db.CreateCollection("user_"+userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory collection: %w", err)
	}
	m.collections[userID] = col
	return col, nil
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen] + "..."
}
