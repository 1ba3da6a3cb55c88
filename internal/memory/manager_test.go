package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneywise-app/moneywise/internal/memory/embedder/hash"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(hash.New(), DefaultConfig(), nil)
}

func TestRecordAndRetrieveExchange(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.RecordExchange(ctx, "u1",
		"How much did I spend on groceries last month?",
		"You spent $320 on groceries last month."))

	// The hash embedder only matches identical text, so query with the
	// stored form of the exchange.
	stored := "User asked: How much did I spend on groceries last month? Assistant replied: You spent $320 on groceries last month."
	hits, err := m.Retrieve(ctx, "u1", stored)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0], "groceries")
}

func TestRetrieveIsolatedPerUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.RecordExchange(ctx, "u1", "What are my savings goals?", "You want to save $10k."))

	hits, err := m.Retrieve(ctx, "u2", "What are my savings goals?")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTrivialExchangesNotRecorded(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.RecordExchange(ctx, "u1", "hi", "Hello!"))

	hits, err := m.Retrieve(ctx, "u1", "hi")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRecordInsight(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	insight := "Housing is your largest expense at $1,500 per month."
	require.NoError(t, m.RecordInsight(ctx, "u1", insight))

	hits, err := m.Retrieve(ctx, "u1", "Financial insight: "+insight)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0], "Housing")
}

func TestDisabledManagerIsInert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	m := NewManager(hash.New(), cfg, nil)
	ctx := context.Background()

	require.NoError(t, m.RecordExchange(ctx, "u1", "Remember my budget is $2000.", "Noted."))
	hits, err := m.Retrieve(ctx, "u1", "Remember my budget is $2000.")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := hash.New()
	a, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, e.Dimensions())
}
