package completion

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests. Each Complete call pops the
// next queued response; requests are recorded for assertions.
type MockClient struct {
	mu        sync.Mutex
	responses []*Response
	err       error
	Requests  []*Request
}

// NewMock creates a mock that replays the given responses in order.
func NewMock(responses ...*Response) *MockClient {
	return &MockClient{responses: responses}
}

// FailWith makes every subsequent call return err.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Enqueue appends another scripted response.
func (m *MockClient) Enqueue(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// Complete records the request and returns the next scripted response.
func (m *MockClient) Complete(_ context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &Response{Text: "ok"}, nil
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// Calls returns how many completion calls were made.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
