package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"codeberg.org/snonux/readalong/internal/vocabulary"
)

// MockPoster mocks the JSON dispatcher. Replies are raw JSON bodies keyed
// by endpoint; Errors take precedence over Replies.
type MockPoster struct {
	mu       sync.Mutex
	Replies  map[string]string
	Errors   map[string]error
	Calls    []string
	Payloads []any

	// Block, when set, is waited on before replying
	Block chan struct{}
}

// PostJSON records the call and decodes the canned reply into out
func (m *MockPoster) PostJSON(ctx context.Context, endpoint string, payload, out any) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, fmt.Sprintf("POST %s", endpoint))
	m.Payloads = append(m.Payloads, payload)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.Errors[endpoint]; ok {
		return err
	}

	reply, ok := m.Replies[endpoint]
	if !ok {
		return fmt.Errorf("no reply configured for %s", endpoint)
	}
	return json.Unmarshal([]byte(reply), out)
}

// CallCount returns the number of PostJSON calls so far
func (m *MockPoster) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockPlayer mocks audio playback
type MockPlayer struct {
	mu      sync.Mutex
	Err     error
	Sources []string
	Stops   int
}

// Play records the source and returns Err
func (m *MockPlayer) Play(ctx context.Context, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sources = append(m.Sources, src)
	return m.Err
}

// Played returns the sources passed to Play
func (m *MockPlayer) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Sources...)
}

// Wait returns at once; mocked playback has no duration
func (m *MockPlayer) Wait() {}

// Stop counts the call
func (m *MockPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stops++
}

// MockRecorder mocks the vocabulary notebook
type MockRecorder struct {
	mu      sync.Mutex
	Err     error
	Words   []string
	Entries []vocabulary.Word
	Sources []string
}

// Record stores the words and source URL
func (m *MockRecorder) Record(ctx context.Context, words []vocabulary.Word, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range words {
		m.Words = append(m.Words, w.Word)
	}
	m.Entries = append(m.Entries, words...)
	m.Sources = append(m.Sources, sourceURL)
	return m.Err
}

// MockSource is a text source that can fail
type MockSource struct {
	Value string
	Err   error
}

// Text returns Value or Err
func (m MockSource) Text() (string, error) {
	return m.Value, m.Err
}
