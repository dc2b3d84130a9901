package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockResult scripts one Generate outcome for the mock client.
type MockResult struct {
	Text string
	Err  error
}

// MockClient is a scripted Client for tests. Results are consumed in order;
// once exhausted, the last result repeats. The zero value echoes a small
// synthetic article derived from the prompt.
type MockClient struct {
	mu      sync.Mutex
	Results []MockResult
	Prompts []string // every prompt received, in call order
	next    int
}

func (m *MockClient) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)

	if len(m.Results) == 0 {
		return syntheticArticle(prompt), nil
	}
	r := m.Results[m.next]
	if m.next < len(m.Results)-1 {
		m.next++
	}
	return r.Text, r.Err
}

func (m *MockClient) ModelName() string { return "mock" }

// Calls returns how many times Generate has been invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

func syntheticArticle(prompt string) string {
	var sb strings.Builder
	sb.WriteString("# Generated Article\n\n")
	sb.WriteString("> A short synthetic summary for testing.\n\n")
	sb.WriteString("## What This Error Means\n\n")
	sb.WriteString(fmt.Sprintf("Derived from a %d byte prompt.\n", len(prompt)))
	return sb.String()
}
