package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/articles"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/config"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/llm"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/retry"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/state"
)

const goodBody = "# Title\n\n> Summary.\n\n## What This Error Means\n\nwords words words\n"

func newTestGenerator(t *testing.T, client llm.Client) (*Generator, *state.MemoryStore, *[]time.Duration) {
	t.Helper()
	store, err := articles.NewFSStore(t.TempDir())
	require.NoError(t, err)

	st := state.NewMemoryStore()
	var sleeps []time.Duration

	policy := retry.NewPolicy(config.RetryBackoffExponential, time.Second, time.Minute, 2)
	policy.Jitter = 0 // deterministic waits in tests

	g := &Generator{
		Client:            client,
		Articles:          store,
		State:             st,
		Policy:            policy,
		CallTimeout:       time.Minute,
		RateLimitWait:     65 * time.Second,
		InterRequestDelay: 15 * time.Second,
		TargetWordsMin:    3,
		TargetWordsMax:    1000,
		Sleep:             func(d time.Duration) { sleeps = append(sleeps, d) },
		RandFloat:         func() float64 { return 0.5 },
		Now:               func() time.Time { return time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC) },
	}
	return g, st, &sleeps
}

func topicFixture() catalog.Topic {
	return catalog.Topic{
		Tool:        "Docker",
		ErrorCode:   "exit-137",
		ErrorName:   "Container exited with code 137",
		Description: "OOM kill",
		Context:     "runtime",
		Related:     []string{"kubernetes-oomkilled", "unknown-slug"},
		Slug:        "docker-exit-137",
	}
}

func TestGenerateOneSuccess(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{{Text: goodBody}}}
	g, st, _ := newTestGenerator(t, mock)
	topic := topicFixture()

	out := g.GenerateOne(context.Background(), topic, map[string]bool{"kubernetes-oomkilled": true})

	assert.Equal(t, StatusGenerated, out.Status)
	assert.Equal(t, 1, out.Attempts)
	require.NoError(t, out.Err)

	// Article persisted with fingerprint and metadata.
	a, ok, err := g.Articles.Get(topic.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, topic.ErrorName, a.Title)
	assert.Equal(t, catalog.Fingerprint(topic), a.Fingerprint)

	// State record matches the stored article.
	rec, ok := st.Get(topic.Slug)
	require.True(t, ok)
	assert.Equal(t, a.Fingerprint, rec.Fingerprint)
	assert.True(t, rec.GeneratedAt.Equal(a.GeneratedAt))
}

func TestGenerateOneFiltersRelatedAgainstKnownSlugs(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{{Text: goodBody}}}
	g, _, _ := newTestGenerator(t, mock)

	g.GenerateOne(context.Background(), topicFixture(), map[string]bool{"kubernetes-oomkilled": true})

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "kubernetes-oomkilled")
	assert.NotContains(t, mock.Prompts[0], "unknown-slug")
}

func TestRetryBoundOnPersistentTransientFailure(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{{Err: genai.APIError{Code: 503, Message: "overloaded"}}}}
	g, st, _ := newTestGenerator(t, mock)

	out := g.GenerateOne(context.Background(), topicFixture(), nil)

	// MaxRetries=2 -> exactly 3 attempts, then demoted to topic failure.
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, mock.Calls())
	assert.Error(t, out.Err)
	assert.Equal(t, 0, st.Len(), "no state record for a failed topic")
	assert.False(t, g.Articles.Exists("docker-exit-137"))
}

func TestPermanentErrorFailsImmediately(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{{Err: genai.APIError{Code: 400, Message: "invalid"}}}}
	g, st, sleeps := newTestGenerator(t, mock)

	out := g.GenerateOne(context.Background(), topicFixture(), nil)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, 0, st.Len())

	// No backoff sleeps; only the inter-request spacing.
	require.Len(t, *sleeps, 1)
	assert.Equal(t, 15*time.Second, (*sleeps)[0])
}

func TestRateLimitUsesFlatWait(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{
		{Err: genai.APIError{Code: 429, Message: "quota"}},
		{Text: goodBody},
	}}
	g, _, sleeps := newTestGenerator(t, mock)

	out := g.GenerateOne(context.Background(), topicFixture(), nil)

	assert.Equal(t, StatusGenerated, out.Status)
	assert.Equal(t, 2, out.Attempts)
	// First sleep is the flat rate-limit wait, then the inter-request delay.
	require.Len(t, *sleeps, 2)
	assert.Equal(t, 65*time.Second, (*sleeps)[0])
	assert.Equal(t, 15*time.Second, (*sleeps)[1])
}

func TestTransientErrorUsesBackoff(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{
		{Err: genai.APIError{Code: 500, Message: "boom"}},
		{Err: genai.APIError{Code: 500, Message: "boom"}},
		{Text: goodBody},
	}}
	g, _, sleeps := newTestGenerator(t, mock)

	out := g.GenerateOne(context.Background(), topicFixture(), nil)

	assert.Equal(t, StatusGenerated, out.Status)
	assert.Equal(t, 3, out.Attempts)
	// Exponential: 1s then 2s, then the 15s spacing.
	require.Len(t, *sleeps, 3)
	assert.Equal(t, time.Second, (*sleeps)[0])
	assert.Equal(t, 2*time.Second, (*sleeps)[1])
	assert.Equal(t, 15*time.Second, (*sleeps)[2])
}

func TestInterRequestDelayAppliedOnFailure(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{{Err: genai.APIError{Code: 400}}}}
	g, _, sleeps := newTestGenerator(t, mock)

	g.GenerateOne(context.Background(), topicFixture(), nil)

	require.NotEmpty(t, *sleeps)
	assert.Equal(t, 15*time.Second, (*sleeps)[len(*sleeps)-1])
}

func TestSoftLengthCheckStillPersists(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{{Text: "too short"}}}
	g, st, _ := newTestGenerator(t, mock)
	g.TargetWordsMin = 900
	g.TargetWordsMax = 1200

	out := g.GenerateOne(context.Background(), topicFixture(), nil)

	assert.Equal(t, StatusGenerated, out.Status)
	assert.Equal(t, 2, out.Words)
	assert.True(t, g.Articles.Exists("docker-exit-137"))
	assert.Equal(t, 1, st.Len())
}

func TestEmptyBodyIsRetried(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{
		{Text: "   \n"},
		{Text: goodBody},
	}}
	g, _, _ := newTestGenerator(t, mock)

	out := g.GenerateOne(context.Background(), topicFixture(), nil)

	assert.Equal(t, StatusGenerated, out.Status)
	assert.Equal(t, 2, out.Attempts)
}

func TestStateWriteFailureReportsFailure(t *testing.T) {
	mock := &llm.MockClient{Results: []llm.MockResult{{Text: goodBody}}}
	g, st, _ := newTestGenerator(t, mock)
	st.PutErr = errors.New("disk full")

	out := g.GenerateOne(context.Background(), topicFixture(), nil)

	assert.Equal(t, StatusFailed, out.Status)
	// The article write happened before the state failure; the next run
	// regenerates the topic because no record exists.
	assert.True(t, g.Articles.Exists("docker-exit-137"))
	assert.Equal(t, 0, st.Len())
}

func TestPickAuthorDeterministic(t *testing.T) {
	a := PickAuthor("docker-exit-137")
	b := PickAuthor("docker-exit-137")
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Name)
	assert.NotEmpty(t, a.Title)
}

func TestBuildPromptContents(t *testing.T) {
	topic := topicFixture()
	p := BuildPrompt(topic, []string{"a-slug", "b-slug"}, Author{Name: "Alex Mercer", Title: "Senior Software Engineer"}, 900, 1200)

	assert.Contains(t, p, "# Container exited with code 137")
	assert.Contains(t, p, "**Tool / Platform:** Docker")
	assert.Contains(t, p, "[a-slug](/errors/a-slug.html)")
	assert.Contains(t, p, "[b-slug](/errors/b-slug.html)")
	assert.Contains(t, p, "900–1200 words")
	assert.Contains(t, p, "Alex Mercer")
}

func TestBuildPromptNoRelated(t *testing.T) {
	p := BuildPrompt(topicFixture(), nil, PickAuthor("x"), 900, 1200)
	assert.Contains(t, p, "*(none)*")
}

func TestBuildPromptCapsRelatedLinks(t *testing.T) {
	related := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	p := BuildPrompt(topicFixture(), related, PickAuthor("x"), 900, 1200)
	assert.Contains(t, p, "[s4](/errors/s4.html)")
	assert.NotContains(t, p, "[s5](/errors/s5.html)")
}
