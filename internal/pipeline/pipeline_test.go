package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/articles"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/config"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/generate"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/llm"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/retry"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/site"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/state"
)

type memorySink struct {
	events []sinkEvent
}

type sinkEvent struct {
	runID   string
	typ     string
	payload map[string]any
}

func (m *memorySink) Append(_ context.Context, runID, eventType string, payload map[string]any) error {
	m.events = append(m.events, sinkEvent{runID: runID, typ: eventType, payload: payload})
	return nil
}

func (m *memorySink) types() []string {
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.typ
	}
	return out
}

type fixture struct {
	pipeline *Pipeline
	state    *state.MemoryStore
	store    *articles.FSStore
	mock     *llm.MockClient
	sink     *memorySink
	output   string
}

func newFixture(t *testing.T, topics []catalog.Topic, results []llm.MockResult) *fixture {
	t.Helper()
	store, err := articles.NewFSStore(t.TempDir())
	require.NoError(t, err)

	st := state.NewMemoryStore()
	mock := &llm.MockClient{Results: results}
	sink := &memorySink{}
	output := t.TempDir()

	policy := retry.NewPolicy(config.RetryBackoffExponential, time.Second, time.Minute, 1)
	policy.Jitter = 0

	gen := &generate.Generator{
		Client:         mock,
		Articles:       store,
		State:          st,
		Policy:         policy,
		TargetWordsMin: 1,
		TargetWordsMax: 10000,
		Sleep:          func(time.Duration) {},
	}
	builder := &site.Builder{
		BaseURL: "https://errors.example.com",
		Title:   "Error Fix Engine",
		Output:  output,
	}
	return &fixture{
		pipeline: &Pipeline{
			Topics:    topics,
			State:     st,
			Articles:  store,
			Generator: gen,
			Builder:   builder,
			Events:    sink,
		},
		state:  st,
		store:  store,
		mock:   mock,
		sink:   sink,
		output: output,
	}
}

func catalogABC() []catalog.Topic {
	return []catalog.Topic{
		{Tool: "Docker", ErrorName: "Error A", Description: "a", Slug: "docker-error-a"},
		{Tool: "Git", ErrorName: "Error B", Description: "b", Slug: "git-error-b"},
		{Tool: "Kubernetes", ErrorName: "Error C", Description: "c", Slug: "k8s-error-c"},
	}
}

func markUpToDate(t *testing.T, f *fixture, topic catalog.Topic, body string) {
	t.Helper()
	require.NoError(t, f.store.Put(articles.Article{
		Slug:        topic.Slug,
		Title:       topic.ErrorName,
		Tool:        topic.Tool,
		WordCount:   articles.CountWords(body),
		GeneratedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Fingerprint: catalog.Fingerprint(topic),
		Body:        body,
	}))
	require.NoError(t, f.state.Put(topic.Slug, state.Record{
		Fingerprint: catalog.Fingerprint(topic),
		GeneratedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}))
}

// Catalog [A, B, C] where A is up to date: a dry run plans exactly [B, C],
// then a normal run in which C fails permanently generates B only, and the
// built site carries A and B with both in the sitemap.
func TestRunScenarioPartialFailure(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, []llm.MockResult{
		{Text: "# Error B\n\nGuide for B.\n"},
		{Err: genai.APIError{Code: 400, Message: "INVALID_ARGUMENT"}},
	})
	markUpToDate(t, f, topics[0], "# Error A\n\nGuide for A.\n")

	dry, err := f.pipeline.Run(context.Background(), ModeDryRun, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"git-error-b", "k8s-error-c"}, dry.Planned)
	assert.Equal(t, 0, dry.Generated)
	assert.Equal(t, 0, f.mock.Calls(), "dry run must not call the service")
	_, statErr := os.Stat(filepath.Join(f.output, "index.html"))
	assert.True(t, os.IsNotExist(statErr), "dry run must not touch the output tree")

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err, "topic failures must not fail the run")
	assert.Equal(t, 1, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.Pages) // A + B + index

	assert.True(t, f.store.Exists("docker-error-a"))
	assert.True(t, f.store.Exists("git-error-b"))
	assert.False(t, f.store.Exists("k8s-error-c"))

	sitemap, err := os.ReadFile(filepath.Join(f.output, "sitemap.xml"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(sitemap), "/errors/"))
	assert.NotContains(t, string(sitemap), "k8s-error-c")
}

func TestRunFiveTopicsOneFailure(t *testing.T) {
	var topics []catalog.Topic
	var results []llm.MockResult
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		topics = append(topics, catalog.Topic{Tool: "Docker", ErrorName: "Error " + name, Slug: "docker-error-" + name})
	}
	for i := range topics {
		if i == 2 {
			results = append(results, llm.MockResult{Err: genai.APIError{Code: 404, Message: "NOT_FOUND"}})
			continue
		}
		results = append(results, llm.MockResult{Text: "# Guide\n\nBody.\n"})
	}
	f := newFixture(t, topics, results)

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Generated)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	// Topics after the failed one were still processed, in catalog order.
	assert.True(t, f.store.Exists("docker-error-d"))
	assert.True(t, f.store.Exists("docker-error-e"))
}

func TestRunIdempotentSecondPass(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Guide\n\nBody.\n"}})

	first, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Generated)
	calls := f.mock.Calls()

	second, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, calls, f.mock.Calls(), "an up-to-date catalog makes no service calls")
}

func TestRunBuildOnlySkipsGeneration(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, nil)
	markUpToDate(t, f, topics[0], "# Error A\n\nGuide for A.\n")

	report, err := f.pipeline.Run(context.Background(), ModeBuildOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 0, f.mock.Calls())
	assert.Equal(t, 2, report.Pages) // A + index

	_, statErr := os.Stat(filepath.Join(f.output, "index.html"))
	assert.NoError(t, statErr)
}

func TestRunForceRegenerates(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Regenerated\n\nBody.\n"}})
	for _, topic := range topics {
		markUpToDate(t, f, topic, "# Old\n\nBody.\n")
	}

	report, err := f.pipeline.Run(context.Background(), ModeNormal, map[string]bool{"git-error-b": true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
	assert.Equal(t, []string{"git-error-b"}, report.Planned)

	a, ok, err := f.store.Get("git-error-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, a.Body, "Regenerated")
}

func TestRunMaxPerRunCapsWork(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Guide\n\nBody.\n"}})
	f.pipeline.MaxPerRun = 2

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Generated)
	assert.Len(t, report.Planned, 2)

	// The remainder stays pending for the next run.
	second, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"k8s-error-c"}, second.Planned)
}

// Topics pushed past the per-run cap are deferred, not skipped: Skipped counts
// only topics that were already up to date when the run started.
func TestRunMaxPerRunDefersNotSkips(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Guide\n\nBody.\n"}})
	f.pipeline.MaxPerRun = 1
	markUpToDate(t, f, topics[0], "# Error A\n\nGuide for A.\n")

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"git-error-b"}, report.Planned)
	assert.Equal(t, 1, report.Generated)
	assert.Equal(t, 1, report.Skipped, "only up-to-date topics count as skipped")
	assert.Equal(t, 1, report.Deferred, "capped-out topics count as deferred")

	var computed *sinkEvent
	for i := range f.sink.events {
		if f.sink.events[i].typ == "work_list_computed" {
			computed = &f.sink.events[i]
		}
	}
	require.NotNil(t, computed)
	assert.Equal(t, 1, computed.payload["skipped"])
	assert.Equal(t, 1, computed.payload["deferred"])
}

// A cool-down pause is inserted after every BatchSize generated articles,
// except when the work list is already exhausted.
func TestRunBatchPause(t *testing.T) {
	var topics []catalog.Topic
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		topics = append(topics, catalog.Topic{Tool: "Docker", ErrorName: "Error " + name, Slug: "docker-error-" + name})
	}
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Guide\n\nBody.\n"}})
	var pauses []time.Duration
	f.pipeline.BatchSize = 2
	f.pipeline.BatchPause = 70 * time.Second
	f.pipeline.Sleep = func(d time.Duration) { pauses = append(pauses, d) }

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Generated)
	// Batches complete after the 2nd and 4th article; the 5th is the last
	// work item, so no trailing pause.
	assert.Equal(t, []time.Duration{70 * time.Second, 70 * time.Second}, pauses)
}

func TestRunBatchPauseCountsGeneratedOnly(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, []llm.MockResult{
		{Text: "# Guide\n\nBody.\n"},
		{Err: genai.APIError{Code: 400, Message: "INVALID_ARGUMENT"}},
		{Text: "# Guide\n\nBody.\n"},
	})
	var pauses []time.Duration
	f.pipeline.BatchSize = 2
	f.pipeline.BatchPause = 70 * time.Second
	f.pipeline.Sleep = func(d time.Duration) { pauses = append(pauses, d) }

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Generated)
	assert.Equal(t, 1, report.Failed)
	// The second success lands on the final work item, so the completed
	// batch triggers no pause and the failure never counts toward one.
	assert.Empty(t, pauses)
}

func TestRunBatchPauseDisabled(t *testing.T) {
	topics := catalogABC()
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Guide\n\nBody.\n"}})
	var pauses []time.Duration
	f.pipeline.BatchSize = 0
	f.pipeline.BatchPause = 70 * time.Second
	f.pipeline.Sleep = func(d time.Duration) { pauses = append(pauses, d) }

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Generated)
	assert.Empty(t, pauses)
}

func TestRunEmitsEvents(t *testing.T) {
	topics := catalogABC()[:1]
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Guide\n\nBody.\n"}})

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"run_started", "work_list_computed", "topic_started",
		"topic_generated", "site_built", "run_finished",
	}, f.sink.types())
	for _, e := range f.sink.events {
		assert.Equal(t, report.RunID, e.runID)
	}
}

func TestRunFailedTopicEventCarriesAttempts(t *testing.T) {
	topics := catalogABC()[:1]
	f := newFixture(t, topics, []llm.MockResult{{Err: genai.APIError{Code: 500, Message: "boom"}}})

	_, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)

	var failed *sinkEvent
	for i := range f.sink.events {
		if f.sink.events[i].typ == "topic_failed" {
			failed = &f.sink.events[i]
		}
	}
	require.NotNil(t, failed)
	// MaxRetries=1 in the fixture policy -> two attempts.
	assert.Equal(t, 2, failed.payload["attempts"])
	assert.NotEmpty(t, failed.payload["error"])
}

func TestRunWithoutSinkOrMetrics(t *testing.T) {
	topics := catalogABC()[:1]
	f := newFixture(t, topics, []llm.MockResult{{Text: "# Guide\n\nBody.\n"}})
	f.pipeline.Events = nil
	f.pipeline.Metrics = nil

	report, err := f.pipeline.Run(context.Background(), ModeNormal, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
}
