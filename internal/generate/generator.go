// Package generate invokes the external generation service for one topic at
// a time and persists the result. All retry, pacing and persistence-ordering
// rules live here.
package generate

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/articles"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	pipeerrors "github.com/Sachin-Mamoru/error-fix-engine/internal/errors"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/llm"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/metrics"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/retry"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/state"
)

// Status is the final outcome for one topic.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusFailed    Status = "failed"
)

// Outcome reports what happened to one topic.
type Outcome struct {
	Slug     string
	Status   Status
	Attempts int // outbound calls made
	Words    int
	Err      error
}

// Generator processes topics sequentially. It is the exclusive writer of the
// article store and the state store.
type Generator struct {
	Client   llm.Client
	Articles *articles.FSStore
	State    state.Store
	Policy   retry.Policy
	Metrics  metrics.Recorder

	CallTimeout       time.Duration
	RateLimitWait     time.Duration // flat wait after an explicit rate-limit signal
	InterRequestDelay time.Duration // minimum spacing between topics' outbound calls
	TargetWordsMin    int
	TargetWordsMax    int

	// Sleep and RandFloat are injectable so tests run without real time.
	Sleep     func(time.Duration)
	RandFloat func() float64
	Now       func() time.Time
}

func (g *Generator) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if g.Sleep != nil {
		g.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) recorder() metrics.Recorder {
	if g.Metrics != nil {
		return g.Metrics
	}
	return metrics.NoopRecorder{}
}

// GenerateOne runs the full generate-validate-persist sequence for a single
// topic. knownSlugs is the set of all catalog slugs, used to filter the
// topic's related references before they reach the prompt.
//
// A failed outcome never carries partial persistence: the state record is
// written only after the article write returned, so an interruption anywhere
// in between leaves the topic absent from the state store and it is retried
// from scratch on the next run.
func (g *Generator) GenerateOne(ctx context.Context, topic catalog.Topic, knownSlugs map[string]bool) Outcome {
	start := g.now()
	rec := g.recorder()

	var related []string
	for _, slug := range topic.Related {
		if knownSlugs[slug] {
			related = append(related, slug)
		}
	}

	author := PickAuthor(topic.Slug)
	prompt := BuildPrompt(topic, related, author, g.TargetWordsMin, g.TargetWordsMax)

	slog.Info("Generating article", logfields.Slug(topic.Slug), logfields.Tool(topic.Tool))

	body, attempts, err := g.callWithRetry(ctx, topic.Slug, prompt)

	// Fixed spacing between consecutive topics' outbound calls, applied on
	// success and failure alike. This is the aggregate-rate guard and is
	// separate from the backoff waits inside the retry loop.
	defer g.sleep(g.InterRequestDelay)

	if err != nil {
		rec.ObserveGenerateDuration(g.now().Sub(start), false)
		rec.IncTopicOutcome(metrics.OutcomeFailed)
		slog.Error("Article generation failed", logfields.Slug(topic.Slug),
			logfields.Attempt(attempts), logfields.Error(err))
		return Outcome{Slug: topic.Slug, Status: StatusFailed, Attempts: attempts, Err: err}
	}

	words := articles.CountWords(body)
	if words < g.TargetWordsMin || words > g.TargetWordsMax {
		// Soft check: flag it, keep the article.
		slog.Warn("Article length outside target range", logfields.Slug(topic.Slug),
			logfields.Words(words),
			slog.Int("target_min", g.TargetWordsMin), slog.Int("target_max", g.TargetWordsMax))
	}

	article := articles.Article{
		Slug:        topic.Slug,
		Title:       topic.ErrorName,
		Description: topic.Description,
		Tool:        topic.Tool,
		WordCount:   words,
		GeneratedAt: g.now().UTC(),
		Fingerprint: catalog.Fingerprint(topic),
		Body:        body,
	}

	if err := g.Articles.Put(article); err != nil {
		rec.ObserveGenerateDuration(g.now().Sub(start), false)
		rec.IncTopicOutcome(metrics.OutcomeFailed)
		werr := pipeerrors.StoreWriteError(topic.Slug, err)
		slog.Error("Article persist failed", logfields.Slug(topic.Slug), logfields.Error(werr))
		return Outcome{Slug: topic.Slug, Status: StatusFailed, Attempts: attempts, Err: werr}
	}

	// Only now that the article write is durable may the state record exist.
	if err := g.State.Put(topic.Slug, state.Record{
		Fingerprint: article.Fingerprint,
		GeneratedAt: article.GeneratedAt,
	}); err != nil {
		// The article exists but the record does not; the next run simply
		// regenerates this topic. Safe, just wasteful, so report failure.
		rec.ObserveGenerateDuration(g.now().Sub(start), false)
		rec.IncTopicOutcome(metrics.OutcomeFailed)
		werr := pipeerrors.StateWriteError(err)
		slog.Error("State record write failed", logfields.Slug(topic.Slug), logfields.Error(werr))
		return Outcome{Slug: topic.Slug, Status: StatusFailed, Attempts: attempts, Err: werr}
	}

	rec.ObserveGenerateDuration(g.now().Sub(start), true)
	rec.IncTopicOutcome(metrics.OutcomeGenerated)
	slog.Info("Article generated", logfields.Slug(topic.Slug), logfields.Words(words),
		logfields.Attempt(attempts))
	return Outcome{Slug: topic.Slug, Status: StatusGenerated, Attempts: attempts, Words: words}
}

// callWithRetry invokes the service up to MaxRetries+1 times. Rate-limit
// signals wait the flat RateLimitWait (long enough that the next attempt
// lands in a fresh quota window); other transient classes use the jittered
// backoff. Permanent faults abort immediately.
func (g *Generator) callWithRetry(ctx context.Context, slug, prompt string) (string, int, error) {
	rec := g.recorder()
	randFloat := g.RandFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}

	maxAttempts := g.Policy.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if g.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.CallTimeout)
		}
		body, err := g.Client.Generate(callCtx, prompt)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if strings.TrimSpace(body) == "" {
				err = pipeerrors.New(pipeerrors.CategoryGeneration, pipeerrors.SeverityError, "empty article body")
			} else {
				return body, attempt, nil
			}
		}
		lastErr = err

		class := llm.Classify(err)
		if !class.Retryable() {
			slog.Error("Permanent generation error, not retrying",
				logfields.Slug(slug), logfields.Error(err))
			return "", attempt, pipeerrors.GenerationFailed(slug, err)
		}
		if attempt == maxAttempts {
			break
		}

		rec.IncRetry(class.String())
		var wait time.Duration
		if class == llm.ClassRateLimit {
			wait = g.RateLimitWait
			slog.Warn("Rate limit hit, waiting before retry", logfields.Slug(slug),
				logfields.Attempt(attempt), slog.Duration("wait", wait))
		} else {
			wait = g.Policy.JitteredDelay(attempt, randFloat)
			slog.Warn("Transient generation error, retrying", logfields.Slug(slug),
				logfields.Attempt(attempt), slog.Duration("wait", wait), logfields.Error(err))
		}
		g.sleep(wait)
	}

	rec.IncRetriesExhausted()
	return "", maxAttempts, pipeerrors.RetriesExhausted(slug, maxAttempts, lastErr)
}
