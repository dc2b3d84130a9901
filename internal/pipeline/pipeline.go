// Package pipeline orchestrates a full run: load the catalog, compute the
// work list, generate pending articles one at a time, then rebuild the site.
// A topic failure never aborts the run; only a build-stage failure does.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/articles"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/generate"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/metrics"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/reconcile"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/site"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/state"
)

// Mode selects how much of the pipeline a run executes.
type Mode string

const (
	// ModeNormal generates pending articles and rebuilds the site.
	ModeNormal Mode = "normal"
	// ModeDryRun computes and reports the work list without generating
	// anything or touching the output tree.
	ModeDryRun Mode = "dry-run"
	// ModeBuildOnly skips generation and rebuilds the site from whatever
	// articles already exist.
	ModeBuildOnly Mode = "build-only"
)

// Report summarises one run.
type Report struct {
	RunID     string
	Mode      Mode
	Planned   []string // slugs on the work list, catalog order
	Generated int
	Skipped   int // up to date before the run started
	Deferred  int // pending but pushed past the per-run cap
	Failed    int
	Pages     int
	Duration  time.Duration
}

// EventSink receives run events. Append failures are logged and otherwise
// ignored; the event log is observational.
type EventSink interface {
	Append(ctx context.Context, runID, eventType string, payload map[string]any) error
}

// Pipeline wires the stages together. All fields are required except
// Events, Metrics and MaxPerRun.
type Pipeline struct {
	Topics    []catalog.Topic
	State     state.Store
	Articles  *articles.FSStore
	Generator *generate.Generator
	Builder   *site.Builder
	Events    EventSink
	Metrics   metrics.Recorder

	// MaxPerRun caps how many topics a single run generates; zero means
	// no cap. Remaining topics stay pending for the next run.
	MaxPerRun int

	// BatchSize and BatchPause insert a cool-down after every BatchSize
	// generated articles, on top of the generator's per-request spacing.
	// BatchSize <= 0 disables the pause.
	BatchSize  int
	BatchPause time.Duration

	// Sleep is swappable for tests; nil means time.Sleep.
	Sleep func(time.Duration)

	Now func() time.Time
}

func (p *Pipeline) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) recorder() metrics.Recorder {
	if p.Metrics != nil {
		return p.Metrics
	}
	return metrics.NoopRecorder{}
}

func (p *Pipeline) emit(ctx context.Context, runID, eventType string, payload map[string]any) {
	if p.Events == nil {
		return
	}
	if err := p.Events.Append(ctx, runID, eventType, payload); err != nil {
		slog.Warn("Event log append failed", logfields.RunID(runID),
			slog.String("event_type", eventType), logfields.Error(err))
	}
}

// Run executes one pipeline pass. The returned report is valid even when err
// is non-nil; err is non-nil only for run-fatal conditions (a site build
// failure), never for individual topic failures.
func (p *Pipeline) Run(ctx context.Context, mode Mode, force map[string]bool) (Report, error) {
	start := p.now()
	runID := uuid.NewString()
	rec := p.recorder()

	report := Report{RunID: runID, Mode: mode}
	slog.Info("Run started", logfields.RunID(runID), logfields.Mode(string(mode)),
		slog.Int("topics", len(p.Topics)))
	p.emit(ctx, runID, "run_started", map[string]any{"mode": string(mode), "topics": len(p.Topics)})

	items := reconcile.Plan(p.Topics, p.State, force)
	report.Skipped = len(p.Topics) - len(items)
	if p.MaxPerRun > 0 && len(items) > p.MaxPerRun {
		report.Deferred = len(items) - p.MaxPerRun
		items = items[:p.MaxPerRun]
	}
	report.Planned = reconcile.Slugs(items)
	rec.SetWorkListSize(len(items))
	slog.Info("Work list computed", logfields.RunID(runID),
		slog.Int("pending", len(items)), slog.Int("skipped", report.Skipped),
		slog.Int("deferred", report.Deferred))
	p.emit(ctx, runID, "work_list_computed", map[string]any{
		"pending": len(items), "skipped": report.Skipped,
		"deferred": report.Deferred, "slugs": report.Planned,
	})

	if mode == ModeDryRun {
		report.Duration = p.now().Sub(start)
		p.emit(ctx, runID, "run_finished", map[string]any{"mode": string(mode)})
		return report, nil
	}

	knownSlugs := make(map[string]bool, len(p.Topics))
	for _, t := range p.Topics {
		knownSlugs[t.Slug] = true
	}

	if mode != ModeBuildOnly {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				slog.Warn("Run canceled, stopping before next topic", logfields.RunID(runID))
				break
			}
			p.emit(ctx, runID, "topic_started", map[string]any{
				"slug": item.Topic.Slug, "reason": string(item.Reason),
			})
			out := p.Generator.GenerateOne(ctx, item.Topic, knownSlugs)
			switch out.Status {
			case generate.StatusGenerated:
				report.Generated++
				p.emit(ctx, runID, "topic_generated", map[string]any{
					"slug": out.Slug, "attempts": out.Attempts, "words": out.Words,
				})
			default:
				report.Failed++
				p.emit(ctx, runID, "topic_failed", map[string]any{
					"slug": out.Slug, "attempts": out.Attempts, "error": out.Err.Error(),
				})
			}
			// Cool down after each full batch of generated articles,
			// unless the work list is already exhausted.
			if p.BatchSize > 0 && report.Generated > 0 &&
				report.Generated%p.BatchSize == 0 &&
				out.Status == generate.StatusGenerated && i < len(items)-1 {
				slog.Info("Batch complete, pausing", logfields.RunID(runID),
					slog.Int("generated", report.Generated),
					slog.Duration("pause", p.BatchPause))
				p.sleep(p.BatchPause)
			}
		}
	}

	buildStart := p.now()
	res, err := p.Builder.Build(p.Topics, p.Articles)
	rec.ObserveBuildDuration(p.now().Sub(buildStart))
	if err != nil {
		slog.Error("Site build failed", logfields.RunID(runID), logfields.Error(err))
		p.emit(ctx, runID, "build_failed", map[string]any{"error": err.Error()})
		report.Duration = p.now().Sub(start)
		rec.ObserveRunDuration(report.Duration)
		return report, err
	}
	report.Pages = res.Pages
	rec.SetSitePages(res.Pages)
	p.emit(ctx, runID, "site_built", map[string]any{
		"pages": res.Pages, "sitemap_urls": res.SitemapURLs,
	})

	report.Duration = p.now().Sub(start)
	rec.ObserveRunDuration(report.Duration)
	slog.Info("Run finished", logfields.RunID(runID),
		slog.Int("generated", report.Generated), slog.Int("skipped", report.Skipped),
		slog.Int("deferred", report.Deferred), slog.Int("failed", report.Failed),
		logfields.Pages(report.Pages),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	p.emit(ctx, runID, "run_finished", map[string]any{
		"generated": report.Generated, "skipped": report.Skipped,
		"deferred": report.Deferred, "failed": report.Failed, "pages": report.Pages,
	})
	return report, nil
}
