package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ThreatScanner/internal/collector"
	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/extraction"
	"ThreatScanner/internal/faults"
	"ThreatScanner/internal/metrics"
	"ThreatScanner/internal/ports"
)

const defaultMaxConcurrency = 3

// Result is the structured outcome of one per-feed collection cycle.
type Result struct {
	FeedID           string
	FeedName         string
	Success          bool
	ThreatsCollected int
	Errors           []string
}

// OrchestratorDeps wires all driven adapters into the collection workflow.
type OrchestratorDeps struct {
	Feeds          ports.FeedRepository
	Threats        ports.ThreatRepository
	Registry       *collector.Registry
	Engine         *extraction.Engine
	MaxConcurrency int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Orchestrator drives bounded-concurrency collection cycles across feeds.
type Orchestrator struct {
	feeds          ports.FeedRepository
	threats        ports.ThreatRepository
	registry       *collector.Registry
	engine         *extraction.Engine
	maxConcurrency int
	logger         *slog.Logger
	now            func() time.Time
}

// NewOrchestrator constructs the orchestration component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	maxConcurrency := deps.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		feeds:          deps.Feeds,
		threats:        deps.Threats,
		registry:       deps.Registry,
		engine:         deps.Engine,
		maxConcurrency: maxConcurrency,
		logger:         deps.Logger,
		now:            now,
	}
}

// CollectFromFeed runs one collection cycle for a single feed. Failures are
// captured into the result; they never propagate as errors past the per-feed
// boundary.
func (o *Orchestrator) CollectFromFeed(ctx context.Context, feedID string, useAI bool) Result {
	feed, err := o.feeds.Get(ctx, feedID)
	if err != nil {
		return Result{FeedID: feedID, Errors: []string{fmt.Sprintf("load feed: %v", err)}}
	}
	return o.collect(ctx, feed, useAI)
}

// CollectAll runs collection cycles for the given feeds under a bounded
// worker pool. One feed's failure never cancels or delays siblings; an
// exceeded overall deadline leaves already-completed results intact.
func (o *Orchestrator) CollectAll(ctx context.Context, feedIDs []string, maxConcurrency int) []Result {
	if maxConcurrency <= 0 {
		maxConcurrency = o.maxConcurrency
	}

	results := make([]Result, len(feedIDs))
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, id := range feedIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result{FeedID: id, Errors: []string{ctx.Err().Error()}}
				return
			}

			results[i] = o.collectIsolated(ctx, id, true)
		}(i, id)
	}

	wg.Wait()
	return results
}

// collectIsolated shields siblings from a misbehaving collector plugin.
func (o *Orchestrator) collectIsolated(ctx context.Context, feedID string, useAI bool) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{FeedID: feedID, Errors: []string{fmt.Sprintf("collector panic: %v", r)}}
		}
	}()
	return o.CollectFromFeed(ctx, feedID, useAI)
}

func (o *Orchestrator) collect(ctx context.Context, feed domain.Feed, useAI bool) Result {
	result := Result{FeedID: feed.ID, FeedName: feed.Name}

	strategy, err := o.registry.Resolve(feed.SourceType)
	if err != nil {
		return o.finish(ctx, feed, result, err)
	}

	records, err := strategy.Collect(ctx, feed)
	if err != nil {
		faults.LogError(o.logger, err, map[string]any{"feed": feed.Name, "stage": "collect"})
		return o.finish(ctx, feed, result, err)
	}

	// Records within a feed are processed sequentially so idempotent
	// upserts stay ordered.
	for _, record := range records {
		if err := o.processRecord(ctx, feed, record, useAI); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.ThreatsCollected++
	}

	metrics.ThreatsCollected.WithLabelValues(feed.Name).Add(float64(result.ThreatsCollected))
	return o.finish(ctx, feed, result, nil)
}

func (o *Orchestrator) processRecord(ctx context.Context, feed domain.Feed, record domain.CandidateRecord, useAI bool) error {
	text := record.Title
	if record.Description != "" {
		text += "\n" + record.Description
	}

	info := o.engine.Extract(ctx, text, !useAI)

	cveID := strings.ToUpper(strings.TrimSpace(record.CVEHint))
	if cveID == "" && len(info.CVEs) > 0 {
		cveID = info.CVEs[0]
	}

	threat := domain.Threat{
		FeedID:      feed.ID,
		Title:       record.Title,
		Description: record.Description,
		CVEID:       cveID,
		CVSSScore:   record.CVSSScore,
		CVSSVector:  record.CVSSVector,
		Severity:    record.Severity,
		Status:      domain.StatusNew,
		Extracted:   info,
		SourceURL:   record.SourceURL,
		PublishedAt: record.PublishedAt,
		CollectedAt: o.now().UTC(),
	}

	existing, found, err := o.threats.Find(ctx, feed.ID, threat.Identity())
	if err != nil {
		return fmt.Errorf("find threat %s: %w", threat.Identity(), err)
	}
	if found {
		// Re-collection of the same logical record: keep identity and
		// lifecycle, refresh the extracted attributes.
		threat.ID = existing.ID
		threat.Status = existing.Status
	} else {
		threat.ID = uuid.NewString()
	}

	if err := o.threats.Upsert(ctx, threat); err != nil {
		return fmt.Errorf("upsert threat %s: %w", threat.Identity(), err)
	}
	return nil
}

// finish updates the feed's status fields and seals the result. A status
// persistence failure is recorded but does not flip an otherwise successful
// cycle.
func (o *Orchestrator) finish(ctx context.Context, feed domain.Feed, result Result, cycleErr error) Result {
	now := o.now().UTC()
	feed.LastCollectedAt = now
	feed.LastRecordCount = result.ThreatsCollected

	if cycleErr != nil {
		result.Errors = append(result.Errors, cycleErr.Error())
		feed.LastStatus = domain.CollectionFailed
		feed.LastError = cycleErr.Error()
	} else {
		result.Success = true
		feed.LastStatus = domain.CollectionSuccess
		feed.LastError = ""
	}

	metrics.CollectionsTotal.WithLabelValues(feed.Name, string(feed.LastStatus)).Inc()

	if err := o.feeds.Save(ctx, feed); err != nil {
		faults.LogError(o.logger, err, map[string]any{"feed": feed.Name, "stage": "save_status"})
		result.Errors = append(result.Errors, fmt.Sprintf("save feed status: %v", err))
	}

	if o.logger != nil {
		o.logger.Info("collection cycle finished",
			"feed", feed.Name,
			"status", string(feed.LastStatus),
			"threats", result.ThreatsCollected,
			"errors", len(result.Errors))
	}
	return result
}
