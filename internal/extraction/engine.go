package extraction

import (
	"context"
	"log/slog"
	"time"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/faults"
	"ThreatScanner/internal/metrics"
	"ThreatScanner/internal/ports"
)

// Confidence applied when the rule-based extractor runs as a degraded
// fallback after a remote failure. Intentionally a simpler policy than the
// content-weighted model used for primary rule-based extraction.
const fallbackConfidence = 0.5

const defaultRemoteTimeout = 30 * time.Second

// EngineDeps wires the engine's collaborators at construction.
type EngineDeps struct {
	Remote        ports.RemoteExtractor
	Rules         *RuleExtractor
	RemoteTimeout time.Duration
	// FallbackEnabled selects the degraded path on remote failure. When
	// false a failed remote call yields an empty result with provenance
	// none and confidence zero.
	FallbackEnabled bool
	Logger          *slog.Logger
}

// Engine is the two-tier extraction strategy: remote AI-backed service first,
// deterministic rule-based fallback second.
type Engine struct {
	remote          ports.RemoteExtractor
	rules           *RuleExtractor
	remoteTimeout   time.Duration
	fallbackEnabled bool
	logger          *slog.Logger
}

// NewEngine constructs the engine; a nil rule extractor is replaced with a
// default one.
func NewEngine(deps EngineDeps) *Engine {
	rules := deps.Rules
	if rules == nil {
		rules = NewRuleExtractor()
	}
	timeout := deps.RemoteTimeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Engine{
		remote:          deps.Remote,
		rules:           rules,
		remoteTimeout:   timeout,
		fallbackEnabled: deps.FallbackEnabled,
		logger:          deps.Logger,
	}
}

// Extract produces structured attributes for the text. Provenance tags which
// strategy produced the result so callers branch on it rather than on errors.
//
// With forceFallback the remote extractor receives zero invocations and the
// rule-based extractor runs as the primary strategy with its content-weighted
// confidence. A remote failure with fallback enabled degrades to rules with a
// fixed 0.5 confidence; with fallback disabled it yields an empty result with
// provenance none.
func (e *Engine) Extract(ctx context.Context, text string, forceFallback bool) domain.ExtractedInfo {
	if forceFallback || e.remote == nil {
		return e.rules.Extract(text)
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, e.remoteTimeout)
	defer cancel()

	info, err := e.remote.Extract(callCtx, text)
	metrics.ExtractionDuration.WithLabelValues("remote").Observe(time.Since(start).Seconds())
	if err == nil {
		info.Provenance = domain.ProvenanceAI
		info.Confidence = clampUnit(info.Confidence)
		return info
	}

	faults.LogError(e.logger, err, map[string]any{"stage": "remote_extract"})
	metrics.ExtractionFallbacks.WithLabelValues(string(faults.Classify(err))).Inc()

	if !e.fallbackEnabled {
		return domain.ExtractedInfo{Provenance: domain.ProvenanceNone, Confidence: 0}
	}

	fallback := e.rules.ExtractWithoutConfidence(text)
	fallback.Confidence = fallbackConfidence
	return fallback
}

// HealthCheck proxies the remote extractor's liveness without raising. A nil
// remote reports false.
func (e *Engine) HealthCheck(ctx context.Context) bool {
	if e.remote == nil {
		return false
	}
	return e.remote.Healthy(ctx)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
