package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/metrics"
	"ThreatScanner/internal/pir"
	"ThreatScanner/internal/ports"
)

// Weight applied to the highest-priority matching PIR rule.
var pirWeights = map[domain.PIRPriority]float64{
	domain.PIRHigh:   0.3,
	domain.PIRMedium: 0.2,
	domain.PIRLow:    0.1,
}

// Bonus applied when the threat originates from the designated known-
// exploited-vulnerabilities catalog.
const knownExploitedBonus = 0.5

// EngineDeps wires the engine's collaborators at construction.
type EngineDeps struct {
	Assessments ports.RiskAssessmentRepository
	History     ports.RiskAssessmentHistoryRepository
	Matcher     *pir.Matcher
	// KEVFeedName designates the known-exploited catalog feed.
	KEVFeedName string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Engine combines a CVSS base score with four independent weight factors
// into a bounded score and qualitative level, recording every calculation in
// the immutable history.
type Engine struct {
	assessments ports.RiskAssessmentRepository
	history     ports.RiskAssessmentHistoryRepository
	matcher     *pir.Matcher
	kevFeedName string
	logger      *slog.Logger
	now         func() time.Time
}

// NewEngine constructs the scoring engine.
func NewEngine(deps EngineDeps) *Engine {
	matcher := deps.Matcher
	if matcher == nil {
		matcher = pir.NewMatcher(deps.Logger)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		assessments: deps.Assessments,
		history:     deps.History,
		matcher:     matcher,
		kevFeedName: deps.KEVFeedName,
		logger:      deps.Logger,
		now:         now,
	}
}

// Components is the factor breakdown of one calculation. RawScore is the
// unclamped combination; FinalScore is clamped into [0,10]. Both are kept
// because some persistence paths record the raw value.
type Components struct {
	BaseScore             float64
	AssetImportanceWeight float64
	AssetCountWeight      float64
	PIRMatchWeight        float64
	KnownExploitedWeight  float64
	RawScore              float64
	FinalScore            float64
}

// Calculate computes the multi-factor assessment for a threat, persists it,
// and appends one immutable history row. Unresolvable inputs degrade to
// neutral defaults instead of raising.
func (e *Engine) Calculate(ctx context.Context, threat domain.Threat, assets []domain.Asset, pirs []domain.PIR, feedName string) (domain.RiskAssessment, error) {
	comps := e.Score(threat, assets, pirs, feedName)

	level, err := LevelFromScore(comps.FinalScore)
	if err != nil {
		// Cannot happen after clamping; fail loudly if it does.
		return domain.RiskAssessment{}, fmt.Errorf("classify score: %w", err)
	}

	now := e.now().UTC()
	assessment := domain.RiskAssessment{
		ID:                    uuid.NewString(),
		ThreatID:              threat.ID,
		BaseScore:             comps.BaseScore,
		AssetImportanceWeight: comps.AssetImportanceWeight,
		AssetCountWeight:      comps.AssetCountWeight,
		PIRMatchWeight:        comps.PIRMatchWeight,
		KnownExploitedWeight:  comps.KnownExploitedWeight,
		FinalScore:            comps.FinalScore,
		Level:                 level,
		Detail:                comps.Detail(),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if e.assessments != nil {
		if err := e.assessments.Save(ctx, assessment); err != nil {
			return domain.RiskAssessment{}, fmt.Errorf("save assessment: %w", err)
		}
	}

	if e.history != nil {
		entry := domain.HistoryEntry{
			ID:           uuid.NewString(),
			AssessmentID: assessment.ID,
			ThreatID:     threat.ID,
			FinalScore:   assessment.FinalScore,
			Level:        assessment.Level,
			Detail:       assessment.Detail,
			CalculatedAt: now,
		}
		if err := e.history.Append(ctx, entry); err != nil {
			return domain.RiskAssessment{}, fmt.Errorf("append history: %w", err)
		}
	}

	metrics.RiskCalculations.Inc()
	return assessment, nil
}

// Score derives the factor breakdown without side effects. Deterministic for
// identical inputs.
func (e *Engine) Score(threat domain.Threat, assets []domain.Asset, pirs []domain.PIR, feedName string) Components {
	comps := Components{
		BaseScore:             e.baseScore(threat),
		AssetImportanceWeight: assetImportanceWeight(assets),
		AssetCountWeight:      float64(len(assets)) / 10.0 * 0.1,
		PIRMatchWeight:        e.pirMatchWeight(threat, pirs),
	}
	if e.kevFeedName != "" && feedName == e.kevFeedName {
		comps.KnownExploitedWeight = knownExploitedBonus
	}

	comps.RawScore = comps.BaseScore*comps.AssetImportanceWeight +
		comps.AssetCountWeight + comps.PIRMatchWeight + comps.KnownExploitedWeight
	comps.FinalScore = clampScore(comps.RawScore)
	return comps
}

func (e *Engine) baseScore(threat domain.Threat) float64 {
	if threat.CVSSScore > 0 {
		return threat.CVSSScore
	}
	if score, ok := ScoreFromVector(threat.CVSSVector); ok {
		return score
	}
	if threat.CVSSVector != "" && e.logger != nil {
		e.logger.Warn("unresolvable cvss vector, base score defaults to zero",
			"threat", threat.ID, "vector", threat.CVSSVector)
	}
	return 0.0
}

func (e *Engine) pirMatchWeight(threat domain.Threat, pirs []domain.PIR) float64 {
	matched := e.matcher.FindMatching(pir.AttributesFromThreat(threat), pirs)
	best, ok := pir.HighestPriority(matched)
	if !ok {
		return 0.0
	}
	return pirWeights[best.Priority]
}

// assetImportanceWeight averages sensitivity*criticality across associated
// assets; an empty association set yields the neutral weight 1.0.
func assetImportanceWeight(assets []domain.Asset) float64 {
	if len(assets) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, a := range assets {
		sum += a.DataSensitivity.Weight() * a.BusinessCriticality.Weight()
	}
	return sum / float64(len(assets))
}

// Detail renders the factor breakdown, including the raw pre-clamp score when
// clamping changed the result.
func (c Components) Detail() string {
	detail := fmt.Sprintf(
		"base=%.2f importance=%.2f count=%.2f pir=%.2f kev=%.2f final=%.2f",
		c.BaseScore, c.AssetImportanceWeight, c.AssetCountWeight,
		c.PIRMatchWeight, c.KnownExploitedWeight, c.FinalScore,
	)
	if c.RawScore != c.FinalScore {
		detail += fmt.Sprintf(" raw=%.2f", c.RawScore)
	}
	return detail
}

// LevelFromScore maps a score in [0,10] to its qualitative level. A value
// outside the domain is a programming error and fails fast, distinct from
// the engine's own clamping.
func LevelFromScore(score float64) (domain.RiskLevel, error) {
	if score < 0 || score > 10 {
		return "", fmt.Errorf("risk score %.2f outside [0,10]", score)
	}
	switch {
	case score >= 8.0:
		return domain.RiskCritical, nil
	case score >= 6.0:
		return domain.RiskHigh, nil
	case score >= 4.0:
		return domain.RiskMedium, nil
	default:
		return domain.RiskLow, nil
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
