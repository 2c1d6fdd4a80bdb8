package risk

import (
	"context"
	"math"
	"sync"
	"testing"

	"ThreatScanner/internal/domain"
)

type historyStub struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (h *historyStub) Append(ctx context.Context, entry domain.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

type assessmentStub struct {
	mu    sync.Mutex
	saved []domain.RiskAssessment
}

func (s *assessmentStub) Save(ctx context.Context, a domain.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, a)
	return nil
}

func TestLevelFromScoreThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{8.0, domain.RiskCritical},
		{7.9, domain.RiskHigh},
		{6.0, domain.RiskHigh},
		{4.0, domain.RiskMedium},
		{3.9, domain.RiskLow},
		{0.0, domain.RiskLow},
		{10.0, domain.RiskCritical},
	}
	for _, tc := range cases {
		got, err := LevelFromScore(tc.score)
		if err != nil {
			t.Fatalf("LevelFromScore(%v) error: %v", tc.score, err)
		}
		if got != tc.want {
			t.Fatalf("LevelFromScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestLevelFromScoreDomainError(t *testing.T) {
	t.Parallel()

	if _, err := LevelFromScore(-1.0); err == nil {
		t.Fatal("expected domain error for -1.0")
	}
	if _, err := LevelFromScore(11.0); err == nil {
		t.Fatal("expected domain error for 11.0")
	}
}

func TestScoreFactors(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineDeps{KEVFeedName: "cisa-kev"})
	threat := domain.Threat{ID: "t1", CVSSScore: 5.0}

	// No assets: neutral importance 1.0, zero count weight.
	comps := engine.Score(threat, nil, nil, "other-feed")
	if comps.AssetImportanceWeight != 1.0 {
		t.Fatalf("empty association set must yield weight 1.0, got %v", comps.AssetImportanceWeight)
	}
	if comps.AssetCountWeight != 0.0 {
		t.Fatalf("zero assets must yield 0.0 count weight, got %v", comps.AssetCountWeight)
	}
	if comps.FinalScore != 5.0 {
		t.Fatalf("expected 5.0, got %v", comps.FinalScore)
	}

	// Known-exploited catalog bonus.
	kev := engine.Score(threat, nil, nil, "cisa-kev")
	if kev.KnownExploitedWeight != 0.5 {
		t.Fatalf("expected kev bonus 0.5, got %v", kev.KnownExploitedWeight)
	}
	if kev.FinalScore != 5.5 {
		t.Fatalf("expected 5.5, got %v", kev.FinalScore)
	}
}

func TestScoreAssetWeights(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineDeps{})
	threat := domain.Threat{ID: "t1", CVSSScore: 4.0}
	assets := []domain.Asset{
		{ID: "a1", DataSensitivity: domain.TierHigh, BusinessCriticality: domain.TierHigh},
		{ID: "a2", DataSensitivity: domain.TierLow, BusinessCriticality: domain.TierLow},
	}

	comps := engine.Score(threat, assets, nil, "")

	// (1.5*1.5 + 0.5*0.5) / 2 = 1.25
	if comps.AssetImportanceWeight != 1.25 {
		t.Fatalf("expected importance 1.25, got %v", comps.AssetImportanceWeight)
	}
	// 2/10 * 0.1 = 0.02
	if math.Abs(comps.AssetCountWeight-0.02) > 1e-9 {
		t.Fatalf("expected count weight 0.02, got %v", comps.AssetCountWeight)
	}
}

func TestScorePIRWeightUsesHighestPriority(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineDeps{})
	threat := domain.Threat{
		ID:    "t1",
		CVEID: "CVE-2024-1111",
		Extracted: domain.ExtractedInfo{
			Products: []domain.Product{{Name: "VMware"}},
		},
	}
	pirs := []domain.PIR{
		{ID: "p1", Priority: domain.PIRLow, ConditionType: domain.ConditionProductName, ConditionValue: "vmware", Enabled: true},
		{ID: "p2", Priority: domain.PIRHigh, ConditionType: domain.ConditionCVEPrefix, ConditionValue: "CVE-2024-", Enabled: true},
		{ID: "p3", Priority: domain.PIRHigh, ConditionType: domain.ConditionCVEPrefix, ConditionValue: "CVE-2024-", Enabled: false},
	}

	comps := engine.Score(threat, nil, pirs, "")
	if comps.PIRMatchWeight != 0.3 {
		t.Fatalf("expected high-priority weight 0.3, got %v", comps.PIRMatchWeight)
	}
}

func TestScoreClampsButKeepsRaw(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineDeps{KEVFeedName: "kev"})
	threat := domain.Threat{ID: "t1", CVSSScore: 9.8}
	assets := []domain.Asset{
		{DataSensitivity: domain.TierHigh, BusinessCriticality: domain.TierHigh},
	}

	comps := engine.Score(threat, assets, nil, "kev")

	if comps.FinalScore != 10.0 {
		t.Fatalf("expected clamped 10.0, got %v", comps.FinalScore)
	}
	if comps.RawScore <= 10.0 {
		t.Fatalf("raw score must stay unclamped, got %v", comps.RawScore)
	}
}

func TestCalculateDeterministicAndAppendsHistory(t *testing.T) {
	t.Parallel()

	history := &historyStub{}
	assessments := &assessmentStub{}
	engine := NewEngine(EngineDeps{Assessments: assessments, History: history})

	threat := domain.Threat{ID: "t1", CVSSScore: 6.5}
	assets := []domain.Asset{
		{DataSensitivity: domain.TierMedium, BusinessCriticality: domain.TierMedium},
	}

	first, err := engine.Calculate(context.Background(), threat, assets, nil, "feed-a")
	if err != nil {
		t.Fatalf("first calculate: %v", err)
	}
	second, err := engine.Calculate(context.Background(), threat, assets, nil, "feed-a")
	if err != nil {
		t.Fatalf("second calculate: %v", err)
	}

	if first.FinalScore != second.FinalScore || first.Level != second.Level {
		t.Fatalf("identical inputs must score identically: %v vs %v", first, second)
	}
	if len(history.entries) != 2 {
		t.Fatalf("every calculation appends one history row, got %d", len(history.entries))
	}
	if history.entries[0].ID == history.entries[1].ID {
		t.Fatal("history rows must be distinct")
	}
}

func TestBaseScoreFromVectorFallback(t *testing.T) {
	t.Parallel()

	engine := NewEngine(EngineDeps{})

	withVector := domain.Threat{ID: "t1", CVSSVector: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"}
	comps := engine.Score(withVector, nil, nil, "")
	if comps.BaseScore != 9.8 {
		t.Fatalf("expected derived base 9.8, got %v", comps.BaseScore)
	}

	// Unresolvable vector degrades to zero, not an error.
	broken := domain.Threat{ID: "t2", CVSSVector: "garbage"}
	comps = engine.Score(broken, nil, nil, "")
	if comps.BaseScore != 0.0 {
		t.Fatalf("expected zero base for unresolvable vector, got %v", comps.BaseScore)
	}
}
