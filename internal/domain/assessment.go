package domain

import "time"

// RiskLevel is a pure function of the final score via fixed thresholds.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// RiskAssessment is the current multi-factor score for a threat.
type RiskAssessment struct {
	ID            string
	ThreatID      string
	AssociationID string

	BaseScore             float64
	AssetImportanceWeight float64
	AssetCountWeight      float64
	PIRMatchWeight        float64
	KnownExploitedWeight  float64

	FinalScore float64
	Level      RiskLevel

	// Detail keeps the human-readable factor breakdown, including the raw
	// pre-clamp score when clamping applied.
	Detail string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryEntry is one append-only snapshot of a risk calculation. Rows are
// never mutated or deleted once written.
type HistoryEntry struct {
	ID           string
	AssessmentID string
	ThreatID     string
	FinalScore   float64
	Level        RiskLevel
	Detail       string
	CalculatedAt time.Time
}
