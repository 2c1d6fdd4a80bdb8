package ports

import (
	"context"
	"time"

	"ThreatScanner/internal/domain"
)

// RemoteExtractor is the AI-backed extraction service tried before the local
// rule-based fallback.
type RemoteExtractor interface {
	Extract(ctx context.Context, text string) (domain.ExtractedInfo, error)
	Healthy(ctx context.Context) bool
}

// FeedRepository loads feed configuration and persists orchestrator status
// updates.
type FeedRepository interface {
	Get(ctx context.Context, id string) (domain.Feed, error)
	List(ctx context.Context) ([]domain.Feed, error)
	Save(ctx context.Context, feed domain.Feed) error
}

// ThreatRepository persists threats with an idempotent upsert keyed by
// feed + identity (CVE id, or title when no CVE exists).
type ThreatRepository interface {
	Upsert(ctx context.Context, threat domain.Threat) error
	Find(ctx context.Context, feedID, identity string) (domain.Threat, bool, error)
}

// AssociationRepository exposes the threat/asset association set maintained
// by the inventory subsystem.
type AssociationRepository interface {
	CountFor(ctx context.Context, threatID string) (int, error)
	ListAssets(ctx context.Context, threatID string) ([]domain.Asset, error)
}

// PIRRepository lists prioritized-intelligence-requirement rules.
type PIRRepository interface {
	ListEnabled(ctx context.Context) ([]domain.PIR, error)
}

// RiskAssessmentRepository stores the current assessment per threat.
type RiskAssessmentRepository interface {
	Save(ctx context.Context, assessment domain.RiskAssessment) error
}

// RiskAssessmentHistoryRepository appends immutable calculation snapshots.
// Implementations must never mutate or delete prior rows.
type RiskAssessmentHistoryRepository interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
}

// Scheduler controls when collection cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
