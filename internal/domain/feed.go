package domain

import "time"

// SourcePriority is the operator-assigned importance tier of a feed.
type SourcePriority string

const (
	PriorityP0 SourcePriority = "P0"
	PriorityP1 SourcePriority = "P1"
	PriorityP2 SourcePriority = "P2"
)

// CollectionStatus records the outcome of the last collection cycle.
type CollectionStatus string

const (
	CollectionSuccess CollectionStatus = "success"
	CollectionFailed  CollectionStatus = "failed"
)

// Feed is a configured external intelligence source.
type Feed struct {
	ID         string
	Name       string
	SourceType string
	URL        string
	Priority   SourcePriority
	Frequency  time.Duration
	Enabled    bool

	// Status fields mutated only by the orchestrator.
	LastStatus      CollectionStatus
	LastCollectedAt time.Time
	LastError       string
	LastRecordCount int
}

// Due reports whether the feed should be collected during a scheduled run.
func (f Feed) Due(now time.Time) bool {
	if !f.Enabled {
		return false
	}
	if f.LastCollectedAt.IsZero() {
		return true
	}
	return now.Sub(f.LastCollectedAt) >= f.Frequency
}

// CandidateRecord is the raw per-cycle output of a collector. It is never
// persisted beyond the cycle that produced it.
type CandidateRecord struct {
	Title       string
	Description string
	CVEHint     string
	CVSSScore   float64
	CVSSVector  string
	Severity    string
	SourceURL   string
	PublishedAt time.Time
}
