package domain

import (
	"fmt"
	"time"
)

// ThreatStatus enumerates the threat lifecycle. Transitions move forward only.
type ThreatStatus string

const (
	StatusNew       ThreatStatus = "new"
	StatusAnalyzing ThreatStatus = "analyzing"
	StatusProcessed ThreatStatus = "processed"
	StatusClosed    ThreatStatus = "closed"
)

var statusOrder = map[ThreatStatus]int{
	StatusNew:       0,
	StatusAnalyzing: 1,
	StatusProcessed: 2,
	StatusClosed:    3,
}

// Threat is the aggregate persisted per sighted advisory record.
type Threat struct {
	ID          string
	FeedID      string
	Title       string
	Description string
	CVEID       string
	CVSSScore   float64
	CVSSVector  string
	Severity    string
	Status      ThreatStatus
	Extracted   ExtractedInfo
	SourceURL   string
	PublishedAt time.Time
	CollectedAt time.Time
}

// Identity is the idempotent upsert key within a feed: the CVE id when one
// exists, otherwise the title.
func (t Threat) Identity() string {
	if t.CVEID != "" {
		return t.CVEID
	}
	return t.Title
}

// AdvanceStatus moves the lifecycle forward. Backward transitions are rejected.
func (t *Threat) AdvanceStatus(next ThreatStatus) error {
	to, ok := statusOrder[next]
	if !ok {
		return fmt.Errorf("unknown threat status %q", next)
	}
	if to < statusOrder[t.Status] {
		return fmt.Errorf("threat status cannot move from %s back to %s", t.Status, next)
	}
	t.Status = next
	return nil
}
