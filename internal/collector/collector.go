package collector

import (
	"context"
	"fmt"

	"ThreatScanner/internal/domain"
)

// Collector captures a single source-type strategy (HTML advisory page, KEV
// catalog, vendor API, etc.). Implementations fetch the raw candidate records
// of one collection cycle.
type Collector interface {
	SourceType() string
	Collect(ctx context.Context, feed domain.Feed) ([]domain.CandidateRecord, error)
}

// Registry keeps a mapping from source types to their collector strategies.
type Registry struct {
	collectors map[string]Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[string]Collector{}}
}

// Register adds or replaces a collector implementation.
func (r *Registry) Register(c Collector) {
	if r.collectors == nil {
		r.collectors = map[string]Collector{}
	}
	r.collectors[c.SourceType()] = c
}

// Resolve returns the collector for a source type or an error if it is absent.
func (r *Registry) Resolve(sourceType string) (Collector, error) {
	if c, ok := r.collectors[sourceType]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector for source type %s is not registered", sourceType)
}
