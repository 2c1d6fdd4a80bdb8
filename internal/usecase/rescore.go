package usecase

import (
	"context"
	"fmt"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/ports"
	"ThreatScanner/internal/risk"
)

// Rescorer recomputes a threat's risk assessment whenever its inputs change:
// the asset-association set, the PIR set, or the CVSS data.
type Rescorer struct {
	associations ports.AssociationRepository
	pirs         ports.PIRRepository
	engine       *risk.Engine
}

// NewRescorer constructs the rescoring use case.
func NewRescorer(associations ports.AssociationRepository, pirs ports.PIRRepository, engine *risk.Engine) *Rescorer {
	return &Rescorer{associations: associations, pirs: pirs, engine: engine}
}

// Rescore loads the current association and rule sets and runs one risk
// calculation, which also appends its immutable history row.
func (r *Rescorer) Rescore(ctx context.Context, threat domain.Threat, feedName string) (domain.RiskAssessment, error) {
	assets, err := r.associations.ListAssets(ctx, threat.ID)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("list associated assets: %w", err)
	}

	rules, err := r.pirs.ListEnabled(ctx)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("list enabled pirs: %w", err)
	}

	return r.engine.Calculate(ctx, threat, assets, rules, feedName)
}
