package domain

// Tier is the three-level scale used for asset sensitivity and criticality.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Weight maps a tier to its scoring multiplier.
func (t Tier) Weight() float64 {
	switch t {
	case TierHigh:
		return 1.5
	case TierLow:
		return 0.5
	default:
		return 1.0
	}
}

// Asset is an inventory record associated with threats for risk weighting.
type Asset struct {
	ID                  string
	Name                string
	DataSensitivity     Tier
	BusinessCriticality Tier
}
