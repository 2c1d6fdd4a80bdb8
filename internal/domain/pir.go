package domain

// PIRPriority orders prioritized-intelligence-requirement rules.
type PIRPriority string

const (
	PIRHigh   PIRPriority = "high"
	PIRMedium PIRPriority = "medium"
	PIRLow    PIRPriority = "low"
)

// Rank returns a comparable ordering; higher means more important.
func (p PIRPriority) Rank() int {
	switch p {
	case PIRHigh:
		return 3
	case PIRMedium:
		return 2
	case PIRLow:
		return 1
	}
	return 0
}

// PIRConditionType selects the matching rule applied to a threat.
type PIRConditionType string

const (
	ConditionProductName PIRConditionType = "product_name"
	ConditionCVEPrefix   PIRConditionType = "cve_prefix"
	ConditionThreatType  PIRConditionType = "threat_type"
)

// PIR is an operator-defined rule flagging threats of special interest.
// Disabled rules never participate in matching.
type PIR struct {
	ID             string
	Name           string
	Priority       PIRPriority
	ConditionType  PIRConditionType
	ConditionValue string
	Enabled        bool
}
