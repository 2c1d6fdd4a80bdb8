package pir

import (
	"log/slog"
	"strings"

	"ThreatScanner/internal/domain"
)

// ThreatAttributes is the slice of a threat the matcher evaluates rules
// against.
type ThreatAttributes struct {
	CVEID          string
	Products       []domain.Product
	TTPs           []string
	Classification string
}

// AttributesFromThreat projects a threat aggregate into matcher input.
func AttributesFromThreat(t domain.Threat) ThreatAttributes {
	return ThreatAttributes{
		CVEID:          t.CVEID,
		Products:       t.Extracted.Products,
		TTPs:           t.Extracted.TTPs,
		Classification: t.Severity,
	}
}

// Matcher evaluates enabled PIR rules against threat attributes.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher constructs the matcher; the logger may be nil.
func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// FindMatching returns every enabled PIR whose condition matches. A rule with
// a condition the matcher cannot evaluate is skipped and logged, never fatal.
func (m *Matcher) FindMatching(attrs ThreatAttributes, pirs []domain.PIR) []domain.PIR {
	var matched []domain.PIR
	for _, rule := range pirs {
		if !rule.Enabled {
			continue
		}
		if strings.TrimSpace(rule.ConditionValue) == "" {
			m.skip(rule, "empty condition value")
			continue
		}

		switch rule.ConditionType {
		case domain.ConditionProductName:
			if matchProductName(attrs.Products, rule.ConditionValue) {
				matched = append(matched, rule)
			}
		case domain.ConditionCVEPrefix:
			if strings.HasPrefix(attrs.CVEID, rule.ConditionValue) {
				matched = append(matched, rule)
			}
		case domain.ConditionThreatType:
			if matchThreatType(attrs, rule.ConditionValue) {
				matched = append(matched, rule)
			}
		default:
			m.skip(rule, "unknown condition type")
		}
	}
	return matched
}

// HighestPriority returns the most important rule of the set, or false when
// the set is empty.
func HighestPriority(pirs []domain.PIR) (domain.PIR, bool) {
	if len(pirs) == 0 {
		return domain.PIR{}, false
	}
	best := pirs[0]
	for _, rule := range pirs[1:] {
		if rule.Priority.Rank() > best.Priority.Rank() {
			best = rule
		}
	}
	return best, true
}

func matchProductName(products []domain.Product, value string) bool {
	needle := strings.ToLower(value)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return true
		}
	}
	return false
}

func matchThreatType(attrs ThreatAttributes, value string) bool {
	for _, ttp := range attrs.TTPs {
		if strings.Contains(ttp, value) {
			return true
		}
	}
	if attrs.Classification == "" {
		return false
	}
	return strings.Contains(strings.ToLower(attrs.Classification), strings.ToLower(value))
}

func (m *Matcher) skip(rule domain.PIR, reason string) {
	if m.logger != nil {
		m.logger.Warn("skipping pir rule", "pir", rule.Name, "reason", reason)
	}
}
