package pir

import (
	"testing"

	"ThreatScanner/internal/domain"
)

func rule(name string, ct domain.PIRConditionType, value string, priority domain.PIRPriority, enabled bool) domain.PIR {
	return domain.PIR{
		ID:             name,
		Name:           name,
		Priority:       priority,
		ConditionType:  ct,
		ConditionValue: value,
		Enabled:        enabled,
	}
}

func TestDisabledPIRsNeverMatch(t *testing.T) {
	t.Parallel()

	attrs := ThreatAttributes{
		Products: []domain.Product{{Name: "VMware"}},
	}
	rules := []domain.PIR{
		rule("vmware-disabled", domain.ConditionProductName, "vmware", domain.PIRHigh, false),
	}

	if got := NewMatcher(nil).FindMatching(attrs, rules); len(got) != 0 {
		t.Fatalf("disabled rule must never match, got %v", got)
	}
}

func TestMatchProductNameCaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()

	attrs := ThreatAttributes{
		Products: []domain.Product{{Name: "Windows Server"}},
	}
	rules := []domain.PIR{
		rule("windows", domain.ConditionProductName, "WINDOWS", domain.PIRMedium, true),
		rule("linux", domain.ConditionProductName, "linux", domain.PIRMedium, true),
	}

	got := NewMatcher(nil).FindMatching(attrs, rules)
	if len(got) != 1 || got[0].Name != "windows" {
		t.Fatalf("expected windows rule only, got %v", got)
	}
}

func TestMatchCVEPrefixCaseSensitive(t *testing.T) {
	t.Parallel()

	attrs := ThreatAttributes{CVEID: "CVE-2024-12345"}
	rules := []domain.PIR{
		rule("y2024", domain.ConditionCVEPrefix, "CVE-2024-", domain.PIRHigh, true),
		rule("lowercase", domain.ConditionCVEPrefix, "cve-2024-", domain.PIRHigh, true),
		rule("y2023", domain.ConditionCVEPrefix, "CVE-2023-", domain.PIRHigh, true),
	}

	got := NewMatcher(nil).FindMatching(attrs, rules)
	if len(got) != 1 || got[0].Name != "y2024" {
		t.Fatalf("expected exact-case prefix match only, got %v", got)
	}
}

func TestMatchThreatType(t *testing.T) {
	t.Parallel()

	attrs := ThreatAttributes{
		TTPs:           []string{"T1566.001"},
		Classification: "high",
	}
	rules := []domain.PIR{
		rule("phish", domain.ConditionThreatType, "T1566", domain.PIRLow, true),
		rule("sev", domain.ConditionThreatType, "HIGH", domain.PIRLow, true),
		rule("other", domain.ConditionThreatType, "T1486", domain.PIRLow, true),
	}

	got := NewMatcher(nil).FindMatching(attrs, rules)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
}

func TestMalformedConditionSkippedNotFatal(t *testing.T) {
	t.Parallel()

	attrs := ThreatAttributes{CVEID: "CVE-2024-1"}
	rules := []domain.PIR{
		rule("blank", domain.ConditionCVEPrefix, "   ", domain.PIRHigh, true),
		rule("bogus-type", "regex_match", "x", domain.PIRHigh, true),
		rule("valid", domain.ConditionCVEPrefix, "CVE-2024-", domain.PIRHigh, true),
	}

	got := NewMatcher(nil).FindMatching(attrs, rules)
	if len(got) != 1 || got[0].Name != "valid" {
		t.Fatalf("malformed rules must be skipped, got %v", got)
	}
}

func TestHighestPriority(t *testing.T) {
	t.Parallel()

	if _, ok := HighestPriority(nil); ok {
		t.Fatal("empty set has no highest priority")
	}

	best, ok := HighestPriority([]domain.PIR{
		rule("low", domain.ConditionProductName, "a", domain.PIRLow, true),
		rule("high", domain.ConditionProductName, "b", domain.PIRHigh, true),
		rule("medium", domain.ConditionProductName, "c", domain.PIRMedium, true),
	})
	if !ok || best.Name != "high" {
		t.Fatalf("expected high rule, got %v", best)
	}
}
