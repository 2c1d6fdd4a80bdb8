package extraction

import (
	"regexp"
	"sort"
	"strings"

	"ThreatScanner/internal/domain"
)

var (
	cveExpr     = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,}`)
	versionExpr = regexp.MustCompile(`\bv?\d+(?:\.\d+)+\b|\bv?\d+\b`)
	ipv4Expr    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	domainExpr  = regexp.MustCompile(`\b[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)+\.[a-zA-Z]{2,}\b|\b[a-zA-Z0-9][a-zA-Z0-9-]*\.(?:com|net|org|io|cn|ru|info|biz|xyz|top)\b`)
	hashExpr    = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b|\b[a-fA-F0-9]{40}\b|\b[a-fA-F0-9]{32}\b`)
)

// productAlias maps a recognizable token to its canonical product name.
type productAlias struct {
	token     string
	canonical string
}

// Alias order matters: longer, more specific tokens come first so "Windows
// Server" wins over a bare "Windows" match elsewhere in the text.
var productAliases = []productAlias{
	{"windows server", "Windows Server"},
	{"sql server", "SQL Server"},
	{"vsphere", "VMware"},
	{"esxi", "VMware"},
	{"vcenter", "VMware"},
	{"mysql", "MySQL"},
	{"apache", "Apache"},
	{"nginx", "Nginx"},
	{"weblogic", "WebLogic"},
}

// selfDevelopedMarkers flag free-form descriptions of in-house systems, which
// form their own product category and keep their full description.
var selfDevelopedMarkers = []string{"self-developed system", "self-developed", "自研系统", "自研"}

// ttpKeywords maps bilingual attack phrasing to MITRE ATT&CK technique ids.
var ttpKeywords = map[string][]string{
	"T1566.001": {"phishing", "spearphishing", "phishing email", "钓鱼", "钓鱼邮件", "鱼叉"},
	"T1059.001": {"powershell", "command execution", "script interpreter", "remote code execution", "命令执行", "脚本执行", "远程代码执行"},
	"T1078":     {"credential theft", "stolen credentials", "valid accounts", "account takeover", "凭证窃取", "账号窃取", "撞库"},
	"T1190":     {"exploit public-facing", "sql injection", "deserialization", "漏洞利用", "注入攻击", "反序列化"},
	"T1486":     {"ransomware", "data encrypted for impact", "勒索软件", "勒索"},
}

// Confidence contributions per indicator kind, validated at init.
const (
	cveWeight     = 0.3
	productWeight = 0.3
	ttpWeight     = 0.2
	iocWeight     = 0.2
)

func init() {
	if cveWeight+productWeight+ttpWeight+iocWeight > 1.0+1e-9 {
		panic("extraction: confidence weights exceed 1.0")
	}
}

// RuleExtractor performs deterministic pattern-matching extraction over
// advisory text. All methods are side-effect-free and treat empty input as an
// empty result, never an error.
type RuleExtractor struct{}

// NewRuleExtractor builds the deterministic extractor.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

// Extract runs every pattern family and derives the content-weighted
// confidence. Used when rules are the primary extraction strategy.
func (r *RuleExtractor) Extract(text string) domain.ExtractedInfo {
	info := r.ExtractWithoutConfidence(text)
	info.Confidence = contentConfidence(info)
	return info
}

// ExtractWithoutConfidence runs every pattern family but leaves confidence at
// zero, so callers can apply their own confidence policy.
func (r *RuleExtractor) ExtractWithoutConfidence(text string) domain.ExtractedInfo {
	if strings.TrimSpace(text) == "" {
		return domain.ExtractedInfo{Provenance: domain.ProvenanceRuleBased}
	}
	return domain.ExtractedInfo{
		CVEs:       ExtractCVEs(text),
		Products:   ExtractProducts(text),
		TTPs:       ExtractTTPs(text),
		IOCs:       ExtractIOCs(text),
		Provenance: domain.ProvenanceRuleBased,
	}
}

// ExtractCVEs matches CVE identifiers case-insensitively, normalizes them to
// upper case, and deduplicates preserving first-seen order.
func ExtractCVEs(text string) []string {
	matches := cveExpr.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		id := strings.ToUpper(m)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ExtractProducts recognizes catalogued vendor products via the alias table
// and free-form self-developed systems. For catalogued names, the nearest
// version-like token following the mention becomes the version.
func ExtractProducts(text string) []domain.Product {
	lower := strings.ToLower(text)
	var products []domain.Product
	seen := map[string]struct{}{}

	for _, alias := range productAliases {
		idx := strings.Index(lower, alias.token)
		if idx < 0 {
			continue
		}
		if _, ok := seen[alias.canonical]; ok {
			continue
		}
		seen[alias.canonical] = struct{}{}

		tail := text[idx+len(alias.token):]
		version := ""
		if loc := versionExpr.FindStringIndex(tail); loc != nil && loc[0] < 40 {
			version = strings.TrimPrefix(tail[loc[0]:loc[1]], "v")
		}
		products = append(products, domain.Product{
			Name:    alias.canonical,
			Version: version,
			Type:    domain.ProductVendor,
		})
	}

	for _, marker := range selfDevelopedMarkers {
		idx := strings.Index(lower, strings.ToLower(marker))
		if idx < 0 {
			continue
		}
		desc := selfDevelopedDescription(text, idx)
		if _, ok := seen[desc]; ok {
			continue
		}
		seen[desc] = struct{}{}
		products = append(products, domain.Product{
			Name: desc,
			Type: domain.ProductSelfDeveloped,
		})
		break
	}

	return products
}

// selfDevelopedDescription keeps the full clause containing the marker.
func selfDevelopedDescription(text string, idx int) string {
	start := idx
	for start > 0 && !isClauseBoundary(text[start-1]) {
		start--
	}
	end := idx
	for end < len(text) && !isClauseBoundary(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

func isClauseBoundary(b byte) bool {
	switch b {
	case '.', ',', ';', '\n', '(', ')':
		return true
	}
	return false
}

// ExtractTTPs maps keyword hits to ATT&CK technique ids. The result is
// deduplicated and lexically sorted.
func ExtractTTPs(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var ids []string
	for id, keywords := range ttpKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// KeywordsForTechnique returns the configured keyword set for a technique id,
// or an empty set for an unknown id.
func KeywordsForTechnique(id string) []string {
	return ttpKeywords[id]
}

// ExtractIOCs partitions indicator matches into IPs, domains, and hashes.
// Hash matches are removed from domain candidates so hex blobs are not
// mistaken for host names.
func ExtractIOCs(text string) domain.IOCSet {
	var set domain.IOCSet

	hashes := map[string]struct{}{}
	for _, h := range hashExpr.FindAllString(text, -1) {
		h = strings.ToLower(h)
		if _, ok := hashes[h]; ok {
			continue
		}
		hashes[h] = struct{}{}
		set.Hashes = append(set.Hashes, h)
	}

	seenIPs := map[string]struct{}{}
	for _, ip := range ipv4Expr.FindAllString(text, -1) {
		if !validDottedQuad(ip) {
			continue
		}
		if _, ok := seenIPs[ip]; ok {
			continue
		}
		seenIPs[ip] = struct{}{}
		set.IPs = append(set.IPs, ip)
	}

	seenDomains := map[string]struct{}{}
	for _, d := range domainExpr.FindAllString(text, -1) {
		d = strings.ToLower(d)
		if _, ok := seenIPs[d]; ok {
			continue
		}
		if _, ok := hashes[d]; ok {
			continue
		}
		if ipv4Expr.MatchString(d) {
			continue
		}
		if _, ok := seenDomains[d]; ok {
			continue
		}
		seenDomains[d] = struct{}{}
		set.Domains = append(set.Domains, d)
	}

	return set
}

func validDottedQuad(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if len(p) > 1 && p[0] == '0' {
			continue
		}
		n := 0
		for _, c := range p {
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// contentConfidence sums the per-kind contributions and clamps to [0,1].
func contentConfidence(info domain.ExtractedInfo) float64 {
	score := 0.0
	if len(info.CVEs) > 0 {
		score += cveWeight
	}
	if len(info.Products) > 0 {
		score += productWeight
	}
	if len(info.TTPs) > 0 {
		score += ttpWeight
	}
	if !info.IOCs.Empty() {
		score += iocWeight
	}
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}
