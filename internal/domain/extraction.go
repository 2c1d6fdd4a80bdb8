package domain

// Provenance tags which extraction strategy produced an ExtractedInfo.
type Provenance string

const (
	ProvenanceAI        Provenance = "ai"
	ProvenanceRuleBased Provenance = "rule_based"
	ProvenanceNone      Provenance = "none"
)

// ProductType distinguishes catalogued vendor products from free-form
// self-developed systems.
type ProductType string

const (
	ProductVendor        ProductType = "vendor"
	ProductSelfDeveloped ProductType = "self_developed"
)

// Product is one affected product extracted from advisory text.
type Product struct {
	Name    string
	Version string
	Type    ProductType
}

// IOCSet partitions indicators of compromise by family.
type IOCSet struct {
	IPs     []string
	Domains []string
	Hashes  []string
}

// Empty reports whether no indicator of any family is present.
func (s IOCSet) Empty() bool {
	return len(s.IPs) == 0 && len(s.Domains) == 0 && len(s.Hashes) == 0
}

// ExtractedInfo is the immutable value produced by one extraction call.
// Confidence is always within [0,1].
type ExtractedInfo struct {
	CVEs       []string
	Products   []Product
	TTPs       []string
	IOCs       IOCSet
	Confidence float64
	Provenance Provenance
}

// Empty reports whether the extraction found nothing at all.
func (e ExtractedInfo) Empty() bool {
	return len(e.CVEs) == 0 && len(e.Products) == 0 && len(e.TTPs) == 0 && e.IOCs.Empty()
}
