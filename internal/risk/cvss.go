package risk

import (
	"math"
	"strings"
)

// Metric weight tables for CVSS v3 base vectors. The parser is deliberately
// simplified: a vector it cannot fully resolve yields (0, false) and callers
// treat the score as unresolved, never as an error.
var (
	attackVectorWeights = map[string]float64{"N": 0.85, "A": 0.62, "L": 0.55, "P": 0.2}
	complexityWeights   = map[string]float64{"L": 0.77, "H": 0.44}
	privilegeWeights    = map[string]float64{"N": 0.85, "L": 0.62, "H": 0.27}
	privilegeChanged    = map[string]float64{"N": 0.85, "L": 0.68, "H": 0.5}
	interactionWeights  = map[string]float64{"N": 0.85, "R": 0.62}
	impactWeights       = map[string]float64{"H": 0.56, "L": 0.22, "N": 0.0}
)

// ScoreFromVector derives a base score from a CVSS v3 vector string such as
// "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H". The second return is false
// when the vector cannot be resolved.
func ScoreFromVector(vector string) (float64, bool) {
	vector = strings.TrimSpace(vector)
	if vector == "" {
		return 0, false
	}

	metrics := map[string]string{}
	for _, part := range strings.Split(vector, "/") {
		if strings.HasPrefix(part, "CVSS:") {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return 0, false
		}
		metrics[strings.ToUpper(kv[0])] = strings.ToUpper(kv[1])
	}

	scope, ok := metrics["S"]
	if !ok {
		return 0, false
	}
	changed := scope == "C"
	if !changed && scope != "U" {
		return 0, false
	}

	av, ok := attackVectorWeights[metrics["AV"]]
	if !ok {
		return 0, false
	}
	ac, ok := complexityWeights[metrics["AC"]]
	if !ok {
		return 0, false
	}
	prTable := privilegeWeights
	if changed {
		prTable = privilegeChanged
	}
	pr, ok := prTable[metrics["PR"]]
	if !ok {
		return 0, false
	}
	ui, ok := interactionWeights[metrics["UI"]]
	if !ok {
		return 0, false
	}
	conf, ok := impactWeights[metrics["C"]]
	if !ok {
		return 0, false
	}
	integ, ok := impactWeights[metrics["I"]]
	if !ok {
		return 0, false
	}
	avail, ok := impactWeights[metrics["A"]]
	if !ok {
		return 0, false
	}

	iss := 1 - (1-conf)*(1-integ)*(1-avail)
	var impact float64
	if changed {
		impact = 7.52*(iss-0.029) - 3.25*math.Pow(iss-0.02, 15)
	} else {
		impact = 6.42 * iss
	}
	if impact <= 0 {
		return 0, true
	}

	exploitability := 8.22 * av * ac * pr * ui

	score := impact + exploitability
	if changed {
		score = 1.08 * score
	}
	if score > 10 {
		score = 10
	}

	// CVSS rounds up to one decimal place.
	return math.Ceil(score*10) / 10, true
}
