package risk

import "testing"

func TestScoreFromVector(t *testing.T) {
	t.Parallel()

	cases := []struct {
		vector string
		want   float64
	}{
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 9.8},
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N", 6.1},
		{"CVSS:3.0/AV:L/AC:H/PR:H/UI:R/S:U/C:L/I:N/A:N", 1.8},
		{"AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:N", 0.0},
	}

	for _, tc := range cases {
		got, ok := ScoreFromVector(tc.vector)
		if !ok {
			t.Fatalf("vector %s should resolve", tc.vector)
		}
		if got != tc.want {
			t.Fatalf("ScoreFromVector(%s) = %v, want %v", tc.vector, got, tc.want)
		}
	}
}

func TestScoreFromVectorUnresolvable(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"garbage",
		"CVSS:3.1/AV:N/AC:L",
		"CVSS:3.1/AV:X/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
		"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:Q/C:H/I:H/A:H",
	}
	for _, vector := range cases {
		if _, ok := ScoreFromVector(vector); ok {
			t.Fatalf("vector %q must not resolve", vector)
		}
	}
}
