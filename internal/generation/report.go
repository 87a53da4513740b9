package generation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/reasoning"
)

const (
	// FallbackSummary is the executive summary of a deterministic report.
	FallbackSummary = "Initial analysis performed across market, regulatory, and financial parameters."
	// NotFitPrefix precedes every rejected claim in why_this_does_not_fit.
	NotFitPrefix = "Insufficient evidence for: "

	maxInvestors = 5
)

// Investor is one recommended investor.
type Investor struct {
	Name       string   `json:"name"`
	FitScore   int      `json:"fit_score"`
	Reasons    []string `json:"reasons"`
	FocusAreas []string `json:"focus_areas"`
}

// Report is the structured synthesis of a reasoning result.
type Report struct {
	ExecutiveSummary      string     `json:"executive_summary"`
	WhyThisFits           []string   `json:"why_this_fits"`
	WhyThisDoesNotFit     []string   `json:"why_this_does_not_fit"`
	RecommendedInvestors  []Investor `json:"recommended_investors"`
	ConfidenceExplanation string     `json:"confidence_explanation"`

	// Fallback is set when the report was built without the backend.
	Fallback      bool  `json:"-"`
	FallbackCause error `json:"-"`
}

// ConfidenceExplanation names the confidence level in a fixed sentence.
func ConfidenceExplanation(level reasoning.Level) string {
	return fmt.Sprintf("Report generated with %s confidence based on direct evidence matches.", level)
}

// NotFits prefixes each rejected claim.
func NotFits(rejected []string) []string {
	out := make([]string, 0, len(rejected))
	for _, c := range rejected {
		out = append(out, NotFitPrefix+c)
	}
	return out
}

// FallbackReport builds a report directly from the reasoning result. Supported
// claims are copied verbatim and in order.
func FallbackReport(res reasoning.Result, units []evidence.Unit, cause error) Report {
	return Report{
		ExecutiveSummary:      FallbackSummary,
		WhyThisFits:           append([]string{}, res.SupportedClaims...),
		WhyThisDoesNotFit:     NotFits(res.RejectedClaims),
		RecommendedInvestors:  DeriveInvestors(res, units),
		ConfidenceExplanation: ConfidenceExplanation(res.Confidence),
		Fallback:              true,
		FallbackCause:         cause,
	}
}

type investorTally struct {
	name    string
	claims  []string
	sectors []string
}

// DeriveInvestors recommends the investors named on units that supported a
// claim. Fit is the share of supported claims an investor's units back.
func DeriveInvestors(res reasoning.Result, units []evidence.Unit) []Investor {
	total := len(res.SupportedClaims)
	if total == 0 {
		return []Investor{}
	}
	byID := make(map[string]evidence.Unit, len(units)+len(res.Evidence))
	for _, u := range res.Evidence {
		byID[u.ID] = u
	}
	for _, u := range units {
		byID[u.ID] = u
	}

	tallies := map[string]*investorTally{}
	var order []string
	for _, claim := range res.SupportedClaims {
		for _, id := range res.Support[claim] {
			u, ok := byID[id]
			if !ok {
				continue
			}
			for _, name := range u.Investors {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				key := strings.ToLower(name)
				t, ok := tallies[key]
				if !ok {
					t = &investorTally{name: name}
					tallies[key] = t
					order = append(order, key)
				}
				t.claims = appendUnique(t.claims, claim)
				if s := strings.TrimSpace(u.Sector); s != "" {
					t.sectors = appendUniqueFold(t.sectors, s)
				}
			}
		}
	}

	out := make([]Investor, 0, len(order))
	for _, key := range order {
		t := tallies[key]
		fit := int(math.Round(100 * float64(len(t.claims)) / float64(total)))
		out = append(out, Investor{
			Name:       t.name,
			FitScore:   clampScore(fit),
			Reasons:    t.claims,
			FocusAreas: nonNil(t.sectors),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FitScore != out[j].FitScore {
			return out[i].FitScore > out[j].FitScore
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > maxInvestors {
		out = out[:maxInvestors]
	}
	return out
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func appendUniqueFold(list []string, v string) []string {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return list
		}
	}
	return append(list, v)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
