package reasoning

import (
	"math"
	"strings"

	"fundingsense-backend/internal/evidence"
)

// Result is the outcome of one validation pass. Every supported claim is
// backed by at least one unit in Evidence; supported and rejected claims are
// disjoint.
type Result struct {
	SupportedClaims    []string            `json:"supported_claims"`
	RejectedClaims     []string            `json:"rejected_claims"`
	Confidence         Level               `json:"confidence_level"`
	Evidence           []evidence.Unit     `json:"evidence"`
	Support            map[string][]string `json:"support"`
	RetrievalAvailable bool                `json:"retrieval_available"`
}

// TotalClaims is the number of claims that were classified.
func (r Result) TotalClaims() int {
	return len(r.SupportedClaims) + len(r.RejectedClaims)
}

// Score is the supported claim share as a 0-100 integer.
func (r Result) Score() int {
	total := r.TotalClaims()
	if total == 0 {
		return 0
	}
	score := int(math.Round(100 * float64(len(r.SupportedClaims)) / float64(total)))
	return clamp(score, 0, 100)
}

// Validator classifies claims against retrieved evidence.
type Validator struct {
	thresholds Thresholds
}

// NewValidator builds a validator with the given thresholds; invalid values
// fall back to the defaults.
func NewValidator(t Thresholds) *Validator {
	return &Validator{thresholds: t.Normalize()}
}

// Thresholds returns the confidence cut-offs in use.
func (v *Validator) Thresholds() Thresholds {
	return v.thresholds
}

// Validate extracts claims from description and marks each one supported or
// rejected by units. units is expected in retrieval order; the attached
// evidence keeps that order and holds only units that supported a claim.
func (v *Validator) Validate(description string, units []evidence.Unit, retrievalAvailable bool) Result {
	res := Result{
		SupportedClaims:    []string{},
		RejectedClaims:     []string{},
		Evidence:           []evidence.Unit{},
		Support:            map[string][]string{},
		RetrievalAvailable: retrievalAvailable,
	}

	used := map[string]bool{}
	seenClaim := map[string]bool{}
	for _, claim := range ExtractClaims(description) {
		if seenClaim[claim.Text] {
			continue
		}
		seenClaim[claim.Text] = true

		var backing []string
		for _, u := range units {
			if Supports(claim, u) && !contains(backing, u.ID) {
				backing = append(backing, u.ID)
				used[u.ID] = true
			}
		}
		if len(backing) == 0 {
			res.RejectedClaims = append(res.RejectedClaims, claim.Text)
			continue
		}
		res.SupportedClaims = append(res.SupportedClaims, claim.Text)
		res.Support[claim.Text] = backing
	}

	added := map[string]bool{}
	for _, u := range units {
		if used[u.ID] && !added[u.ID] {
			added[u.ID] = true
			res.Evidence = append(res.Evidence, u.Clone())
		}
	}

	res.Confidence = v.thresholds.Level(len(res.SupportedClaims), res.TotalClaims(), retrievalAvailable)
	return res
}

// Supports reports whether unit substantively matches the claim subject via
// its metadata, usage tags or text.
func Supports(c Claim, u evidence.Unit) bool {
	switch c.Kind {
	case KindSector:
		if matchesAny(u.Sector, c.Terms) {
			return true
		}
	case KindGeography:
		if matchesAny(u.Geography, c.Terms) {
			return true
		}
	}
	for _, term := range c.Terms {
		if u.HasTag(term) {
			return true
		}
	}
	body := u.Title + "\n" + u.Content
	for _, term := range c.Terms {
		if ContainsTerm(body, term) {
			return true
		}
	}
	return false
}

func matchesAny(field string, terms []string) bool {
	field = strings.TrimSpace(field)
	if field == "" {
		return false
	}
	for _, t := range terms {
		if strings.EqualFold(field, t) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
