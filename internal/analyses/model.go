package analyses

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/generation"
	"fundingsense-backend/internal/reasoning"
)

// MaxDescriptionLength bounds the startup description in characters.
const MaxDescriptionLength = 5000

// State is a step of the analysis pipeline.
type State string

const (
	StateReceived   State = "received"
	StateRetrieving State = "retrieving"
	StateValidating State = "validating"
	StateGenerating State = "generating"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Request is the input of one analysis run.
type Request struct {
	Description string `json:"description"`
	Language    string `json:"language,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

// Validate trims the request in place and checks required fields.
func (r *Request) Validate() error {
	r.Description = strings.TrimSpace(r.Description)
	r.Language = strings.TrimSpace(r.Language)
	r.UserID = strings.TrimSpace(r.UserID)
	if r.Description == "" {
		return eris.Wrap(ErrInvalidRequest, "description is required")
	}
	if n := utf8.RuneCountInString(r.Description); n > MaxDescriptionLength {
		return eris.Wrapf(ErrInvalidRequest, "description is %d characters, max %d", n, MaxDescriptionLength)
	}
	return nil
}

// Analysis is a persisted, read-only analysis result.
type Analysis struct {
	ID                    string                `json:"analysis_id"`
	UserID                string                `json:"user_id"`
	Description           string                `json:"description"`
	Language              string                `json:"language"`
	OverallScore          int                   `json:"overall_score"`
	ExecutiveSummary      string                `json:"executive_summary"`
	WhyThisFits           []string              `json:"why_this_fits"`
	WhyThisDoesNotFit     []string              `json:"why_this_does_not_fit"`
	RecommendedInvestors  []generation.Investor `json:"recommended_investors"`
	EvidenceUsed          []evidence.Unit       `json:"evidence_used"`
	ConfidenceLevel       reasoning.Level       `json:"confidence_level"`
	ConfidenceExplanation string                `json:"confidence_explanation"`
	CreatedAt             time.Time             `json:"created_at"`
}
