package analyses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/generation"
	"fundingsense-backend/internal/reasoning"
	"fundingsense-backend/internal/shared/metrics"
	"fundingsense-backend/internal/shared/telemetry"
)

// Service runs the analysis pipeline and reads persisted results.
type Service struct {
	EvidenceStore evidence.Store
	Validator     *reasoning.Validator
	Generator     *generation.Generator
	Repo          Repo
	TopK          int

	now   func() time.Time
	newID func() string
}

// NewService wires the pipeline collaborators.
func NewService(store evidence.Store, validator *reasoning.Validator, generator *generation.Generator, repo Repo, topK int) *Service {
	if validator == nil {
		validator = reasoning.NewValidator(reasoning.DefaultThresholds())
	}
	if generator == nil {
		generator = generation.New(nil, 0)
	}
	return &Service{
		EvidenceStore: store,
		Validator:     validator,
		Generator:     generator,
		Repo:          repo,
		TopK:          topK,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

type run struct {
	ctx       context.Context
	id        string
	userID    string
	state     State
	startedAt time.Time
}

func (r *run) transition(next State, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["request_id"] = telemetry.RequestID(r.ctx)
	fields["analysis_id"] = r.id
	fields["user_id"] = r.userID
	fields["status_transition"] = string(r.state) + "->" + string(next)
	r.state = next
	telemetry.Info("analysis.status", fields)
}

// Run executes retrieval, validation and generation for req and persists the
// result. Retrieval and generation failures degrade the result instead of
// failing it; only invalid input, cancellation or a persistence error is
// returned.
func (s *Service) Run(ctx context.Context, req Request) (Analysis, error) {
	if err := req.Validate(); err != nil {
		return Analysis{}, err
	}

	r := &run{ctx: ctx, id: s.newID(), userID: req.UserID, state: StateReceived, startedAt: s.now()}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"analysis_id": r.id,
		"user_id":     r.userID,
		"status":      string(StateReceived),
	})

	r.transition(StateRetrieving, nil)
	available := true
	scored, err := s.EvidenceStore.Search(ctx, req.Description, evidence.Filters{}, s.topK())
	if err != nil {
		available = false
		scored = nil
		metrics.IncRetrievalUnavailable()
	}

	r.transition(StateValidating, map[string]any{
		"retrieved":           len(scored),
		"retrieval_available": available,
	})
	result := s.Validator.Validate(req.Description, evidence.Units(scored), available)

	r.transition(StateGenerating, map[string]any{
		"supported_claims": len(result.SupportedClaims),
		"rejected_claims":  len(result.RejectedClaims),
		"confidence":       string(result.Confidence),
	})
	report := s.Generator.GenerateReport(ctx, result, result.Evidence, req.Language)
	if report.Fallback {
		metrics.IncGenerationFallback()
	}

	if err := ctx.Err(); err != nil {
		s.fail(r, err)
		return Analysis{}, eris.Wrap(err, "analyses: run abandoned")
	}

	analysis := Analysis{
		ID:                    r.id,
		UserID:                req.UserID,
		Description:           req.Description,
		Language:              generation.NormalizeLanguage(req.Language).String(),
		OverallScore:          result.Score(),
		ExecutiveSummary:      report.ExecutiveSummary,
		WhyThisFits:           report.WhyThisFits,
		WhyThisDoesNotFit:     report.WhyThisDoesNotFit,
		RecommendedInvestors:  report.RecommendedInvestors,
		EvidenceUsed:          result.Evidence,
		ConfidenceLevel:       result.Confidence,
		ConfidenceExplanation: report.ConfidenceExplanation,
		CreatedAt:             s.now(),
	}
	if analysis.EvidenceUsed == nil {
		analysis.EvidenceUsed = []evidence.Unit{}
	}

	if s.Repo != nil {
		if err := s.Repo.Create(ctx, analysis); err != nil {
			s.fail(r, err)
			return Analysis{}, eris.Wrap(err, "analyses: persist")
		}
	}

	completedAt := s.now()
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(r.startedAt, completedAt))
	r.transition(StateComplete, map[string]any{
		"overall_score":       analysis.OverallScore,
		"generation_fallback": report.Fallback,
		"duration_ms":         durationMs(r.startedAt, completedAt),
	})
	return analysis, nil
}

func (s *Service) fail(r *run, err error) {
	completedAt := s.now()
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(durationMs(r.startedAt, completedAt))
	r.transition(StateFailed, map[string]any{
		"error":       err.Error(),
		"duration_ms": durationMs(r.startedAt, completedAt),
	})
}

func (s *Service) topK() int {
	if s.TopK <= 0 {
		return evidence.DefaultTopK
	}
	return s.TopK
}

// History lists analyses for userID, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Analysis, error) {
	return s.Repo.List(ctx, userID)
}

// Get returns one analysis visible to userID.
func (s *Service) Get(ctx context.Context, analysisID, userID string) (Analysis, error) {
	return s.Repo.GetByID(ctx, analysisID, userID)
}

func durationMs(startedAt, completedAt time.Time) float64 {
	if startedAt.IsZero() || completedAt.IsZero() {
		return 0
	}
	return float64(completedAt.Sub(startedAt).Milliseconds())
}
