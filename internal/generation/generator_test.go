package generation

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/reasoning"
)

type fakeClient struct {
	calls atomic.Int32
	fn    func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error)
}

func (f *fakeClient) Complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	f.calls.Add(1)
	return f.fn(ctx, prompt)
}

func replying(body string) *fakeClient {
	return &fakeClient{fn: func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	}}
}

func failing(err error) *fakeClient {
	return &fakeClient{fn: func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
		return nil, err
	}}
}

const (
	claimSector = "Investor activity is documented in the Fintech sector"
	claimStage  = "Evidence shows Series A stage funding rounds"
	claimGeo    = "Investor presence is documented in Europe"
	claimModel  = "Evidence covers investment in Marketplace business models"
)

func fixture(t *testing.T) (reasoning.Result, []evidence.Unit) {
	t.Helper()
	units := []evidence.Unit{
		{
			ID:            "ev_1",
			SourceType:    evidence.SourceNews,
			Title:         "Northwind Capital backs Lisbon payments firm",
			SourceName:    "Tech Desk",
			PublishedYear: 2024,
			Sector:        "Fintech",
			Geography:     "Europe",
			Investors:     []string{"Northwind Capital"},
			Content:       "The Series A round was led by Northwind Capital.",
		},
		{
			ID:            "ev_2",
			SourceType:    evidence.SourceFiling,
			Title:         "Harbor Ventures fund filing",
			SourceName:    "SEC",
			PublishedYear: 2023,
			Sector:        "Fintech",
			Geography:     "North America",
			Investors:     []string{"Harbor Ventures", "Northwind Capital"},
			Content:       "Seed investments in lending platforms.",
		},
	}
	res := reasoning.NewValidator(reasoning.DefaultThresholds()).Validate("fintech marketplace, Series A, Europe", units, true)
	require.Equal(t, []string{claimSector, claimStage, claimGeo}, res.SupportedClaims)
	require.Equal(t, []string{claimModel}, res.RejectedClaims)
	return res, units
}

func TestGenerateReportFallbackWithoutBackend(t *testing.T) {
	res, units := fixture(t)
	report := New(nil, time.Second).GenerateReport(context.Background(), res, units, "en")

	assert.True(t, report.Fallback)
	assert.ErrorIs(t, report.FallbackCause, ErrGenerationUnavailable)
	assert.Equal(t, FallbackSummary, report.ExecutiveSummary)
	assert.Equal(t, res.SupportedClaims, report.WhyThisFits)
	assert.Equal(t, []string{"Insufficient evidence for: " + claimModel}, report.WhyThisDoesNotFit)
	assert.Equal(t, "Report generated with high confidence based on direct evidence matches.", report.ConfidenceExplanation)

	want := []Investor{
		{Name: "Northwind Capital", FitScore: 100, Reasons: []string{claimSector, claimStage, claimGeo}, FocusAreas: []string{"Fintech"}},
		{Name: "Harbor Ventures", FitScore: 33, Reasons: []string{claimSector}, FocusAreas: []string{"Fintech"}},
	}
	if diff := cmp.Diff(want, report.RecommendedInvestors); diff != "" {
		t.Fatalf("investors mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateReportPlaceholderIsUnavailable(t *testing.T) {
	res, units := fixture(t)
	report := New(llm.PlaceholderClient{}, time.Second).GenerateReport(context.Background(), res, units, "")
	assert.True(t, report.Fallback)
	assert.ErrorIs(t, report.FallbackCause, ErrGenerationUnavailable)
}

func TestGenerateReportTimeoutFallsBackWithinBound(t *testing.T) {
	res, units := fixture(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	client := &fakeClient{fn: func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
		<-release
		return nil, errors.New("too late")
	}}

	start := time.Now()
	report := New(client, 50*time.Millisecond).GenerateReport(context.Background(), res, units, "en")
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.True(t, report.Fallback)
	assert.ErrorIs(t, report.FallbackCause, ErrGenerationUnavailable)
	assert.Equal(t, res.SupportedClaims, report.WhyThisFits)
}

func TestGenerateReportMalformedOutput(t *testing.T) {
	res, units := fixture(t)

	report := New(replying(`{"why_this_fits":["x"]}`), time.Second).GenerateReport(context.Background(), res, units, "en")
	assert.True(t, report.Fallback)
	assert.ErrorIs(t, report.FallbackCause, ErrGenerationMalformed)

	report = New(replying(`["not","an","object"]`), time.Second).GenerateReport(context.Background(), res, units, "en")
	assert.True(t, report.Fallback)
	assert.ErrorIs(t, report.FallbackCause, ErrGenerationMalformed)

	report = New(failing(llm.ErrInvalidJSON), time.Second).GenerateReport(context.Background(), res, units, "en")
	assert.True(t, report.Fallback)
	assert.ErrorIs(t, report.FallbackCause, ErrGenerationMalformed)
}

func TestGenerateReportEnforcesClosedWorld(t *testing.T) {
	res, units := fixture(t)
	body := `{
		"executive_summary": "Strong fintech fit in Europe.",
		"why_this_fits": ["investor activity is documented in the fintech sector.", "The founders went to Stanford"],
		"why_this_does_not_fit": ["Team too small"],
		"recommended_investors": [
			{"name": "Ghost Capital", "fit_score": 99, "reasons": ["Invented"], "focus_areas": ["AI"]},
			{"name": "northwind capital", "fit_score": 140, "reasons": ["Led a Series A per Tech Desk", "evidence shows series a stage funding rounds.", "backs Lisbon payments firm", "Likes founders"], "focus_areas": ["fintech", "Crypto"]},
			{"name": "Harbor Ventures", "fit_score": -5, "reasons": [], "focus_areas": []}
		],
		"confidence_explanation": "Confidence is high given direct matches."
	}`
	client := replying(body)
	report := New(client, time.Second).GenerateReport(context.Background(), res, units, "en")

	require.False(t, report.Fallback)
	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, "Strong fintech fit in Europe.", report.ExecutiveSummary)
	assert.Equal(t, []string{claimSector}, report.WhyThisFits)
	assert.Equal(t, []string{NotFitPrefix + claimModel}, report.WhyThisDoesNotFit)
	assert.Equal(t, "Confidence is high given direct matches.", report.ConfidenceExplanation)

	want := []Investor{
		{Name: "Northwind Capital", FitScore: 100, Reasons: []string{claimStage, "backs Lisbon payments firm"}, FocusAreas: []string{"Fintech"}},
		{Name: "Harbor Ventures", FitScore: 0, Reasons: []string{claimSector}, FocusAreas: []string{"Fintech"}},
	}
	if diff := cmp.Diff(want, report.RecommendedInvestors); diff != "" {
		t.Fatalf("investors mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateReportReplacesExplanationMissingLevel(t *testing.T) {
	res, units := fixture(t)
	body := `{"executive_summary":"ok","why_this_fits":[],"why_this_does_not_fit":[],"recommended_investors":[],"confidence_explanation":"Looks promising."}`
	report := New(replying(body), time.Second).GenerateReport(context.Background(), res, units, "en")

	require.False(t, report.Fallback)
	assert.Equal(t, ConfidenceExplanation(reasoning.High), report.ConfidenceExplanation)
	assert.Equal(t, res.SupportedClaims, report.WhyThisFits)
	assert.Len(t, report.RecommendedInvestors, 2)
}

func TestGenerateReportExplanationMustNameOnlyTheComputedLevel(t *testing.T) {
	res, units := fixture(t)
	require.Equal(t, reasoning.High, res.Confidence)

	tests := []struct {
		name        string
		explanation string
		want        string
	}{
		{name: "names computed level", explanation: "Confidence is HIGH given direct matches.", want: "Confidence is HIGH given direct matches."},
		{name: "level only inside another word", explanation: "A highly promising profile.", want: ConfidenceExplanation(reasoning.High)},
		{name: "names two levels", explanation: "Confidence moved from low to high.", want: ConfidenceExplanation(reasoning.High)},
		{name: "names another level", explanation: "Following the review, confidence is medium.", want: ConfidenceExplanation(reasoning.High)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]any{
				"executive_summary":      "ok",
				"why_this_fits":          []string{},
				"why_this_does_not_fit":  []string{},
				"recommended_investors":  []any{},
				"confidence_explanation": tt.explanation,
			})
			require.NoError(t, err)
			report := New(replying(string(body)), time.Second).GenerateReport(context.Background(), res, units, "en")
			require.False(t, report.Fallback)
			assert.Equal(t, tt.want, report.ConfidenceExplanation)
		})
	}
}

func TestGenerateReportDropsInventedInvestorReasons(t *testing.T) {
	res, units := fixture(t)
	body := `{
		"executive_summary": "ok",
		"why_this_fits": [],
		"why_this_does_not_fit": [],
		"recommended_investors": [
			{"name": "Harbor Ventures", "fit_score": 80, "reasons": ["Harbor Ventures returned 12x on its 2019 Fintech fund and has $4B AUM"], "focus_areas": ["Fintech"]},
			{"name": "Northwind Capital", "fit_score": 90, "reasons": ["Northwind Capital is the top Europe Fintech investor per Tech Desk"], "focus_areas": ["Fintech"]}
		],
		"confidence_explanation": "high"
	}`
	report := New(replying(body), time.Second).GenerateReport(context.Background(), res, units, "en")
	require.False(t, report.Fallback)

	want := []Investor{
		{Name: "Harbor Ventures", FitScore: 80, Reasons: []string{claimSector}, FocusAreas: []string{"Fintech"}},
		{Name: "Northwind Capital", FitScore: 90, Reasons: []string{claimSector, claimStage, claimGeo}, FocusAreas: []string{"Fintech"}},
	}
	if diff := cmp.Diff(want, report.RecommendedInvestors); diff != "" {
		t.Fatalf("investors mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateReportTranslatesFallbackProse(t *testing.T) {
	res, units := fixture(t)
	client := &fakeClient{fn: func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
		if prompt.Name == llm.PromptTranslate {
			return json.RawMessage(`{"text":"[es] ` + prompt.Messages[0].Content + `"}`), nil
		}
		return json.RawMessage(`{"why_this_fits":["x"]}`), nil
	}}

	report := New(client, time.Second).GenerateReport(context.Background(), res, units, "es")

	require.True(t, report.Fallback)
	assert.ErrorIs(t, report.FallbackCause, ErrGenerationMalformed)
	assert.Equal(t, "[es] "+FallbackSummary, report.ExecutiveSummary)
	assert.Equal(t, "[es] "+ConfidenceExplanation(reasoning.High), report.ConfidenceExplanation)
	assert.Equal(t, res.SupportedClaims, report.WhyThisFits)
	assert.Equal(t, int32(3), client.calls.Load())
}

func TestGenerateReportSkipsTranslationWhenUnavailable(t *testing.T) {
	res, units := fixture(t)
	client := failing(errors.New("offline"))

	report := New(client, time.Second).GenerateReport(context.Background(), res, units, "es")

	require.True(t, report.Fallback)
	assert.Equal(t, FallbackSummary, report.ExecutiveSummary)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestGenerateReportPromptNamesLanguage(t *testing.T) {
	res, units := fixture(t)
	var system string
	client := &fakeClient{fn: func(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
		system = prompt.System
		return nil, errors.New("offline")
	}}
	New(client, time.Second).GenerateReport(context.Background(), res, units, "es")
	assert.Contains(t, system, "Write every string in Spanish.")
}

func TestDeriveInvestorsEmptyWhenNothingSupported(t *testing.T) {
	res := reasoning.Result{RejectedClaims: []string{"x"}, Support: map[string][]string{}}
	assert.Equal(t, []Investor{}, DeriveInvestors(res, nil))
}

func TestDeriveInvestorsCapsAndOrders(t *testing.T) {
	res := reasoning.Result{
		SupportedClaims: []string{"a", "b"},
		Support:         map[string][]string{"a": {"u1"}, "b": {"u2"}},
	}
	units := []evidence.Unit{
		{ID: "u1", Sector: "AI", Investors: []string{"Zeta", "Alpha", "Beta"}},
		{ID: "u2", Sector: "AI", Investors: []string{"Zeta", "Gamma", "Delta", "Epsilon"}},
	}
	got := DeriveInvestors(res, units)
	require.Len(t, got, maxInvestors)
	assert.Equal(t, "Zeta", got[0].Name)
	assert.Equal(t, 100, got[0].FitScore)
	assert.Equal(t, []string{"Alpha", "Beta", "Delta", "Epsilon"}, []string{got[1].Name, got[2].Name, got[3].Name, got[4].Name})
	for _, inv := range got[1:] {
		assert.Equal(t, 50, inv.FitScore)
	}
}
