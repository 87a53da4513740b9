package generation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/llm"
	"fundingsense-backend/internal/reasoning"
	"fundingsense-backend/internal/shared/telemetry"
)

// DefaultTimeout bounds a backend call when none is configured.
const DefaultTimeout = 30 * time.Second

// Generator turns reasoning results into grounded prose. Every exported
// operation degrades to deterministic output instead of failing.
type Generator struct {
	client  llm.Client
	timeout time.Duration
}

// New builds a Generator. A nil client behaves as an unconfigured backend.
func New(client llm.Client, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{client: client, timeout: timeout}
}

type reportInput struct {
	SupportedClaims []string        `json:"supported_claims"`
	RejectedClaims  []string        `json:"rejected_claims"`
	ConfidenceLevel reasoning.Level `json:"confidence_level"`
	Evidence        []evidence.Unit `json:"evidence"`
}

type rawInvestor struct {
	Name       string   `json:"name"`
	FitScore   float64  `json:"fit_score"`
	Reasons    []string `json:"reasons"`
	FocusAreas []string `json:"focus_areas"`
}

type rawReport struct {
	ExecutiveSummary      *string       `json:"executive_summary"`
	WhyThisFits           []string      `json:"why_this_fits"`
	WhyThisDoesNotFit     []string      `json:"why_this_does_not_fit"`
	RecommendedInvestors  []rawInvestor `json:"recommended_investors"`
	ConfidenceExplanation *string       `json:"confidence_explanation"`
}

// GenerateReport asks the backend for a report over res and units and
// validates the reply against them. Any failure yields FallbackReport.
func (g *Generator) GenerateReport(ctx context.Context, res reasoning.Result, units []evidence.Unit, lang string) Report {
	tag := NormalizeLanguage(lang)
	if g.client == nil {
		return g.fallback(ctx, res, units, lang, eris.Wrap(ErrGenerationUnavailable, "no client"))
	}

	input, err := json.Marshal(reportInput{
		SupportedClaims: res.SupportedClaims,
		RejectedClaims:  res.RejectedClaims,
		ConfidenceLevel: res.Confidence,
		Evidence:        units,
	})
	if err != nil {
		return g.fallback(ctx, res, units, lang, eris.Wrap(err, "generation: marshal input"))
	}
	prompt := llm.Prompt{
		Name:     llm.PromptReport,
		System:   systemPrompt(llm.PromptReport, tag),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Data to analyze: " + string(input)}},
	}

	raw, err := g.complete(ctx, prompt)
	if err != nil {
		return g.fallback(ctx, res, units, lang, err)
	}

	var parsed rawReport
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return g.fallback(ctx, res, units, lang, eris.Wrapf(ErrGenerationMalformed, "decode report: %v", err))
	}
	report, err := sanitizeReport(parsed, res, units)
	if err != nil {
		return g.fallback(ctx, res, units, lang, err)
	}
	return report
}

func (g *Generator) complete(ctx context.Context, prompt llm.Prompt) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		raw json.RawMessage
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := g.client.Complete(ctx, prompt)
		done <- result{raw: raw, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, classify(r.err)
		}
		return r.raw, nil
	case <-ctx.Done():
		return nil, eris.Wrapf(ErrGenerationUnavailable, "%s: %v", prompt.Name, ctx.Err())
	}
}

// fallback builds FallbackReport and, when the backend answered but the reply
// was unusable, translates its prose into lang. Unavailable backends are not
// retried for translation.
func (g *Generator) fallback(ctx context.Context, res reasoning.Result, units []evidence.Unit, lang string, cause error) Report {
	telemetry.Warn("generation.fallback", map[string]any{
		"mode":  llm.PromptReport,
		"error": cause,
	})
	report := FallbackReport(res, units, cause)
	if errors.Is(cause, ErrGenerationUnavailable) || ctx.Err() != nil {
		return report
	}
	report.ExecutiveSummary = g.Translate(ctx, report.ExecutiveSummary, lang)
	report.ConfidenceExplanation = g.Translate(ctx, report.ConfidenceExplanation, lang)
	return report
}

// sanitizeReport enforces the closed world: investors must come from the
// evidence, fit reasons must restate supported claims, and not-fit reasons
// are rebuilt from rejected claims.
func sanitizeReport(parsed rawReport, res reasoning.Result, units []evidence.Unit) (Report, error) {
	if parsed.ExecutiveSummary == nil || strings.TrimSpace(*parsed.ExecutiveSummary) == "" {
		return Report{}, eris.Wrap(ErrGenerationMalformed, "missing executive_summary")
	}

	report := Report{
		ExecutiveSummary:  strings.TrimSpace(*parsed.ExecutiveSummary),
		WhyThisFits:       groundedFits(parsed.WhyThisFits, res.SupportedClaims),
		WhyThisDoesNotFit: NotFits(res.RejectedClaims),
	}

	explanation := ""
	if parsed.ConfidenceExplanation != nil {
		explanation = strings.TrimSpace(*parsed.ConfidenceExplanation)
	}
	if !namesOnlyLevel(explanation, res.Confidence) {
		explanation = ConfidenceExplanation(res.Confidence)
	}
	report.ConfidenceExplanation = explanation

	derived := DeriveInvestors(res, units)
	report.RecommendedInvestors = groundedInvestors(parsed.RecommendedInvestors, derived, units)
	if len(report.RecommendedInvestors) == 0 {
		report.RecommendedInvestors = derived
	}
	return report, nil
}

// groundedFits keeps model entries that restate a supported claim. When the
// model restated none, the supported claims are used verbatim.
func groundedFits(model, supported []string) []string {
	canonical := map[string]string{}
	for _, c := range supported {
		canonical[normalizeText(c)] = c
	}
	out := []string{}
	for _, entry := range model {
		if c, ok := canonical[normalizeText(entry)]; ok {
			out = appendUnique(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, supported...)
	}
	return out
}

func groundedInvestors(model []rawInvestor, derived []Investor, units []evidence.Unit) []Investor {
	known := map[string]string{}
	sources := map[string][]string{}
	sectors := map[string][]string{}
	for _, u := range units {
		for _, name := range u.Investors {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			if _, ok := known[key]; !ok {
				known[key] = strings.TrimSpace(name)
			}
			sources[key] = append(sources[key], strings.ToLower(u.Title), strings.ToLower(u.Content))
			if s := strings.TrimSpace(u.Sector); s != "" {
				sectors[key] = appendUniqueFold(sectors[key], s)
			}
		}
	}
	fallbackReasons := map[string][]string{}
	for _, d := range derived {
		key := strings.ToLower(d.Name)
		fallbackReasons[key] = d.Reasons
	}

	out := []Investor{}
	seen := map[string]bool{}
	for _, inv := range model {
		key := strings.ToLower(strings.TrimSpace(inv.Name))
		name, ok := known[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true

		reasons := []string{}
		for _, r := range inv.Reasons {
			if r = strings.TrimSpace(r); r == "" {
				continue
			}
			if c, ok := restates(r, fallbackReasons[key]); ok {
				reasons = appendUnique(reasons, c)
			} else if quotes(r, sources[key]) {
				reasons = appendUnique(reasons, r)
			}
		}
		if len(reasons) == 0 {
			reasons = append(reasons, fallbackReasons[key]...)
		}

		focus := []string{}
		for _, f := range inv.FocusAreas {
			for _, s := range sectors[key] {
				if strings.EqualFold(strings.TrimSpace(f), s) {
					focus = appendUniqueFold(focus, s)
				}
			}
		}
		if len(focus) == 0 {
			focus = append(focus, sectors[key]...)
		}

		out = append(out, Investor{
			Name:       name,
			FitScore:   clampScore(int(math.Round(inv.FitScore))),
			Reasons:    reasons,
			FocusAreas: focus,
		})
		if len(out) == maxInvestors {
			break
		}
	}
	return out
}

// namesOnlyLevel reports whether explanation states level as a word and
// states no other confidence level.
func namesOnlyLevel(explanation string, level reasoning.Level) bool {
	if !reasoning.ContainsTerm(explanation, string(level)) {
		return false
	}
	for _, other := range []reasoning.Level{reasoning.Low, reasoning.Medium, reasoning.High} {
		if other != level && reasoning.ContainsTerm(explanation, string(other)) {
			return false
		}
	}
	return true
}

// restates returns the derived claim that reason repeats, if any.
func restates(reason string, claims []string) (string, bool) {
	n := normalizeText(reason)
	for _, c := range claims {
		if normalizeText(c) == n {
			return c, true
		}
	}
	return "", false
}

// quotes reports whether reason appears verbatim in one of the investor's
// evidence titles or bodies.
func quotes(reason string, sources []string) bool {
	n := normalizeText(reason)
	if len(n) < 3 {
		return false
	}
	for _, src := range sources {
		if strings.Contains(src, n) {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), "."))
}

func systemPrompt(name string, tag language.Tag) string {
	tmpl, _ := llm.PromptTemplate(name)
	return strings.ReplaceAll(tmpl, "{{LANGUAGE}}", LanguageName(tag))
}
