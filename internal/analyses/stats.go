package analyses

import (
	"context"
	"fmt"
	"strings"

	"fundingsense-backend/internal/evidence"
)

// Stats aggregates persisted analyses.
type Stats struct {
	TotalAnalyses  int    `json:"total_analyses"`
	TotalInvestors int    `json:"total_investors"`
	TotalEvidence  int    `json:"total_evidence"`
	AvgScore       string `json:"avg_score"`
}

// Stats summarizes the analyses visible to userID. Investors are counted by
// case-insensitive name and evidence by title.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	list, err := s.Repo.List(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(list), nil
}

func computeStats(list []Analysis) Stats {
	if len(list) == 0 {
		return Stats{AvgScore: "0%"}
	}
	investors := map[string]struct{}{}
	titles := map[string]struct{}{}
	sum := 0
	for _, a := range list {
		sum += a.OverallScore
		for _, inv := range a.RecommendedInvestors {
			if name := strings.ToLower(strings.TrimSpace(inv.Name)); name != "" {
				investors[name] = struct{}{}
			}
		}
		for _, u := range a.EvidenceUsed {
			titles[u.Title] = struct{}{}
		}
	}
	return Stats{
		TotalAnalyses:  len(list),
		TotalInvestors: len(investors),
		TotalEvidence:  len(titles),
		AvgScore:       fmt.Sprintf("%d%%", sum/len(list)),
	}
}

// Evidence returns the evidence used across userID's analyses, one entry
// per title. The oldest analysis citing a title wins.
func (s *Service) Evidence(ctx context.Context, userID string) ([]evidence.Unit, error) {
	list, err := s.Repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []evidence.Unit{}
	for i := len(list) - 1; i >= 0; i-- {
		for _, u := range list[i].EvidenceUsed {
			if _, dup := seen[u.Title]; dup {
				continue
			}
			seen[u.Title] = struct{}{}
			out = append(out, u)
		}
	}
	return out, nil
}

// Library lists the most recently ingested evidence units.
func (s *Service) Library(ctx context.Context, limit int) ([]evidence.Unit, error) {
	return s.EvidenceStore.ListAll(ctx, limit)
}
