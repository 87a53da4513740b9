package analyses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	local "fundingsense-backend/internal/shared/storage/object/local"
)

func sampleAnalysis(id, userID string, created time.Time) Analysis {
	return Analysis{
		ID:              id,
		UserID:          userID,
		Description:     "fintech in Europe",
		Language:        "en",
		OverallScore:    50,
		WhyThisFits:     []string{},
		EvidenceUsed:    nil,
		ConfidenceLevel: "medium",
		CreatedAt:       created,
	}
}

func TestReposScopeByUser(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	repos := map[string]func(t *testing.T) Repo{
		"memory": func(t *testing.T) Repo { return NewMemoryRepo() },
		"file":   func(t *testing.T) Repo { return NewFileRepo(local.New(t.TempDir()), "") },
	}
	for name, build := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := build(t)
			require.NoError(t, repo.Create(ctx, sampleAnalysis("a1", "u1", base)))
			require.NoError(t, repo.Create(ctx, sampleAnalysis("a2", "u2", base.Add(time.Minute))))
			require.NoError(t, repo.Create(ctx, sampleAnalysis("a3", "u1", base.Add(2*time.Minute))))

			all, err := repo.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"a3", "a2", "a1"}, ids(all))

			mine, err := repo.List(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"a3", "a1"}, ids(mine))

			got, err := repo.GetByID(ctx, "a2", "")
			require.NoError(t, err)
			assert.Equal(t, "u2", got.UserID)

			_, err = repo.GetByID(ctx, "a2", "u1")
			assert.True(t, errors.Is(err, ErrNotFound))
			_, err = repo.GetByID(ctx, "missing", "")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestFileRepoReloads(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, NewFileRepo(store, "").Create(ctx, sampleAnalysis("a1", "u1", created)))

	got, err := NewFileRepo(store, "").GetByID(ctx, "a1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "fintech in Europe", got.Description)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestReposRejectDuplicateID(t *testing.T) {
	repos := map[string]func(t *testing.T) Repo{
		"memory": func(t *testing.T) Repo { return NewMemoryRepo() },
		"file":   func(t *testing.T) Repo { return NewFileRepo(local.New(t.TempDir()), "") },
	}
	for name, build := range repos {
		t.Run(name, func(t *testing.T) {
			repo := build(t)
			ctx := context.Background()
			first := sampleAnalysis("a1", "u1", time.Now())
			require.NoError(t, repo.Create(ctx, first))

			second := sampleAnalysis("a1", "u2", time.Now())
			second.Description = "overwrite attempt"
			require.Error(t, repo.Create(ctx, second))

			all, err := repo.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "u1", all[0].UserID)
			assert.Equal(t, "fintech in Europe", all[0].Description)
		})
	}
}

func ids(list []Analysis) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
