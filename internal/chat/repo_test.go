package chat

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/llm"
	local "fundingsense-backend/internal/shared/storage/object/local"
)

func TestFileRepoKeepsSessionsPerUser(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()
	ts := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	repo := NewFileRepo(store, "")
	require.NoError(t, repo.Append(ctx, "u1",
		Turn{ID: "t1", Role: llm.RoleUser, Content: "hi", Timestamp: ts},
		Turn{ID: "t2", Role: llm.RoleAssistant, Content: "hello", Sources: []evidence.Unit{{ID: "e1", Title: "Deal"}}, Timestamp: ts},
	))
	require.NoError(t, repo.Append(ctx, "u2", Turn{ID: "t3", Role: llm.RoleUser, Content: "other", Timestamp: ts}))

	reopened := NewFileRepo(store, "")
	got, err := reopened.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hello", got[1].Content)
	assert.Equal(t, "e1", got[1].Sources[0].ID)

	none, err := reopened.History(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPGRepoAppendIsTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO chat_turns").
		WithArgs("t1", "u1", "user", "hi", []byte("[]"), ts).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO chat_turns").
		WithArgs("t2", "u1", "assistant", "hello", sqlmock.AnyArg(), ts).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err = (&PGRepo{DB: db}).Append(context.Background(), "u1",
		Turn{ID: "t1", Role: llm.RoleUser, Content: "hi", Timestamp: ts},
		Turn{ID: "t2", Role: llm.RoleAssistant, Content: "hello", Sources: []evidence.Unit{{ID: "e1"}}, Timestamp: ts},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, role, content, sources, created_at").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "content", "sources", "created_at"}).
			AddRow("t1", "user", "hi", []byte("[]"), ts).
			AddRow("t2", "assistant", "hello", []byte(`[{"evidence_id":"e1","title":"Deal"}]`), ts))

	got, err := (&PGRepo{DB: db}).History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, llm.RoleUser, got[0].Role)
	assert.Nil(t, got[0].Sources)
	assert.Equal(t, "Deal", got[1].Sources[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}
