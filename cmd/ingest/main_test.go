package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingsense-backend/internal/evidence"
)

func TestRunIngestsIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "raw")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "northwind.md"), []byte(
		"---\ntitle: Northwind leads Series A\nsector: Fintech\ninvestors: Northwind Ventures\n---\nNorthwind Ventures led a Series A round in Berlin.\n"), 0o644))
	dbPath := filepath.Join(dir, "evidence.db")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--root", root, "--db", dbPath, "--workers", "2"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	backing, err := evidence.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer backing.Close()
	units, err := backing.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "ev_vec_northwind", units[0].ID)
	assert.Equal(t, []string{"Northwind Ventures"}, units[0].Investors)
}

func TestRunMissingRoot(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--root", filepath.Join(t.TempDir(), "nope"), "--db", filepath.Join(t.TempDir(), "e.db")})
	require.Error(t, cmd.ExecuteContext(context.Background()))
}
