package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionFromFilename(t *testing.T) {
	cases := map[string]string{
		"2026-09-01-005-create-progress-entries.sql": "create progress entries",
		"2026-09-01-001-create-migrations.sql":       "create migrations",
		"seed.sql":                                   "seed",
	}
	for in, want := range cases {
		assert.Equal(t, want, descriptionFromFilename(in), in)
	}
}

func TestPendingFiles_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2026-09-02-001-b.sql", "2026-09-01-002-a.sql", "notes.txt", "2026-09-01-001-z.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}

	files, err := pendingFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"2026-09-01-001-z.sql", "2026-09-01-002-a.sql", "2026-09-02-001-b.sql"}, names)
}

func TestPendingFiles_Empty(t *testing.T) {
	_, err := pendingFiles(t.TempDir())
	assert.Error(t, err)
}
