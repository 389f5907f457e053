package record

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/serve-bootstrap/internal/domain/run"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	r, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad ensures a saved record is read back and replaced on the next save.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "run.yaml")
	repo := NewFileRepository(file)

	started := time.Now().UTC().Truncate(time.Second)
	want := &run.Record{
		RunID:      "6f1c0c2e-8d7a-4a57-9a43-1f0f3a5b8c11",
		Actor:      "app@web-1",
		Version:    "1.2.3",
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Steps: []run.StepResult{
			{Name: "deps", Status: run.StatusSucceeded, Duration: 40 * time.Second},
			{Name: "browser", Status: run.StatusFailed, ExitCode: 1, Error: "exit status 1", Duration: 2 * time.Second},
		},
		ExitCode: 1,
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.RunID, got.RunID)
	require.Equal(t, want.Steps, got.Steps)
	require.True(t, want.StartedAt.Equal(got.StartedAt))
	require.Equal(t, 1, got.ExitCode)

	want.ExitCode = 0
	want.Steps = want.Steps[:1]
	require.NoError(t, repo.Save(context.Background(), want))

	got, err = repo.Load(context.Background())
	require.NoError(t, err)
	require.True(t, got.Succeeded())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
