package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"runs", "results", "diagnostics", "notices"} {
		var name string
		err := s.DB().QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	// Idempotent.
	require.NoError(t, s.Migrate())
}

func TestSaveRun_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	run := &Run{
		StartedAt:     time.Now().Truncate(time.Second),
		PythonVersion: "3.9",
		Platform:      "linux",
		Typeshed:      "/opt/typeshed",
	}
	results := []UnitResult{
		{Unit: "json", Status: StatusChecked},
		{Unit: "ossaudiodev", Status: StatusSkipped, Detail: "failed to import at runtime"},
	}
	diags := []Diagnostic{
		{Unit: "json", Category: "declared-not-observed", Message: "'encoder_extra' is declared in the stub but is not defined at runtime"},
	}
	notices := []Notice{
		{Unit: "json", Message: "bad conditional \"os.name == 'nt'\""},
	}

	runID, err := s.SaveRun(run, results, diags, notices)
	require.NoError(t, err)
	require.Positive(t, runID)
	assert.Equal(t, 2, run.UnitCount)
	assert.Equal(t, 1, run.DiagnosticCount)

	got, err := s.RunByID(runID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "3.9", got.PythonVersion)
	assert.Equal(t, "linux", got.Platform)
	assert.Equal(t, 2, got.UnitCount)

	gotDiags, err := s.DiagnosticsByRun(runID)
	require.NoError(t, err)
	require.Len(t, gotDiags, 1)
	assert.Equal(t, "json", gotDiags[0].Unit)
	assert.Equal(t, "declared-not-observed", gotDiags[0].Category)

	gotNotices, err := s.NoticesByRun(runID)
	require.NoError(t, err)
	require.Len(t, gotNotices, 1)

	missing, err := s.RunByID(runID + 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRuns_NewestFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := s.SaveRun(&Run{
			StartedAt:     time.Now(),
			PythonVersion: "3.9",
			Platform:      "linux",
		}, nil, nil, nil)
		require.NoError(t, err)
	}

	runs, err := s.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestUnitHistory(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for i := 0; i < 2; i++ {
		_, err := s.SaveRun(&Run{StartedAt: time.Now(), PythonVersion: "3.9", Platform: "linux"},
			nil,
			[]Diagnostic{{Unit: "errno", Category: "exported-not-declared", Message: "'EEXTRA' is in __all__ but not in the stub"}},
			nil)
		require.NoError(t, err)
	}

	diags, err := s.UnitHistory("errno", 10)
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Greater(t, diags[0].RunID, diags[1].RunID)
}
