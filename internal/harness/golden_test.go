package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace with testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		scenario, err := LoadScenario(f)
		require.NoError(t, err, f)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestScenarios_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/shared_watcher.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Run(scenario)
		require.NoError(t, err)
		require.Equal(t, FormatTrace(scenario.Name, first), FormatTrace(scenario.Name, again))
	}
}

func TestCompareAndWriteGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/favorites_added.yaml")
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "golden", "favorites_added.golden")
	_, err = CompareGolden(path, scenario.Name, result)
	require.Error(t, err, "missing golden file")

	require.NoError(t, WriteGolden(path, scenario.Name, result))
	match, err := CompareGolden(path, scenario.Name, result)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = CompareGolden(path, "renamed", result)
	require.NoError(t, err)
	assert.False(t, match, "header names the scenario")
}

func TestFormatTrace(t *testing.T) {
	result := NewResult()
	assert.Equal(t, "# scenario: empty\n", string(FormatTrace("empty", result)))
}
