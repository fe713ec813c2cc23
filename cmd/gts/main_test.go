package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AntonJorg/general-tree-search/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerConfigs(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("fast:\n  agent: mcts\n  search_time: 0.1\n"), 0o644))

	configs, err := playerConfigs(configFile, [2]string{"@fast", "random"}, 1)
	require.NoError(t, err)
	assert.Contains(t, configs[0], "agent=mcts")
	assert.Contains(t, configs[0], "search_time=0.1")
	assert.Equal(t, "random", configs[1])

	configs, err = playerConfigs("", [2]string{"random,clock=cpu", "human"}, 4)
	require.NoError(t, err)
	assert.Equal(t, "random,clock=cpu", configs[0])
	assert.Equal(t, "human", configs[1])

	configs, err = playerConfigs("", [2]string{"random", "random"}, 4)
	require.NoError(t, err)
	assert.Equal(t, "random,clock=wall", configs[0])

	_, err = playerConfigs(configFile, [2]string{"@missing", "random"}, 1)
	require.Error(t, err)
}

func TestParsePiles(t *testing.T) {
	piles, err := parsePiles("3, 4,5")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, piles)

	_, err = parsePiles("3,x")
	require.Error(t, err)
	_, err = parsePiles("300")
	require.Error(t, err)
}

func TestResults(t *testing.T) {
	results := &Results{total: 4}
	results.record(1, false) // Agent-1 moved first and won.
	results.record(1, true)  // Agent-2 moved first and won.
	results.record(2, true)  // Agent-1 moved second and won.
	results.record(0, false)
	assert.Equal(t, [2]int{1, 1}, results.winsAs1st)
	assert.Equal(t, [2]int{1, 0}, results.winsAs2nd)
	assert.Equal(t, [2]int{1, 0}, results.draws)
	assert.Equal(t, 4, results.played)
	assert.Contains(t, results.String(), "Agent-1: 2 Wins (1st: 1, 2nd: 1)")

	assert.Equal(t, metrics.ResultFirstWins, matchResult(1, false))
	assert.Equal(t, metrics.ResultSecondWins, matchResult(1, true))
	assert.Equal(t, metrics.ResultFirstWins, matchResult(2, true))
	assert.Equal(t, metrics.ResultDraw, matchResult(0, true))
}

func TestRunMatchesNim(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := matchOptions{numMatches: 4, parallelism: 2, printSteps: true, recorder: metrics.NewRecorder(reg)}
	configs := [2]string{"minimax,depth_limit=6,clock=wall", "random,seed=3,clock=wall"}
	require.NoError(t, runMatches(context.Background(), configs, opts, nimGame([]int{1, 2})))
	count, err := testutil.GatherAndCount(reg, "gts_match_results_total")
	require.NoError(t, err)
	assert.Positive(t, count)

	// Nim has no human player.
	configs[1] = "human"
	require.Error(t, runMatches(context.Background(), configs, opts, nimGame([]int{1, 2})))
}
