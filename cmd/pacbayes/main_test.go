package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pacbayes_lib/data"
	"pacbayes_lib/nn"
	"pacbayes_lib/report"
	"pacbayes_lib/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMNIST writes n rows of "digit,pixels..." where the digit is ≥ 5
// exactly when the first pixel is bright.
func writeMNIST(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		digit, first := 1, 0
		if i%2 == 0 {
			digit, first = 7, 255
		}
		fmt.Fprintf(&b, "%d,%d", digit, first)
		for j := 1; j < utils.InputSize; j++ {
			fmt.Fprintf(&b, ",%d", (i*j)%3)
		}
		b.WriteString("\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func setup(t *testing.T) (*utils.Config, paths) {
	t.Helper()
	dir := t.TempDir()
	p := paths{
		Train:     filepath.Join(dir, "train.csv"),
		Test:      filepath.Join(dir, "test.csv"),
		Format:    data.FormatMNIST,
		Weights:   filepath.Join(dir, "T-3.json"),
		Solutions: filepath.Join(dir, "PAC_solutions"),
		Results:   filepath.Join(dir, "final_results"),
		History:   filepath.Join(dir, "history.sqlite3"),
	}
	writeMNIST(t, p.Train, 12)
	writeMNIST(t, p.Test, 6)

	cfg, err := utils.DefaultConfig("T-3")
	require.NoError(t, err)
	cfg.Epochs = 2
	cfg.BatchSize = 4
	cfg.MCSamples = 5
	cfg.Workers = 2
	cfg.LRDropEpoch = 2
	cfg.DataSize = 0

	net, err := nn.NewMLP(cfg.Architecture, "ReLU", 3)
	require.NoError(t, err)
	require.NoError(t, utils.SaveWeights(p.Weights, net.Checkpoint()))
	return cfg, p
}

func TestRunEndToEnd(t *testing.T) {
	utils.Verbose = false
	defer func() { utils.Verbose = true }()
	cfg, p := setup(t)

	bound, err := run(context.Background(), cfg, p, "rmsprop", false)
	require.NoError(t, err)
	assert.Equal(t, "T-3", bound.Model)
	assert.Equal(t, 12, cfg.DataSize)
	assert.True(t, bound.SNNTrainError > 0 && bound.SNNTrainError <= 1)
	assert.GreaterOrEqual(t, bound.PACBound, bound.SNNTrainError)

	raw, err := os.ReadFile(report.ResultsPath(p.Results, "T-3"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "Model;SNN_Train_Error;PAC-bayes bound;SNN_TEST_Error;KL_Divergence\n"))
	_, err = os.Stat(report.SeriesPath(p.Results, "T-3"))
	assert.NoError(t, err)

	mean, sigma, _, err := utils.LoadPosterior(p.Solutions, "T-3")
	require.NoError(t, err)
	assert.Len(t, mean, len(sigma))

	h, err := report.OpenHistory(p.History)
	require.NoError(t, err)
	defer h.Close()
	runs, err := h.List("T-3")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	// certifying the saved posterior reproduces the bound
	again, err := run(context.Background(), cfg, p, "rmsprop", true)
	require.NoError(t, err)
	assert.Equal(t, bound.PACBound, again.PACBound)
	assert.Equal(t, bound.SNNTestError, again.SNNTestError)
	assert.Equal(t, bound.KL, again.KL)
}

func TestRunMissingCheckpoint(t *testing.T) {
	utils.Verbose = false
	defer func() { utils.Verbose = true }()
	cfg, p := setup(t)
	require.NoError(t, os.Remove(p.Weights))

	_, err := run(context.Background(), cfg, p, "rmsprop", false)
	var missing *utils.MissingArtifactError
	require.True(t, errors.As(err, &missing), "got %v", err)
	_, statErr := os.Stat(report.ResultsPath(p.Results, "T-3"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDomainErrorKeepsOldResults(t *testing.T) {
	utils.Verbose = false
	defer func() { utils.Verbose = true }()
	cfg, p := setup(t)
	require.NoError(t, os.MkdirAll(p.Results, 0755))
	old := []byte("previous results\n")
	require.NoError(t, os.WriteFile(report.ResultsPath(p.Results, "T-3"), old, 0644))

	cfg.LambdaInit = 5 // prior variance clamps to the ceiling
	_, err := run(context.Background(), cfg, p, "rmsprop", false)
	var numErr *utils.NumericDomainError
	require.True(t, errors.As(err, &numErr), "got %v", err)

	raw, err := os.ReadFile(report.ResultsPath(p.Results, "T-3"))
	require.NoError(t, err)
	assert.Equal(t, old, raw)
}

func TestNewOptimizer(t *testing.T) {
	cfg, err := utils.DefaultConfig("T-600")
	require.NoError(t, err)
	opt, err := newOptimizer("rmsprop", cfg)
	require.NoError(t, err)
	assert.Equal(t, "RMSprop", opt.Name())
	opt, err = newOptimizer("sgd", cfg)
	require.NoError(t, err)
	assert.Equal(t, "SGD", opt.Name())
	_, err = newOptimizer("adam", cfg)
	assert.Error(t, err)
}
