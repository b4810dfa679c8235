// Package report writes the certified bound and the per-epoch series.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"

	"pacbayes_lib/pacbayes"
	"pacbayes_lib/train"
	"pacbayes_lib/utils"
)

// ResultsHeader is the fixed header of the results file.
var ResultsHeader = []string{"Model", "SNN_Train_Error", "PAC-bayes bound", "SNN_TEST_Error", "KL_Divergence"}

// SeriesHeader names the columns of the per-epoch series file.
var SeriesHeader = []string{"Epoch", "BRE_loss", "KL_value", "NN_loss", "norm_flat_params", "norm_sigma_posterior", "abs_lambda_prior", "lr"}

// ResultsPath is <dir>/<model>_.csv.
func ResultsPath(dir, model string) string {
	return filepath.Join(dir, model+"_.csv")
}

// SeriesPath is <dir>/<model>_series.csv.
func SeriesPath(dir, model string) string {
	return filepath.Join(dir, model+"_series.csv")
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func encode(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteResults writes the header and one row for b. The file is replaced
// atomically, so an earlier results file survives a failed write.
func WriteResults(path string, b *pacbayes.Bound) error {
	data, err := encode([][]string{
		ResultsHeader,
		{b.Model, ftoa(b.SNNTrainError), ftoa(b.PACBound), ftoa(b.SNNTestError), ftoa(b.KL)},
	})
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, data)
}

// WriteSeries writes one row per epoch for external plotting.
func WriteSeries(path string, stats []train.EpochStats) error {
	rows := [][]string{SeriesHeader}
	for _, s := range stats {
		rows = append(rows, []string{
			strconv.Itoa(s.Epoch), ftoa(s.BRELoss), ftoa(s.KL), ftoa(s.NNLoss),
			ftoa(s.NormMean), ftoa(s.NormSigma), ftoa(s.AbsLambda), ftoa(s.LR),
		})
	}
	data, err := encode(rows)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, data)
}
