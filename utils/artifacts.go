package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Artifact suffixes for the three learned parameter blocks.
const (
	MeanArtifact   = "_BRE_flat_params.bin"
	SigmaArtifact  = "_BRE_sigma_posterior.bin"
	LambdaArtifact = "_BRE_lambda_prior.bin"
)

// SaveVector writes v in gonum's binary vector encoding.
func SaveVector(path string, v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("refusing to save empty vector to %s", path)
	}
	data, err := mat.NewVecDense(len(v), append([]float64(nil), v...)).MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return WriteFileAtomic(path, data)
}

// LoadVector reads a vector written by SaveVector.
func LoadVector(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingArtifactError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	var v mat.VecDense
	if err := v.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out, nil
}

// SavePosterior writes the learned posterior mean, posterior log-std and
// prior log-std, one artifact each, under dir.
func SavePosterior(dir, model string, mean, sigmaRaw []float64, lambdaRaw float64) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := SaveVector(filepath.Join(dir, model+MeanArtifact), mean); err != nil {
		return err
	}
	if err := SaveVector(filepath.Join(dir, model+SigmaArtifact), sigmaRaw); err != nil {
		return err
	}
	return SaveVector(filepath.Join(dir, model+LambdaArtifact), []float64{lambdaRaw})
}

// LoadPosterior reads the artifacts written by SavePosterior.
func LoadPosterior(dir, model string) (mean, sigmaRaw []float64, lambdaRaw float64, err error) {
	if mean, err = LoadVector(filepath.Join(dir, model+MeanArtifact)); err != nil {
		return nil, nil, 0, err
	}
	if sigmaRaw, err = LoadVector(filepath.Join(dir, model+SigmaArtifact)); err != nil {
		return nil, nil, 0, err
	}
	if len(mean) != len(sigmaRaw) {
		return nil, nil, 0, configErr("posterior", "mean has %d entries, sigma has %d", len(mean), len(sigmaRaw))
	}
	lam, err := LoadVector(filepath.Join(dir, model+LambdaArtifact))
	if err != nil {
		return nil, nil, 0, err
	}
	if len(lam) != 1 {
		return nil, nil, 0, configErr("posterior", "lambda artifact has %d entries", len(lam))
	}
	return mean, sigmaRaw, lam[0], nil
}
