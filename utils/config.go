package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Input and output sizes of the binary MNIST classifier.
const (
	InputSize  = 784
	NumClasses = 2
)

// Config holds the PAC-Bayes optimization and certification configuration.
type Config struct {
	Model        string
	Architecture []int
	RandomLabels bool

	TrainFile string
	TestFile  string
	BatchSize int

	Epochs       int
	LearningRate float64
	LRDropEpoch  int // 0 disables the drop
	LRDropFactor float64
	Alpha        float64 // RMSprop smoothing constant
	Momentum     float64

	ConfParam  float64 // δ
	Precision  float64 // P
	Bound      float64 // prior variance ceiling
	DataSize   int     // m
	LambdaInit float64

	MCSamples  int     // N
	DeltaPrime float64 // δ'
	Workers    int

	Seed int64
}

// ParseModelName splits a model identifier such as "T-600" or "R2-1200"
// into its regime (T: true labels, R: random labels), number of hidden
// layers and hidden width.
func ParseModelName(name string) (randomLabels bool, nbLayers, hidden int, err error) {
	if len(name) < 3 {
		return false, 0, 0, configErr("model", "%q is too short", name)
	}
	switch name[0] {
	case 'T':
	case 'R':
		randomLabels = true
	default:
		return false, 0, 0, configErr("model", "%q must start with T or R", name)
	}
	nbLayers = 1
	widthStr := name[2:]
	if name[1] != '-' {
		nbLayers, err = strconv.Atoi(name[1:2])
		if err != nil || len(name) < 4 || name[2] != '-' {
			return false, 0, 0, configErr("model", "%q is not of the form X[n]-width", name)
		}
		widthStr = name[3:]
	}
	hidden, err = strconv.Atoi(widthStr)
	if err != nil {
		return false, 0, 0, configErr("model", "bad hidden width in %q: %v", name, err)
	}
	return randomLabels, nbLayers, hidden, nil
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		arch[i] = n
	}
	return arch, nil
}

// DefaultConfig returns the reference hyperparameters for a model name.
// True-label models run 4 epochs at 1e-3 with a tenfold drop at epoch 4;
// random-label models run 8 epochs at 1e-4 with no drop.
func DefaultConfig(model string) (*Config, error) {
	random, nbLayers, hidden, err := ParseModelName(model)
	if err != nil {
		return nil, err
	}
	arch := []int{InputSize}
	for i := 0; i < nbLayers; i++ {
		arch = append(arch, hidden)
	}
	arch = append(arch, NumClasses)

	c := &Config{
		Model:        model,
		Architecture: arch,
		RandomLabels: random,
		BatchSize:    1,
		LRDropFactor: 10,
		Alpha:        0.9,
		ConfParam:    0.025,
		Precision:    100,
		Bound:        0.1,
		DataSize:     55000,
		LambdaInit:   -3,
		MCSamples:    150000,
		DeltaPrime:   0.01,
		Workers:      1,
		Seed:         42,
	}
	if random {
		c.LearningRate = 0.0001
		c.Epochs = 8
	} else {
		c.LearningRate = 0.001
		c.Epochs = 4
		c.LRDropEpoch = 4
	}
	return c, nil
}

// ValidateConfig checks basic range sanity of the configuration.
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return configErr("architecture", "must have at least 2 layers (input and output)")
	}
	if config.Architecture[len(config.Architecture)-1] != NumClasses {
		return configErr("architecture", "output layer must have %d classes, got %d",
			NumClasses, config.Architecture[len(config.Architecture)-1])
	}
	if config.BatchSize <= 0 {
		return configErr("batch_size", "must be positive, got %d", config.BatchSize)
	}
	if config.Epochs <= 0 {
		return configErr("epochs", "must be positive, got %d", config.Epochs)
	}
	if config.LearningRate <= 0 {
		return configErr("lr", "must be positive, got %g", config.LearningRate)
	}
	if config.LRDropEpoch > 0 && config.LRDropFactor <= 0 {
		return configErr("lr_drop_factor", "must be positive, got %g", config.LRDropFactor)
	}
	if config.Alpha < 0 || config.Alpha >= 1 {
		return configErr("alpha", "must be in [0,1), got %g", config.Alpha)
	}
	if config.Momentum < 0 || config.Momentum >= 1 {
		return configErr("momentum", "must be in [0,1), got %g", config.Momentum)
	}
	if err := ValidateBoundParams(config.ConfParam, config.Precision, config.Bound, config.DataSize); err != nil {
		return err
	}
	if config.MCSamples <= 0 {
		return configErr("mc_samples", "must be positive, got %d", config.MCSamples)
	}
	if config.DeltaPrime <= 0 || config.DeltaPrime >= 1 {
		return configErr("delta_prime", "must be in (0,1), got %g", config.DeltaPrime)
	}
	if config.Workers <= 0 {
		return configErr("workers", "must be positive, got %d", config.Workers)
	}
	return nil
}

// ValidateBoundParams checks the hyperparameters entering the BRE term.
func ValidateBoundParams(confParam, precision, bound float64, dataSize int) error {
	if confParam <= 0 || confParam >= 1 {
		return configErr("conf_param", "must be in (0,1), got %g", confParam)
	}
	if precision <= 0 {
		return configErr("precision", "must be positive, got %g", precision)
	}
	if bound <= 0 {
		return configErr("bound", "must be positive, got %g", bound)
	}
	if dataSize < 2 {
		return configErr("data_size", "must be at least 2, got %d", dataSize)
	}
	return nil
}

// String renders the configuration the way the trainer prints it.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Model:         %s\n", c.Model)
	fmt.Fprintf(&b, "  Architecture:  %v\n", c.Architecture)
	fmt.Fprintf(&b, "  Random labels: %v\n", c.RandomLabels)
	fmt.Fprintf(&b, "  Epochs:        %d\n", c.Epochs)
	fmt.Fprintf(&b, "  Learning Rate: %g\n", c.LearningRate)
	fmt.Fprintf(&b, "  δ / P / bound: %g / %g / %g\n", c.ConfParam, c.Precision, c.Bound)
	fmt.Fprintf(&b, "  m:             %d\n", c.DataSize)
	fmt.Fprintf(&b, "  MC samples:    %d (δ' = %g)\n", c.MCSamples, c.DeltaPrime)
	return b.String()
}
