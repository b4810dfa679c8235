// pacbayes: PAC-Bayes bound optimizer and certifier for binary MNIST MLPs
//
// Usage:
//
//	pacbayes -model=T-600 -train=data/mnist_train.csv -test=data/mnist_test.csv
//
// The point-estimate checkpoint is read from <weights>/<model>.json. The
// learned posterior is written to <solutions>/, the certified bound to
// <results>/<model>_.csv.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"pacbayes_lib/data"
	"pacbayes_lib/nn"
	"pacbayes_lib/pacbayes"
	"pacbayes_lib/report"
	"pacbayes_lib/train"
	"pacbayes_lib/utils"
)

var (
	modelName    = flag.String("model", "T-600", "Model name: T|R[layers]-hidden, e.g. T-600, R2-1200")
	trainFile    = flag.String("train", "data/mnist_train.csv", "MNIST training set (CSV)")
	testFile     = flag.String("test", "data/mnist_test.csv", "MNIST test set (CSV)")
	format       = flag.String("format", data.FormatMNIST, "Input format: mnist, plain")
	arch         = flag.String("arch", "", "Override architecture, e.g. 784,600,2")
	weightsDir   = flag.String("weights", "SGD_solutions", "Directory of point-estimate checkpoints")
	solutionsDir = flag.String("solutions", "PAC_solutions", "Directory for posterior artifacts")
	resultsDir   = flag.String("results", "final_results", "Directory for results and series")
	historyFile  = flag.String("history", "", "SQLite run history (default <results>/history.sqlite3, \"-\" disables)")
	epochs       = flag.Int("epochs", 0, "Override number of epochs")
	learningRate = flag.Float64("lr", 0, "Override learning rate")
	batchSize    = flag.Int("batch", 0, "Override batch size")
	dataSize     = flag.Int("m", 0, "Override data size m (default: training set size)")
	mcSamples    = flag.Int("mc", 0, "Override number of Monte Carlo samples")
	workers      = flag.Int("workers", 1, "Monte Carlo workers")
	optimizer    = flag.String("optimizer", "rmsprop", "Optimizer: rmsprop, sgd")
	certifyOnly  = flag.Bool("certify-only", false, "Skip optimization and certify saved posterior artifacts")
	verbose      = flag.Bool("verbose", true, "Verbose output")
	seed         = flag.Int64("seed", 42, "Random seed")
)

// paths groups the file locations of one run.
type paths struct {
	Train, Test string
	Format      string
	Weights     string
	Solutions   string
	Results     string
	History     string
}

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	cfg, err := utils.DefaultConfig(*modelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	cfg.TrainFile, cfg.TestFile = *trainFile, *testFile
	cfg.Workers = *workers
	cfg.Seed = *seed
	if *epochs > 0 {
		cfg.Epochs = *epochs
	}
	if *learningRate > 0 {
		cfg.LearningRate = *learningRate
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *mcSamples > 0 {
		cfg.MCSamples = *mcSamples
	}
	cfg.DataSize = *dataSize
	if *arch != "" {
		a, err := utils.ParseArchitecture(*arch)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		cfg.Architecture = a
	}

	p := paths{
		Train:     *trainFile,
		Test:      *testFile,
		Format:    *format,
		Weights:   filepath.Join(*weightsDir, cfg.Model+".json"),
		Solutions: *solutionsDir,
		Results:   *resultsDir,
		History:   *historyFile,
	}
	if p.History == "" {
		p.History = filepath.Join(*resultsDir, "history.sqlite3")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  PAC-Bayes Bound Optimizer                   ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")

	bound, err := run(ctx, cfg, p, *optimizer, *certifyOnly)
	if err != nil {
		var missing *utils.MissingArtifactError
		if errors.As(err, &missing) {
			fmt.Fprintf(os.Stderr, "Network not yet trained: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Printf("\n %s\n", bound)
}

// run executes load → optimize → certify → report and returns the
// certified bound. Nothing is written to the results file unless the
// whole pipeline succeeds.
func run(ctx context.Context, cfg *utils.Config, p paths, optName string, certifyOnly bool) (*pacbayes.Bound, error) {
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	if len(cfg.Architecture) < 2 {
		return nil, &utils.ConfigurationError{Field: "architecture", Reason: fmt.Sprintf("need input and output widths, got %v", cfg.Architecture)}
	}
	trainLines, err := data.LoadFile(p.Train, p.Format, cfg.Architecture[0])
	if err != nil {
		return nil, fmt.Errorf("load training set: %w", err)
	}
	testLines, err := data.LoadFile(p.Test, p.Format, cfg.Architecture[0])
	if err != nil {
		return nil, fmt.Errorf("load test set: %w", err)
	}
	if cfg.RandomLabels {
		trainLines = data.RandomizeLabels(trainLines, utils.NumClasses, uint64(cfg.Seed))
		testLines = data.RandomizeLabels(testLines, utils.NumClasses, uint64(cfg.Seed)+1)
	}
	if cfg.DataSize <= 0 {
		cfg.DataSize = len(trainLines)
	}
	trainSet, err := data.NewDataset(trainLines, cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("training set: %w", err)
	}
	// evaluation batches do not affect the result, only speed
	trainEval, err := data.NewDataset(trainLines, 1000)
	if err != nil {
		return nil, err
	}
	testEval, err := data.NewDataset(testLines, 1000)
	if err != nil {
		return nil, fmt.Errorf("test set: %w", err)
	}
	stats.DataLoadingTime = time.Since(start)

	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	utils.Printf("\nConfiguration:\n%s\n", cfg)

	start = time.Now()
	net, err := nn.NewMLP(cfg.Architecture, "ReLU", uint64(cfg.Seed))
	if err != nil {
		return nil, err
	}
	mw, err := utils.LoadWeights(p.Weights)
	if err != nil {
		return nil, err
	}
	if err := net.LoadCheckpoint(mw); err != nil {
		return nil, fmt.Errorf("load %s: %w", p.Weights, err)
	}
	post, err := pacbayes.NewPosterior(net.Weights(), cfg.LambdaInit)
	if err != nil {
		return nil, err
	}
	bre, err := pacbayes.NewBRE(cfg.Precision, cfg.ConfParam, cfg.Bound, cfg.DataSize)
	if err != nil {
		return nil, err
	}
	stats.ModelInitTime = time.Since(start)
	utils.Printf("Model: %v, %d parameters\n", cfg.Architecture, net.NumParams())

	if err := os.MkdirAll(p.Results, 0755); err != nil {
		return nil, err
	}
	var series []train.EpochStats
	if certifyOnly {
		mean, sigmaRaw, lambdaRaw, err := utils.LoadPosterior(p.Solutions, cfg.Model)
		if err != nil {
			return nil, err
		}
		post.Mean, post.SigmaRaw, post.LambdaRaw = mean, sigmaRaw, lambdaRaw
		if err := post.Validate(); err != nil {
			return nil, err
		}
	} else {
		eval, err := pacbayes.NewStochasticEvaluator(net, uint64(cfg.Seed))
		if err != nil {
			return nil, err
		}
		opt, err := newOptimizer(optName, cfg)
		if err != nil {
			return nil, err
		}
		orch := &train.Orchestrator{
			BRE:       bre,
			Evaluator: eval,
			Optimizer: opt,
			Scheduler: train.SchedulerFor(cfg.LearningRate, cfg.LRDropEpoch, cfg.LRDropFactor),
			Epochs:    cfg.Epochs,
			Timing:    stats,
		}
		utils.Printf("==> Starting PAC-Bayes bound optimization (%s, %s)\n", opt.Name(), orch.Scheduler.Name())
		optStart := time.Now()
		series, err = orch.Run(post, trainSet)
		if len(series) > 0 {
			if werr := report.WriteSeries(report.SeriesPath(p.Results, cfg.Model), series); werr != nil {
				utils.Printf("warning: could not write series: %v\n", werr)
			}
		}
		if err != nil {
			return nil, err
		}
		utils.Printf("\n==> Optimization done\nComputation time is %v\n", time.Since(optStart))

		utils.Printf("\n==> Saving Parameters...\n")
		if err := utils.SavePosterior(p.Solutions, cfg.Model, post.Mean, post.SigmaRaw, post.LambdaRaw); err != nil {
			return nil, fmt.Errorf("save posterior: %w", err)
		}
	}

	utils.Printf("\n==> Calculating SNN train error, SNN test error and PAC-Bayes bound\n")
	start = time.Now()
	mc := &pacbayes.MonteCarloEstimator{
		Samples:    cfg.MCSamples,
		DeltaPrime: cfg.DeltaPrime,
		Seed:       uint64(cfg.Seed),
		Workers:    cfg.Workers,
	}
	bound, err := mc.Certify(ctx, cfg.Model, net, post, bre, trainEval, testEval)
	if err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}
	stats.CertifyTime = time.Since(start)

	if err := report.WriteResults(report.ResultsPath(p.Results, cfg.Model), bound); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}
	if p.History != "-" {
		if err := record(p.History, bound, cfg); err != nil {
			utils.Printf("warning: %v\n", err)
		}
	}

	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, cfg.Epochs*trainSet.NumBatches())
	return bound, nil
}

func newOptimizer(name string, cfg *utils.Config) (train.Optimizer, error) {
	switch name {
	case "rmsprop":
		return train.NewRMSprop(cfg.Alpha, 1e-8, cfg.Momentum), nil
	case "sgd":
		return train.NewSGD(cfg.Momentum), nil
	}
	return nil, &utils.ConfigurationError{Field: "optimizer", Reason: fmt.Sprintf("unknown optimizer %q", name)}
}

func record(path string, b *pacbayes.Bound, cfg *utils.Config) error {
	h, err := report.OpenHistory(path)
	if err != nil {
		return err
	}
	defer h.Close()
	id, err := h.Record(b, cfg.Epochs, cfg.MCSamples)
	if err != nil {
		return err
	}
	utils.Printf("Recorded run %s in %s\n", id, path)
	return nil
}
