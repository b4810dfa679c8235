package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether progress and timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where progress and timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// Printf prints to Output when Verbose is set.
func Printf(format string, args ...interface{}) {
	if !Verbose {
		return
	}
	fmt.Fprintf(Output, format, args...)
}

// TimingStats holds timing information for the optimization and
// certification stages.
type TimingStats struct {
	TotalTime       time.Duration
	DataLoadingTime time.Duration
	ModelInitTime   time.Duration
	BRETime         time.Duration
	ForwardPassTime time.Duration
	CouplingTime    time.Duration
	UpdateTime      time.Duration
	CertifyTime     time.Duration
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, steps int) {
	if !Verbose || steps <= 0 {
		return
	}
	pct := func(d time.Duration) float64 {
		if stats.TotalTime == 0 {
			return 0
		}
		return float64(d) / float64(stats.TotalTime) * 100
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Average time per step: %v\n", stats.TotalTime/time.Duration(steps))
	fmt.Fprintf(Output, "Steps completed: %d\n", steps)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.DataLoadingTime, pct(stats.DataLoadingTime))
	fmt.Fprintf(Output, "  Model initialization: %v (%.1f%%)\n", stats.ModelInitTime, pct(stats.ModelInitTime))
	fmt.Fprintf(Output, "  BRE term: %v (%.1f%%)\n", stats.BRETime, pct(stats.BRETime))
	fmt.Fprintf(Output, "  Sampled forward/backward: %v (%.1f%%)\n", stats.ForwardPassTime, pct(stats.ForwardPassTime))
	fmt.Fprintf(Output, "  Gradient coupling: %v (%.1f%%)\n", stats.CouplingTime, pct(stats.CouplingTime))
	fmt.Fprintf(Output, "  Optimizer updates: %v (%.1f%%)\n", stats.UpdateTime, pct(stats.UpdateTime))
	fmt.Fprintf(Output, "  Bound certification: %v (%.1f%%)\n", stats.CertifyTime, pct(stats.CertifyTime))
}
