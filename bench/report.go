package bench

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connect4/stats"
)

const (
	confidencePct = 95
	histogramBins = 12
)

// Report sums up a benchmark run. Only solved cases count towards the
// statistics.
type Report struct {
	Results []Result
	Workers int
	Elapsed time.Duration

	Micros stats.Running
	Nodes  stats.Running
}

func NewReport(results []Result, workers int, elapsed time.Duration) *Report {
	r := &Report{Results: results, Workers: workers, Elapsed: elapsed}
	for _, res := range r.Solved() {
		r.Micros.Push(float64(res.Duration.Microseconds()))
		r.Nodes.Push(float64(res.Nodes))
	}
	return r
}

// Solved returns the cases whose sequence could be played and were solved.
func (r *Report) Solved() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool {
		return !res.Invalid
	})
}

func (r *Report) Invalid() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool {
		return res.Invalid
	})
}

// Mismatches returns the cases whose score differs from the expected one.
func (r *Report) Mismatches() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool {
		return res.Mismatch
	})
}

func (r *Report) TotalNodes() uint64 {
	return lo.SumBy(r.Solved(), func(res Result) uint64 {
		return res.Nodes
	})
}

// NodesPerSecond is the search speed over the time spent solving.
func (r *Report) NodesPerSecond() float64 {
	solving := lo.SumBy(r.Solved(), func(res Result) time.Duration {
		return res.Duration
	})
	if solving <= 0 {
		return 0
	}
	return float64(r.TotalNodes()) / solving.Seconds()
}

// Summary is a few human-readable lines about the run.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cases: %d solved, %d invalid, %d mismatched (%d workers, %v)\n",
		r.Micros.Count(), len(r.Invalid()), len(r.Mismatches()), r.Workers,
		r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&sb, "mean time: %.1f ± %.1f µs (%d%% confidence), max %.0f µs\n",
		r.Micros.Mean(), r.Micros.ConfidenceInterval(confidencePct), confidencePct,
		r.Micros.Max())
	fmt.Fprintf(&sb, "mean nodes: %.1f ± %.1f, max %.0f\n",
		r.Nodes.Mean(), r.Nodes.ConfidenceInterval(confidencePct), r.Nodes.Max())
	fmt.Fprintf(&sb, "speed: %.1f K nodes/s\n", r.NodesPerSecond()/1000)
	return sb.String()
}

// WriteHistogram plots how many cases needed about 10^k nodes.
func (r *Report) WriteHistogram(w io.Writer) error {
	data := lo.FilterMap(r.Solved(), func(res Result, _ int) (float64, bool) {
		return math.Log10(float64(res.Nodes)), res.Nodes > 0
	})
	if len(data) == 0 {
		_, err := io.WriteString(w, "no nodes searched\n")
		return err
	}
	if lo.Min(data) == lo.Max(data) {
		_, err := fmt.Fprintf(w, "all %d cases searched 10^%.1f nodes\n", len(data), data[0])
		return err
	}
	h := histogram.Hist(histogramBins, data)
	return histogram.Fprintf(w, h, histogram.Linear(40), func(v float64) string {
		return fmt.Sprintf("10^%.1f", v)
	})
}

type yamlReport struct {
	Workers        int      `yaml:"workers"`
	ElapsedSec     float64  `yaml:"elapsed_sec"`
	Solved         int      `yaml:"solved"`
	Invalid        int      `yaml:"invalid"`
	Mismatches     int      `yaml:"mismatches"`
	MeanMicros     float64  `yaml:"mean_us"`
	MicrosCI       float64  `yaml:"mean_us_ci95"`
	MeanNodes      float64  `yaml:"mean_nodes"`
	NodesPerSecond float64  `yaml:"nodes_per_second"`
	Results        []Result `yaml:"results"`
}

// WriteYAML writes the summary numbers and every result.
func (r *Report) WriteYAML(w io.Writer) error {
	out, err := yaml.Marshal(yamlReport{
		Workers:        r.Workers,
		ElapsedSec:     r.Elapsed.Seconds(),
		Solved:         r.Micros.Count(),
		Invalid:        len(r.Invalid()),
		Mismatches:     len(r.Mismatches()),
		MeanMicros:     r.Micros.Mean(),
		MicrosCI:       r.Micros.ConfidenceInterval(confidencePct),
		MeanNodes:      r.Nodes.Mean(),
		NodesPerSecond: r.NodesPerSecond(),
		Results:        r.Results,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
