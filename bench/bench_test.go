package bench

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
)

const testTableSize = 4099

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func TestParseTestSet(t *testing.T) {
	is := is.New(t)
	in := `# a comment

4455 2
  2252576253462244111563365343671351441 -1
7422341735647741166133573473242566
`
	cases, err := ParseTestSet(strings.NewReader(in))
	is.NoErr(err)
	is.Equal(len(cases), 3)
	is.Equal(cases[0], Case{Line: 3, Sequence: "4455", Expected: 2, HasExpected: true})
	is.Equal(cases[1].Expected, -1)
	is.Equal(cases[1].Line, 4)
	is.True(!cases[2].HasExpected)

	var buf bytes.Buffer
	is.NoErr(WriteTestSet(&buf, cases))
	again, err := ParseTestSet(&buf)
	is.NoErr(err)
	is.Equal(len(again), 3)
	is.Equal(again[1].Sequence, cases[1].Sequence)
}

func TestParseTestSetErrors(t *testing.T) {
	is := is.New(t)
	type testcase struct {
		in   string
		line int
	}
	cases := []testcase{
		{"4455 2 3\n", 1},
		{"44\n4a55\n", 2},
		{"4405\n", 1},
		{"# ok\n4455 two\n", 2},
	}
	for _, tc := range cases {
		_, err := ParseTestSet(strings.NewReader(tc.in))
		is.True(errors.Is(err, ErrMalformedLine))
		var le *LineError
		is.True(errors.As(err, &le))
		is.Equal(le.Line, tc.line)
	}
}

func smallCases(t *testing.T, d *board.Dims, n int) []Case {
	t.Helper()
	var cases []Case
	for len(cases) < n {
		seq := board.RandomSequence(d, 10)
		if len(seq) < 6 {
			continue
		}
		cases = append(cases, Case{Line: len(cases) + 1, Sequence: seq})
	}
	return cases
}

func TestRunnerAgreesAcrossWorkers(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	d := board.MustDims(5, 4)
	cases := smallCases(t, d, 40)

	single, err := NewRunner(WithTableSize(testTableSize)).Run(ctx, d, cases)
	is.NoErr(err)
	is.Equal(single.Workers, 1)

	// Feed the scores back as expectations.
	expected := make([]Case, len(cases))
	for i, res := range single.Results {
		expected[i] = cases[i]
		expected[i].Expected = res.Score
		expected[i].HasExpected = true
	}
	multi, err := NewRunner(WithWorkers(4), WithTableSize(testTableSize)).Run(ctx, d, expected)
	is.NoErr(err)
	is.Equal(multi.Workers, 4)
	is.Equal(len(multi.Mismatches()), 0)
	for i := range cases {
		is.Equal(multi.Results[i].Score, single.Results[i].Score)
		// tables are reset per case, so node counts match too
		is.Equal(multi.Results[i].Nodes, single.Results[i].Nodes)
	}
	is.Equal(multi.Micros.Count(), 40)
	is.Equal(multi.TotalNodes(), single.TotalNodes())
}

func TestRunnerMismatchAndInvalid(t *testing.T) {
	is := is.New(t)
	d := board.MustDims(4, 4)
	cases := []Case{
		// immediate win for the side to move, (16+1-6)/2
		{Line: 1, Sequence: "112233", Expected: 5, HasExpected: true},
		{Line: 2, Sequence: "112233", Expected: 0, HasExpected: true},
		// column 5 does not exist on this board
		{Line: 3, Sequence: "1125"},
	}
	report, err := NewRunner(WithWorkers(2), WithTableSize(testTableSize)).Run(context.Background(), d, cases)
	is.NoErr(err)
	is.Equal(len(report.Mismatches()), 1)
	is.Equal(report.Mismatches()[0].Line, 2)
	is.Equal(len(report.Invalid()), 1)
	is.Equal(report.Invalid()[0].Played, 3)
	is.Equal(len(report.Solved()), 2)

	summary := report.Summary()
	is.True(strings.Contains(summary, "2 solved, 1 invalid, 1 mismatched"))
}

func TestRunnerCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(WithTableSize(testTableSize)).Run(ctx, board.Standard, []Case{{Sequence: ""}})
	is.True(errors.Is(err, context.Canceled))
}

func TestRunnerWithBook(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	b, err := book.Open(ctx, filepath.Join(t.TempDir(), "book.db"))
	is.NoErr(err)
	defer b.Close()

	d := board.MustDims(5, 4)
	cases := smallCases(t, d, 5)
	r := NewRunner(WithWorkers(2), WithTableSize(testTableSize), WithBook(b))
	first, err := r.Run(ctx, d, cases)
	is.NoErr(err)
	second, err := r.Run(ctx, d, cases)
	is.NoErr(err)
	for i := range cases {
		is.True(second.Results[i].Cached)
		is.Equal(second.Results[i].Score, first.Results[i].Score)
		is.Equal(second.Results[i].Nodes, uint64(0))
	}
	n, err := b.Count(ctx)
	is.NoErr(err)
	// random sequences may repeat a position
	is.True(n >= 1 && n <= 5)
}

func TestReportOutput(t *testing.T) {
	is := is.New(t)
	d := board.MustDims(5, 4)
	report, err := NewRunner(WithTableSize(testTableSize)).Run(context.Background(), d, smallCases(t, d, 10))
	is.NoErr(err)

	var buf bytes.Buffer
	is.NoErr(report.WriteYAML(&buf))
	var parsed map[string]any
	is.NoErr(yaml.Unmarshal(buf.Bytes(), &parsed))
	is.Equal(parsed["solved"], 10)
	results, ok := parsed["results"].([]any)
	is.True(ok)
	is.Equal(len(results), 10)

	buf.Reset()
	is.NoErr(report.WriteHistogram(&buf))
	is.True(buf.Len() > 0)

	empty := NewReport(nil, 1, 0)
	buf.Reset()
	is.NoErr(empty.WriteHistogram(&buf))
	is.Equal(buf.String(), "no nodes searched\n")
	is.Equal(empty.NodesPerSecond(), 0.0)
}

func TestMaxWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, MaxWorkers(0.25, 1000), 1)
	// no memory to spare still leaves one worker
	assert.Equal(t, 1, MaxWorkers(0, 1000))
}
