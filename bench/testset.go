// Package bench solves batches of positions and reports how long the solver
// took on them.
package bench

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrMalformedLine = errors.New("malformed test set line")

// LineError describes a test set line that could not be parsed.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

func (e *LineError) Unwrap() error {
	return ErrMalformedLine
}

// Case is a position to solve, given as a move sequence, along with the
// score it is expected to have if the test set says so.
type Case struct {
	Line        int    `yaml:"line"`
	Sequence    string `yaml:"sequence"`
	Expected    int    `yaml:"expected"`
	HasExpected bool   `yaml:"has_expected"`
}

// ParseTestSet reads one case per line: a move sequence, optionally followed
// by its expected score. Blank lines and lines starting with # are skipped.
func ParseTestSet(r io.Reader) ([]Case, error) {
	var cases []Case
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) > 2 {
			return nil, &LineError{Line: lineNo, Text: text, Reason: "too many fields"}
		}
		c := Case{Line: lineNo, Sequence: fields[0]}
		for _, ch := range c.Sequence {
			if ch < '1' || ch > '9' {
				return nil, &LineError{Line: lineNo, Text: text, Reason: "sequence must be column digits 1-9"}
			}
		}
		if len(fields) == 2 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, &LineError{Line: lineNo, Text: text, Reason: "expected score is not an integer"}
			}
			c.Expected = v
			c.HasExpected = true
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

// WriteTestSet writes cases in the format ParseTestSet reads.
func WriteTestSet(w io.Writer, cases []Case) error {
	for _, c := range cases {
		var err error
		if c.HasExpected {
			_, err = fmt.Fprintf(w, "%s %d\n", c.Sequence, c.Expected)
		} else {
			_, err = fmt.Fprintln(w, c.Sequence)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
