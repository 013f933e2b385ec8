package grader

import (
	"regexp"
	"strconv"
	"strings"
)

const resultsMarker = "RESULTS:"

var (
	resultsPair = regexp.MustCompile(`^\s*(\d+)/(\d+)\s*$`)
	outcomeLine = regexp.MustCompile(`^Test (\d+): (PASSED|FAILED|ERROR)(?: - (.*))?$`)
)

// Outcome statuses reported by the harness per test case.
const (
	OutcomePassed = "PASSED"
	OutcomeFailed = "FAILED"
	OutcomeError  = "ERROR"
)

// TestOutcome is the verdict line the harness printed for one test case.
type TestOutcome struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ParseResults reads the first line of stdout containing "RESULTS:" and returns
// its passed/total pair. A missing or malformed summary yields (0, fallbackTotal).
func ParseResults(stdout string, fallbackTotal int) (passed, total int) {
	for _, line := range strings.Split(stdout, "\n") {
		idx := strings.Index(line, resultsMarker)
		if idx < 0 {
			continue
		}

		m := resultsPair.FindStringSubmatch(line[idx+len(resultsMarker):])
		if m == nil {
			return 0, fallbackTotal
		}
		p, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fallbackTotal
		}
		t, err := strconv.Atoi(m[2])
		if err != nil || p > t {
			return 0, fallbackTotal
		}
		return p, t
	}
	return 0, fallbackTotal
}

// ParseOutcomes collects the per-test verdict lines in the order printed.
func ParseOutcomes(stdout string) []TestOutcome {
	var outcomes []TestOutcome
	for _, line := range strings.Split(stdout, "\n") {
		m := outcomeLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		outcomes = append(outcomes, TestOutcome{Index: index, Status: m[2], Detail: m[3]})
	}
	return outcomes
}
