package grader

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/pkg/sandbox"
)

// eslintPenaltyCount stands in for both error and warning counts when the
// ESLint report cannot be read.
const eslintPenaltyCount = 10

var pylintRating = regexp.MustCompile(`rated at ([\d.]+)/10`)

// StyleReport is the linter verdict for a submission.
type StyleReport struct {
	Score    float64
	Feedback string
}

// Analyzer runs the per-language linter over the raw submission.
type Analyzer struct {
	workspace *sandbox.Workspace
	runner    sandbox.Runner
	toolchain Toolchain
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewAnalyzer constructs a static analysis runner.
func NewAnalyzer(workspace *sandbox.Workspace, runner sandbox.Runner, toolchain Toolchain, timeout time.Duration, logger zerolog.Logger) *Analyzer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Analyzer{
		workspace: workspace,
		runner:    runner,
		toolchain: toolchain,
		timeout:   timeout,
		logger:    logger.With().Str("component", "style_analyzer").Logger(),
	}
}

// Analyze lints code and scores it from 0 to 10. Linter faults are logged and
// reported as a zero score with empty feedback; they never fail the caller.
func (a *Analyzer) Analyze(ctx context.Context, code string, lang Language) StyleReport {
	file, err := a.workspace.Acquire(code, lang.Suffix())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to prepare lint workspace")
		return StyleReport{}
	}
	defer file.Release()

	args, err := a.toolchain.LintArgs(lang, file.Path())
	if err != nil {
		a.logger.Warn().Err(err).Str("language", string(lang)).Msg("no linter for language")
		return StyleReport{}
	}

	result, err := a.runner.Run(ctx, sandbox.Command{
		Args:    args,
		Image:   a.toolchain.LintImage(lang),
		Mount:   file.Dir(),
		Timeout: a.timeout,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("language", string(lang)).Msg("linter run failed")
		return StyleReport{}
	}

	switch lang {
	case Python:
		return StyleReport{Score: PylintScore(result.Stdout), Feedback: result.Stdout}
	case JavaScript:
		return StyleReport{Score: ESLintScore(result.Stdout), Feedback: result.Stdout}
	}
	return StyleReport{}
}

// PylintScore extracts the "rated at X/10" score; no rating means 0.
func PylintScore(output string) float64 {
	m := pylintRating.FindStringSubmatch(output)
	if m == nil {
		return 0
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return math.Min(score, 10)
}

type eslintReport struct {
	Messages []struct {
		Severity int `json:"severity"`
	} `json:"messages"`
}

// ESLintScore derives a score from an ESLint JSON report:
// 10 - 1.5 per error - 0.5 per warning, floored at 0 and rounded to 2 decimals.
func ESLintScore(output string) float64 {
	errorCount, warningCount := eslintPenaltyCount, eslintPenaltyCount

	var reports []eslintReport
	if err := json.Unmarshal([]byte(output), &reports); err == nil && len(reports) > 0 {
		errorCount, warningCount = 0, 0
		for _, msg := range reports[0].Messages {
			switch msg.Severity {
			case 2:
				errorCount++
			case 1:
				warningCount++
			}
		}
	}

	score := math.Max(0, 10-1.5*float64(errorCount)-0.5*float64(warningCount))
	return math.Round(score*100) / 100
}
