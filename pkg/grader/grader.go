package grader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/codesnap-api/pkg/sandbox"
)

var (
	gradingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesnap",
		Subsystem: "grader",
		Name:      "gradings_total",
		Help:      "Number of completed gradings by language and star rating",
	}, []string{"language", "stars"})

	gradingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codesnap",
		Subsystem: "grader",
		Name:      "grading_duration_seconds",
		Help:      "Wall-clock duration of a full grading",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"language"})
)

var errIncompleteGrading = errors.New("grading aggregated before tests and style analysis completed")

// Stage is a step of a grading run.
type Stage int

// Grading stages. TestsRun and StyleAnalyzed may complete in either order.
const (
	StageCreated Stage = iota
	StageTestsRun
	StageStyleAnalyzed
	StageAggregated
)

func (s Stage) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageTestsRun:
		return "tests_run"
	case StageStyleAnalyzed:
		return "style_analyzed"
	case StageAggregated:
		return "aggregated"
	}
	return "unknown"
}

// Submission is the input of a grading run.
type Submission struct {
	Code         string
	Language     Language
	FunctionName string
	TestCases    []TestCase
}

// Result is the complete verdict of a grading run.
type Result struct {
	TestPassRate float64       `json:"test_pass_rate"`
	StyleScore   float64       `json:"style_score"`
	Stars        int           `json:"stars"`
	Feedback     string        `json:"feedback"`
	TestsPassed  int           `json:"tests_passed"`
	TestsTotal   int           `json:"tests_total"`
	Tests        []TestOutcome `json:"tests"`
	TimedOut     bool          `json:"timed_out"`
}

// Config groups grader budgets.
type Config struct {
	ExecutionTimeout time.Duration
}

type testRun struct {
	passed   int
	total    int
	outcomes []TestOutcome
	timedOut bool
}

// Grader runs a submission's tests and style analysis and combines them into a Result.
type Grader struct {
	workspace *sandbox.Workspace
	runner    sandbox.Runner
	analyzer  *Analyzer
	generator *Generator
	toolchain Toolchain
	cfg       Config
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// New constructs a grader. All collaborators are created once at startup and shared across requests.
func New(workspace *sandbox.Workspace, runner sandbox.Runner, analyzer *Analyzer, toolchain Toolchain, cfg Config, logger zerolog.Logger) *Grader {
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 5 * time.Second
	}
	return &Grader{
		workspace: workspace,
		runner:    runner,
		analyzer:  analyzer,
		generator: NewGenerator(),
		toolchain: toolchain,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/noah-isme/codesnap-api/pkg/grader"),
		logger:    logger.With().Str("component", "grader").Logger(),
	}
}

// Grade runs the submission against its test cases and lints it. Only
// configuration problems (language, function name, test case shape) are
// returned as errors; crashes, timeouts and linter faults are part of the Result.
func (g *Grader) Grade(parent context.Context, sub Submission) (Result, error) {
	if sub.Language.Suffix() == "" {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, sub.Language)
	}

	harness, err := g.generator.Generate(sub.Code, sub.Language, sub.FunctionName, sub.TestCases)
	if err != nil {
		return Result{}, err
	}

	ctx, span := g.tracer.Start(parent, "grader.grade", trace.WithAttributes(
		attribute.String("grader.language", string(sub.Language)),
		attribute.Int("grader.test_cases", len(sub.TestCases)),
	))
	defer span.End()

	start := time.Now()
	progress := newProgress()

	// Run and lint failures are folded into the result. Only cancellation of
	// the caller's context aborts the grading, so an abandoned request is not
	// scored as all tests failed.
	var (
		tests testRun
		style StyleReport
		group errgroup.Group
	)
	group.Go(func() error {
		tests = g.runTests(ctx, sub.Language, harness, len(sub.TestCases))
		progress.complete(StageTestsRun)
		return ctx.Err()
	})
	group.Go(func() error {
		style = g.analyzer.Analyze(ctx, sub.Code, sub.Language)
		progress.complete(StageStyleAnalyzed)
		return ctx.Err()
	})
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("grading interrupted: %w", err)
	}

	result, err := aggregate(progress, tests, style)
	if err != nil {
		return Result{}, err
	}

	gradingDuration.WithLabelValues(string(sub.Language)).Observe(time.Since(start).Seconds())
	gradingsTotal.WithLabelValues(string(sub.Language), strconv.Itoa(result.Stars)).Inc()
	span.SetAttributes(
		attribute.Int("grader.tests_passed", result.TestsPassed),
		attribute.Int("grader.stars", result.Stars),
	)
	g.logger.Debug().
		Str("language", string(sub.Language)).
		Int("tests_passed", result.TestsPassed).
		Int("tests_total", result.TestsTotal).
		Float64("style_score", result.StyleScore).
		Int("stars", result.Stars).
		Dur("duration", time.Since(start)).
		Msg("grading aggregated")

	return result, nil
}

func (g *Grader) runTests(ctx context.Context, lang Language, harness string, caseCount int) testRun {
	failed := testRun{total: caseCount}

	file, err := g.workspace.Acquire(harness, lang.Suffix())
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to prepare harness workspace")
		return failed
	}
	defer file.Release()

	args, err := g.toolchain.RunArgs(lang, file.Path())
	if err != nil {
		return failed
	}

	res, err := g.runner.Run(ctx, sandbox.Command{
		Args:    args,
		Image:   g.toolchain.Image(lang),
		Mount:   file.Dir(),
		Timeout: g.cfg.ExecutionTimeout,
	})
	if err != nil {
		if errors.Is(err, sandbox.ErrTimedOut) {
			failed.timedOut = true
		} else {
			g.logger.Warn().Err(err).Str("language", string(lang)).Msg("harness run failed")
		}
		return failed
	}

	passed, total := ParseResults(res.Stdout, caseCount)
	if total != caseCount {
		g.logger.Warn().Int("reported_total", total).Int("expected_total", caseCount).Msg("harness summary disagrees with test case count")
		passed, total = 0, caseCount
	}

	return testRun{
		passed:   passed,
		total:    total,
		outcomes: ParseOutcomes(res.Stdout),
	}
}

func aggregate(p *progress, tests testRun, style StyleReport) (Result, error) {
	if !p.done(StageTestsRun) || !p.done(StageStyleAnalyzed) {
		return Result{}, errIncompleteGrading
	}

	rate := 0.0
	if tests.total > 0 {
		rate = float64(tests.passed) / float64(tests.total)
	}

	p.complete(StageAggregated)
	return Result{
		TestPassRate: rate,
		StyleScore:   style.Score,
		Stars:        CalculateStars(rate, style.Score),
		Feedback:     style.Feedback,
		TestsPassed:  tests.passed,
		TestsTotal:   tests.total,
		Tests:        tests.outcomes,
		TimedOut:     tests.timedOut,
	}, nil
}

// progress records which stages of one grading have completed.
type progress struct {
	mu     sync.Mutex
	stages map[Stage]bool
}

func newProgress() *progress {
	return &progress{stages: map[Stage]bool{StageCreated: true}}
}

func (p *progress) complete(s Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages[s] = true
}

func (p *progress) done(s Stage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stages[s]
}
