package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultOutputLimit = 1 << 20

var (
	// ErrTimedOut reports that the child exceeded its wall-clock budget and was killed.
	ErrTimedOut = errors.New("execution timed out")
	// ErrLaunchFailed reports that the child could not be started at all.
	ErrLaunchFailed = errors.New("launch failed")
)

// Runner executes a command and captures its output. A nonzero exit code is
// reported through Result.ExitCode, never as an error.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Command describes a single child process invocation.
type Command struct {
	// Args is the argument vector; Args[0] is the program. No shell is involved.
	Args []string
	// Image is the container image used by container backed runners.
	Image string
	// Mount is the host directory the program's files live in.
	Mount   string
	Timeout time.Duration
}

// Result summarises a finished child process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// LocalConfig groups LocalRunner settings.
type LocalConfig struct {
	Timeout     time.Duration
	OutputLimit int
	Env         []string
	Logger      zerolog.Logger
}

// LocalRunner runs commands as direct children of the API process.
type LocalRunner struct {
	cfg    LocalConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewLocalRunner constructs a runner backed by os/exec.
func NewLocalRunner(cfg LocalConfig) *LocalRunner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.OutputLimit <= 0 {
		cfg.OutputLimit = defaultOutputLimit
	}
	if cfg.Env == nil {
		cfg.Env = []string{"PATH=/usr/local/bin:/usr/bin:/bin", "LANG=C.UTF-8", "PYTHONIOENCODING=utf-8"}
	}

	return &LocalRunner{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/codesnap-api/pkg/sandbox"),
		logger: cfg.Logger.With().Str("component", "local_runner").Logger(),
	}
}

// Run starts the command, waits for it under the timeout and returns its output.
func (r *LocalRunner) Run(parent context.Context, command Command) (Result, error) {
	if len(command.Args) == 0 {
		return Result{}, fmt.Errorf("%w: empty command", ErrLaunchFailed)
	}

	ctx, span := r.tracer.Start(parent, "sandbox.local.run", trace.WithAttributes(
		attribute.String("sandbox.program", command.Args[0]),
	))
	defer span.End()

	timeout := command.Timeout
	if timeout <= 0 {
		timeout = r.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := &cappedBuffer{limit: r.cfg.OutputLimit}
	stderr := &cappedBuffer{limit: r.cfg.OutputLimit}

	cmd := exec.CommandContext(ctx, command.Args[0], command.Args[1:]...)
	cmd.Dir = command.Mount
	cmd.Env = r.cfg.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	isolateProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		runFailures.WithLabelValues(runnerLocal).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	waitErr := cmd.Wait()
	duration := time.Since(start)
	runDuration.WithLabelValues(runnerLocal).Observe(duration.Seconds())

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		runTimeouts.WithLabelValues(runnerLocal).Inc()
		span.SetStatus(codes.Error, "execution timed out")
		r.logger.Debug().Str("program", command.Args[0]).Dur("timeout", timeout).Msg("child killed after timeout")
		return Result{Duration: duration, TimedOut: true, ExitCode: -1}, fmt.Errorf("%w after %s", ErrTimedOut, timeout)
	}

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			runFailures.WithLabelValues(runnerLocal).Inc()
			span.RecordError(waitErr)
			span.SetStatus(codes.Error, waitErr.Error())
			return result, fmt.Errorf("%w: %v", ErrLaunchFailed, waitErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	span.SetAttributes(attribute.Int("sandbox.exit_code", result.ExitCode))
	return result, nil
}

// cappedBuffer keeps the first limit bytes written and silently drops the rest,
// so a child flooding its output cannot exhaust memory.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
