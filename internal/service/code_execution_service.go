package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/dto"
	"github.com/noah-isme/codesnap-api/pkg/grader"
	"github.com/noah-isme/codesnap-api/pkg/sandbox"
)

const noOutput = "(no output)"

var (
	absolutePath = regexp.MustCompile(`(?:[A-Z]:)?[/\\][\w./\\-]+`)
	tempFileName = regexp.MustCompile(`codesnap-[A-Za-z0-9_]+\.(?:py|js)`)
)

// CodeExecutionService runs raw code for the playground, without a harness.
type CodeExecutionService interface {
	Execute(ctx context.Context, payload dto.ExecuteRequest) (dto.ExecuteResponse, error)
}

type codeExecutionService struct {
	workspace *sandbox.Workspace
	runner    sandbox.Runner
	toolchain grader.Toolchain
	timeout   time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	cwd       string
}

// NewCodeExecutionService constructs the playground executor.
func NewCodeExecutionService(workspace *sandbox.Workspace, runner sandbox.Runner, toolchain grader.Toolchain, timeout time.Duration, validate *validator.Validate, logger zerolog.Logger) CodeExecutionService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cwd, _ := os.Getwd()

	return &codeExecutionService{
		workspace: workspace,
		runner:    runner,
		toolchain: toolchain,
		timeout:   timeout,
		validator: validate,
		logger:    logger.With().Str("component", "code_execution_service").Logger(),
		cwd:       cwd,
	}
}

func (s *codeExecutionService) Execute(ctx context.Context, payload dto.ExecuteRequest) (dto.ExecuteResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExecuteResponse{}, err
	}

	lang, err := grader.ParseLanguage(payload.Language)
	if err != nil {
		return dto.ExecuteResponse{}, err
	}

	file, err := s.workspace.Acquire(payload.Code, lang.Suffix())
	if err != nil {
		return dto.ExecuteResponse{}, err
	}
	defer file.Release()

	args, err := s.toolchain.RunArgs(lang, file.Path())
	if err != nil {
		return dto.ExecuteResponse{}, err
	}

	result, err := s.runner.Run(ctx, sandbox.Command{
		Args:    args,
		Image:   s.toolchain.Image(lang),
		Mount:   file.Dir(),
		Timeout: s.timeout,
	})
	switch {
	case errors.Is(err, sandbox.ErrTimedOut):
		message := fmt.Sprintf("Execution timed out (max %ds).", int(s.timeout.Round(time.Second).Seconds()))
		return dto.ExecuteResponse{Output: noOutput, Error: &message, ExitCode: -1, TimedOut: true}, nil
	case errors.Is(err, sandbox.ErrLaunchFailed):
		s.logger.Warn().Err(err).Str("language", string(lang)).Msg("interpreter launch failed")
		message := "Execution error: interpreter could not be started"
		return dto.ExecuteResponse{Output: noOutput, Error: &message, ExitCode: -1}, nil
	case err != nil:
		return dto.ExecuteResponse{}, err
	}

	response := dto.ExecuteResponse{
		Output:   strings.TrimSpace(result.Stdout),
		ExitCode: result.ExitCode,
	}
	if response.Output == "" {
		response.Output = noOutput
	}
	if cleaned := SanitizeError(result.Stderr, s.cwd); cleaned != "" {
		response.Error = &cleaned
	}

	return response, nil
}

// SanitizeError hides host details in interpreter diagnostics: absolute paths
// become <path>, workspace file names <tempfile> and cwd <cwd>. Blank lines are dropped.
func SanitizeError(raw, cwd string) string {
	sanitized := absolutePath.ReplaceAllString(raw, "<path>")
	sanitized = tempFileName.ReplaceAllString(sanitized, "<tempfile>")
	if cwd != "" {
		sanitized = strings.ReplaceAll(sanitized, cwd, "<cwd>")
	}

	lines := strings.Split(sanitized, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
