package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	containerWorkDir = "/workspace"
	containerUser    = "65534:65534"
)

// DockerConfig groups DockerRunner settings.
type DockerConfig struct {
	Host          string
	Timeout       time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	PidsLimit     int64
	OutputLimit   int
	Logger        zerolog.Logger
}

// DockerRunner runs every command in a throwaway container with networking
// disabled, resource limits applied and the command's Mount bound read-only
// at /workspace.
type DockerRunner struct {
	client *client.Client
	cfg    DockerConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewDockerRunner constructs a Docker backed runner.
func NewDockerRunner(cfg DockerConfig) (*DockerRunner, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.OutputLimit <= 0 {
		cfg.OutputLimit = defaultOutputLimit
	}
	if cfg.PidsLimit <= 0 {
		cfg.PidsLimit = 64
	}

	return &DockerRunner{
		client: cli,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/codesnap-api/pkg/sandbox"),
		logger: cfg.Logger.With().Str("component", "docker_runner").Logger(),
	}, nil
}

// Run executes the command inside a fresh container.
func (r *DockerRunner) Run(parent context.Context, command Command) (Result, error) {
	if command.Image == "" {
		return Result{}, fmt.Errorf("%w: image is required", ErrLaunchFailed)
	}
	if len(command.Args) == 0 {
		return Result{}, fmt.Errorf("%w: empty command", ErrLaunchFailed)
	}

	ctx, span := r.tracer.Start(parent, "sandbox.docker.run", trace.WithAttributes(
		attribute.String("docker.image", command.Image),
	))
	defer span.End()

	timeout := command.Timeout
	if timeout <= 0 {
		timeout = r.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	config, hostCfg := containerSpec(r.cfg, command)

	start := time.Now()

	resp, err := r.client.ContainerCreate(ctx, config, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		runFailures.WithLabelValues(runnerDocker).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("%w: container create: %v", ErrLaunchFailed, err)
	}

	containerID := resp.ID
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to remove container")
		}
	}()

	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		runFailures.WithLabelValues(runnerDocker).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("%w: container start: %v", ErrLaunchFailed, err)
	}

	statusCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNextExit)

	result := Result{}
	var waitErr error
	select {
	case err := <-errCh:
		waitErr = err
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	result.Duration = time.Since(start)
	runDuration.WithLabelValues(runnerDocker).Observe(result.Duration.Seconds())

	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			runTimeouts.WithLabelValues(runnerDocker).Inc()
			killCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.client.ContainerKill(killCtx, containerID, "KILL"); err != nil {
				r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to kill timed out container")
			}
			span.SetStatus(codes.Error, "execution timed out")
			return Result{Duration: result.Duration, TimedOut: true, ExitCode: -1}, fmt.Errorf("%w after %s", ErrTimedOut, timeout)
		}
		runFailures.WithLabelValues(runnerDocker).Inc()
		span.RecordError(waitErr)
		span.SetStatus(codes.Error, waitErr.Error())
		return result, fmt.Errorf("%w: container wait: %v", ErrLaunchFailed, waitErr)
	}

	logsCtx, cancelLogs := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelLogs()
	logReader, err := r.client.ContainerLogs(logsCtx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to fetch container logs")
		return result, nil
	}
	defer logReader.Close()

	stdout := &cappedBuffer{limit: r.cfg.OutputLimit}
	stderr := &cappedBuffer{limit: r.cfg.OutputLimit}
	if _, err := stdcopy.StdCopy(stdout, stderr, logReader); err != nil {
		r.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to read container logs")
	}
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	span.SetAttributes(attribute.Int("sandbox.exit_code", result.ExitCode))
	return result, nil
}

// Close shuts down the runner's underlying client.
func (r *DockerRunner) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// containerSpec builds the create request for command. The container has no
// network and a read-only root filesystem, runs as an unprivileged user, and
// sees only command.Mount, read-only at /workspace. The first argument
// replaces the image entrypoint so linter images run the requested program.
func containerSpec(cfg DockerConfig, command Command) (*container.Config, *container.HostConfig) {
	pids := cfg.PidsLimit
	hostCfg := &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": "rw,size=16m"},
		Resources: container.Resources{
			Memory:    cfg.MemoryLimitMB * 1024 * 1024,
			CPUShares: cfg.CPUShares,
			PidsLimit: &pids,
		},
	}
	if command.Mount != "" {
		hostCfg.Mounts = append(hostCfg.Mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   command.Mount,
			Target:   containerWorkDir,
			ReadOnly: true,
		})
	}

	args := containerArgs(command.Args, command.Mount)
	config := &container.Config{
		Image:           command.Image,
		Entrypoint:      args[:1],
		Cmd:             args[1:],
		Env:             []string{"HOME=/tmp", "PYTHONIOENCODING=utf-8"},
		WorkingDir:      containerWorkDir,
		User:            containerUser,
		NetworkDisabled: true,
		AttachStdout:    true,
		AttachStderr:    true,
	}
	return config, hostCfg
}

// containerArgs rewrites host paths below mount into their /workspace equivalents.
func containerArgs(args []string, mountDir string) []string {
	out := make([]string, len(args))
	prefix := strings.TrimSuffix(mountDir, "/") + "/"
	for i, arg := range args {
		if mountDir != "" && strings.HasPrefix(arg, prefix) {
			arg = containerWorkDir + "/" + strings.TrimPrefix(arg, prefix)
		}
		out[i] = arg
	}
	return out
}
