package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/mount"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestLocalRunnerCapturesOutputAndExitCode(t *testing.T) {
	sh := requireShell(t)
	runner := NewLocalRunner(LocalConfig{Logger: zerolog.Nop()})

	result, err := runner.Run(context.Background(), Command{
		Args:    []string{sh, "-c", "echo out; echo err 1>&2; exit 3"},
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "out\n", result.Stdout)
	require.Equal(t, "err\n", result.Stderr)
	require.Equal(t, 3, result.ExitCode)
	require.False(t, result.TimedOut)
}

func TestLocalRunnerDoesNotInterpretShellMetacharacters(t *testing.T) {
	sh := requireShell(t)
	runner := NewLocalRunner(LocalConfig{Logger: zerolog.Nop()})

	result, err := runner.Run(context.Background(), Command{
		Args: []string{sh, "-c", `printf '%s' "$1"`, "sh", "a; echo injected"},
	})
	require.NoError(t, err)
	require.Equal(t, "a; echo injected", result.Stdout)
}

func TestLocalRunnerTimesOut(t *testing.T) {
	sh := requireShell(t)
	runner := NewLocalRunner(LocalConfig{Logger: zerolog.Nop()})

	start := time.Now()
	result, err := runner.Run(context.Background(), Command{
		Args:    []string{sh, "-c", "echo partial; while :; do :; done"},
		Timeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTimedOut))
	require.True(t, result.TimedOut)
	require.Empty(t, result.Stdout)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestLocalRunnerReportsLaunchFailure(t *testing.T) {
	runner := NewLocalRunner(LocalConfig{Logger: zerolog.Nop()})

	_, err := runner.Run(context.Background(), Command{Args: []string{"/nonexistent/codesnap-interpreter"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLaunchFailed))

	_, err = runner.Run(context.Background(), Command{})
	require.True(t, errors.Is(err, ErrLaunchFailed))
}

func TestLocalRunnerCapsOutput(t *testing.T) {
	sh := requireShell(t)
	runner := NewLocalRunner(LocalConfig{OutputLimit: 10, Logger: zerolog.Nop()})

	result, err := runner.Run(context.Background(), Command{
		Args: []string{sh, "-c", "printf '%s' 0123456789abcdef"},
	})
	require.NoError(t, err)
	require.Equal(t, "0123456789", result.Stdout)
}

func TestContainerArgsRewritesMountedPaths(t *testing.T) {
	args := containerArgs([]string{"python", "/tmp/codesnap/codesnap-1.py", "--flag=/tmp/other"}, "/tmp/codesnap")
	require.Equal(t, []string{"python", "/workspace/codesnap-1.py", "--flag=/tmp/other"}, args)

	unchanged := containerArgs([]string{"node", "main.js"}, "")
	require.Equal(t, "node main.js", strings.Join(unchanged, " "))
}

func TestContainerSpecMountsOnlyRunDirectory(t *testing.T) {
	cfg := DockerConfig{MemoryLimitMB: 128, CPUShares: 512, PidsLimit: 32}
	runDir := "/tmp/codesnap/submission-123"

	config, hostCfg := containerSpec(cfg, Command{
		Args:  []string{"python3", runDir + "/codesnap-1.py"},
		Image: "python:3.11-alpine",
		Mount: runDir,
	})

	require.Equal(t, "python:3.11-alpine", config.Image)
	require.Equal(t, []string{"python3"}, []string(config.Entrypoint))
	require.Equal(t, []string{"/workspace/codesnap-1.py"}, []string(config.Cmd))
	require.Equal(t, "65534:65534", config.User)
	require.Equal(t, "/workspace", config.WorkingDir)
	require.True(t, config.NetworkDisabled)

	require.Equal(t, "none", string(hostCfg.NetworkMode))
	require.True(t, hostCfg.ReadonlyRootfs)
	require.Equal(t, int64(128*1024*1024), hostCfg.Resources.Memory)
	require.Equal(t, int64(512), hostCfg.Resources.CPUShares)
	require.NotNil(t, hostCfg.Resources.PidsLimit)
	require.Equal(t, int64(32), *hostCfg.Resources.PidsLimit)

	require.Len(t, hostCfg.Mounts, 1)
	bind := hostCfg.Mounts[0]
	require.Equal(t, mount.TypeBind, bind.Type)
	require.Equal(t, runDir, bind.Source)
	require.Equal(t, "/workspace", bind.Target)
	require.True(t, bind.ReadOnly)
}

func TestContainerSpecWithoutMountBindsNothing(t *testing.T) {
	config, hostCfg := containerSpec(DockerConfig{PidsLimit: 64}, Command{
		Args:  []string{"node", "--version"},
		Image: "node:20-alpine",
	})

	require.Empty(t, hostCfg.Mounts)
	require.Equal(t, []string{"node"}, []string(config.Entrypoint))
	require.Equal(t, []string{"--version"}, []string(config.Cmd))
	require.Equal(t, "65534:65534", config.User)
}
