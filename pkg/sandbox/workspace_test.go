package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceAcquireWritesClosedFile(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	file, err := ws.Acquire("print('hi')\n", ".py")
	require.NoError(t, err)
	defer file.Release()

	require.True(t, strings.HasSuffix(file.Path(), ".py"))
	require.Equal(t, ws.Root(), filepath.Dir(file.Dir()))
	require.Equal(t, file.Dir(), filepath.Dir(file.Path()))
	require.True(t, strings.HasPrefix(filepath.Base(file.Dir()), "submission-"))
	require.True(t, strings.HasPrefix(filepath.Base(file.Path()), "codesnap-"))

	data, err := os.ReadFile(file.Path())
	require.NoError(t, err)
	require.Equal(t, "print('hi')\n", string(data))
}

func TestWorkspaceReleaseRemovesFileAndIsIdempotent(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	file, err := ws.Acquire("x", ".js")
	require.NoError(t, err)

	file.Release()
	_, err = os.Stat(file.Path())
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(file.Dir())
	require.True(t, os.IsNotExist(err))

	require.NotPanics(t, file.Release)

	var nilFile *File
	require.NotPanics(t, nilFile.Release)
}

func TestWorkspaceReleaseSwallowsMissingFile(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	file, err := ws.Acquire("x", ".py")
	require.NoError(t, err)
	require.NoError(t, os.Remove(file.Path()))

	require.NotPanics(t, file.Release)
}

func TestWorkspaceAcquireIsolatesRunsReadableByOtherUsers(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	first, err := ws.Acquire("print(1)\n", ".py")
	require.NoError(t, err)
	defer first.Release()
	second, err := ws.Acquire("console.log(2)\n", ".js")
	require.NoError(t, err)
	defer second.Release()

	require.NotEqual(t, first.Dir(), second.Dir())

	for _, file := range []*File{first, second} {
		dirInfo, err := os.Stat(file.Dir())
		require.NoError(t, err)
		require.True(t, dirInfo.IsDir())
		require.Equal(t, os.FileMode(0o755), dirInfo.Mode().Perm())

		fileInfo, err := os.Stat(file.Path())
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o644), fileInfo.Mode().Perm())

		entries, err := os.ReadDir(file.Dir())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, filepath.Base(file.Path()), entries[0].Name())
	}

	first.Release()
	_, err = os.Stat(first.Dir())
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(second.Path())
	require.NoError(t, err)
}

func TestWorkspaceConcurrentAcquireUsesUniqueNames(t *testing.T) {
	ws, err := NewWorkspace(filepath.Join(t.TempDir(), "nested"), zerolog.Nop())
	require.NoError(t, err)

	const workers = 32
	paths := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			file, err := ws.Acquire("x", ".py")
			if err != nil {
				t.Error(err)
				return
			}
			paths <- file.Path()
		}()
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]struct{})
	for path := range paths {
		_, dup := seen[path]
		require.False(t, dup, "duplicate path %s", path)
		seen[path] = struct{}{}
	}
	require.Len(t, seen, workers)
}
