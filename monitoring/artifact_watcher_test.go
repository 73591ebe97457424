package monitoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func TestWatchArtifactReportsChanges(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 8)
	err := WatchArtifact(ctx, dir, []string{"metadata.json"}, func(name string, op fsnotify.Op) {
		changed <- filepath.Base(name)
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{}"), 0o644))

	select {
	case name := <-changed:
		require.Equal(t, "metadata.json", name)
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}
}

func TestWatchArtifactMissingDir(t *testing.T) {
	err := WatchArtifact(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, func(string, fsnotify.Op) {})
	require.Error(t, err)
}
