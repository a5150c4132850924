package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"model write", fsnotify.Event{Name: "plan.los", Op: fsnotify.Write}, true},
		{"csv create", fsnotify.Event{Name: "data/costs.CSV", Op: fsnotify.Create}, true},
		{"sqlite rename", fsnotify.Event{Name: "plant.sqlite", Op: fsnotify.Rename}, true},
		{"model chmod", fsnotify.Event{Name: "plan.los", Op: fsnotify.Chmod}, false},
		{"model remove", fsnotify.Event{Name: "plan.los", Op: fsnotify.Remove}, false},
		{"editor swap file", fsnotify.Event{Name: ".plan.los.swp", Op: fsnotify.Write}, false},
		{"notes", fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event))
		})
	}
}

func TestWatchDirs(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "plan.los")
	src := "import \"data/costs.csv\"\nset Products\nparam Cost[Products]\nvar qty[Products] >= 0\nminimize: sum(qty[p] * Cost[p] for p in Products)\n"
	require.NoError(t, os.WriteFile(model, []byte(src), 0644))

	dirs := watchDirs(model, ModelFlags{Data: []string{filepath.Join("elsewhere", "demand.yaml")}})
	assert.Equal(t, []string{dir, "elsewhere", filepath.Join(dir, "data")}, dirs)
}

func TestWatchLoopDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, watcher.Add(dir))

	var (
		mu      sync.Mutex
		changes []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, watcher, 100*time.Millisecond, func(string, ...any) {}, func(name string) {
			mu.Lock()
			changes = append(changes, name)
			mu.Unlock()
		})
	}()

	model := filepath.Join(dir, "plan.los")
	for i := range 3 {
		require.NoError(t, os.WriteFile(model, []byte{byte('a' + i)}, 0644))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) > 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model, changes[0])
}

func TestWatchCommandResolvesOnChange(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "simple.los")
	src, err := os.ReadFile(filepath.Join("testdata", "good", "simple.los"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(model, src, 0644))

	out := &syncBuffer{}
	cmd := NewWatchCommand(&RootOptions{Format: "text", NoColor: true})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{model, "--debounce", "50ms"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Objective: 6"))
	}, 5*time.Second, 20*time.Millisecond)

	changed := bytes.Replace(src, []byte("param Demand = 2"), []byte("param Demand = 5"), 1)
	require.NoError(t, os.WriteFile(model, changed, 0644))

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Objective: 15"))
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "simple.los changed, solving again")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
