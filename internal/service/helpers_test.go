package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
	"cadtoh5m/internal/kernel/sim"
)

// writeCAD creates a placeholder CAD file the simulated kernel can import
func writeCAD(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("ISO-10303-21;"), 0644))
	return path
}

// testOptions returns default options writing into a temp directory
func testOptions(t *testing.T) domain.Options {
	t.Helper()
	opts := domain.DefaultOptions()
	opts.H5MFilename = filepath.Join(t.TempDir(), "out", "dagmc.h5m")
	return opts
}

// loaded imports entries into k and fails the test on error
func loaded(t *testing.T, k *sim.Kernel, entries []domain.GeometryEntry) []domain.GeometryEntry {
	t.Helper()
	_, err := NewLoader(nil).Load(context.Background(), k, entries)
	require.NoError(t, err)
	return entries
}

// commandsWithPrefix filters the command log
func commandsWithPrefix(k *sim.Kernel, prefix string) []string {
	var out []string
	for _, c := range k.Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// frozenVolumes is a session that always reports the same volume list
type frozenVolumes struct {
	*sim.Kernel
	ids []int
}

func (f frozenVolumes) ParseList(ctx context.Context, entityType, filter string) ([]int, error) {
	if entityType == kernel.EntityVolume && strings.TrimSpace(filter) == "all" {
		return f.ids, nil
	}
	return f.Kernel.ParseList(ctx, entityType, filter)
}

// memoryHistory is an in-memory History
type memoryHistory struct {
	mu      sync.Mutex
	runs    []domain.Run
	records map[string]domain.Reflectivity
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{records: make(map[string]domain.Reflectivity)}
}

func (h *memoryHistory) SaveRun(_ context.Context, run *domain.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, *run)
	return nil
}

func (h *memoryHistory) LatestReflectivity(_ context.Context, cadFilename string) (domain.Reflectivity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records[cadFilename].Clone(), nil
}

func (h *memoryHistory) saved() []domain.Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Run(nil), h.runs...)
}
