package report_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reports.db")

	store1, err := report.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Save(newReport("run-1", "m17", 0)))
	require.NoError(t, store1.Close())

	store2, err := report.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	loaded, err := store2.Load("run-1")
	require.NoError(t, err)
	assert.Equal(t, "m17", loaded.Graph)
	assert.Len(t, loaded.Blocks, 2)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := report.NewSQLiteStore("/nonexistent/path/reports.db")
	assert.Error(t, err)
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	store, err := report.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Concurrent(t *testing.T) {
	store, err := report.NewSQLiteStore(filepath.Join(t.TempDir(), "concurrent.db"))
	require.NoError(t, err)
	defer store.Close()

	const numGoroutines = 20
	const numOps = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				runID := fmt.Sprintf("run-%d-%d", id%5, j%10)
				switch j % 3 {
				case 0:
					_ = store.Save(newReport(runID, "m17", 0))
				case 1:
					_, _ = store.Load(runID)
				case 2:
					_, _ = store.List("")
				}
			}
		}(i)
	}

	wg.Wait()

	infos, err := store.List("m17")
	require.NoError(t, err)
	assert.NotEmpty(t, infos)
}
