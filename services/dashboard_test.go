package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmtips-service/config"
	"mmtips-service/storage"
)

func newTestDashboard(t *testing.T, store storage.BlobStore) *Dashboard {
	t.Helper()
	return newTestDashboardIn(t, store, t.TempDir())
}

func newTestDashboardIn(t *testing.T, store storage.BlobStore, dir string) *Dashboard {
	t.Helper()
	cfg := &config.Config{
		Bucket:         "tips",
		ResultsFile:    "omqb_results.csv",
		HistoryKey:     "history/full_history.csv",
		DataDir:        dir,
		UTCOffsetHours: -3,
	}
	d := NewDashboard(cfg, NewFetcher(store, nil))
	d.SetClock(func() time.Time { return time.Date(2025, 10, 8, 18, 0, 0, 0, time.UTC) })
	return d
}

func TestDashboard_Load(t *testing.T) {
	store := newFakeStore()
	store.put("tips", testKey, resultsHeader+
		"2025-10-08 14:30,Sugestão: Back Home X,X,Y,1.85,2.10,L1\n"+
		"2025-10-08 16:30,Sugestão: Fique de fora no modelo,Z,W,1.50,2.60,L1\n")
	store.put("tips", "history/full_history.csv", "DataExecucao,PL_Acumulado\n2025-10-09,25\n2025-10-08,10\n")

	d := newTestDashboard(t, store)
	page, err := d.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2025-10-08", page.Date)
	assert.Equal(t, testKey, page.ResultsKey)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "X", page.Rows[0].Entrada)
	require.Len(t, page.History, 2)
	assert.Equal(t, "10", page.History[0].CumulativePL.String())
	assert.Equal(t, 2, page.History[1].EntryIndex)

	_, err = d.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.downloads("tips", testKey))
	assert.Equal(t, 1, store.downloads("tips", "history/full_history.csv"))
}

func TestDashboard_LoadMissingDailyFile(t *testing.T) {
	store := newFakeStore()
	store.put("tips", "history/full_history.csv", "DataExecucao,PL_Acumulado\n")

	_, err := newTestDashboard(t, store).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDashboard_LoadParseError(t *testing.T) {
	store := newFakeStore()
	store.put("tips", testKey, resultsHeader+"08-10-2025,Sugestão: Back Home,A,B,1,2,L\n")
	store.put("tips", "history/full_history.csv", "DataExecucao,PL_Acumulado\n")

	_, err := newTestDashboard(t, store).Load(context.Background())
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestDashboard_Refresh(t *testing.T) {
	store := newFakeStore()
	store.put("tips", testKey, resultsHeader)
	store.put("tips", "history/full_history.csv", "DataExecucao,PL_Acumulado\n")

	d := newTestDashboard(t, store)
	require.NoError(t, d.Refresh(context.Background()))
	require.NoError(t, d.Refresh(context.Background()))

	assert.Equal(t, 1, store.downloads("tips", testKey))
	assert.Equal(t, testKey, d.ResultsKey())
	assert.Equal(t, "history/full_history.csv", d.HistoryKey())
}

func TestDashboard_EachDayHasItsOwnLocalCopy(t *testing.T) {
	const nextKey = "outputs/2025-10-09/omqb_results.csv"
	store := newFakeStore()
	store.put("tips", testKey, resultsHeader+"2025-10-08 14:30,Sugestão: Back Home,A,B,1.50,2.50,L1\n")
	store.put("tips", nextKey, resultsHeader+"2025-10-09 14:30,Sugestão: Back Away,C,D,1.50,2.50,L1\n")
	store.put("tips", "history/full_history.csv", "DataExecucao,PL_Acumulado\n")

	dir := t.TempDir()
	d := newTestDashboardIn(t, store, dir)

	day1, err := d.Load(context.Background())
	require.NoError(t, err)

	d.SetClock(func() time.Time { return time.Date(2025, 10, 9, 18, 0, 0, 0, time.UTC) })
	day2, err := d.Load(context.Background())
	require.NoError(t, err)

	d.SetClock(func() time.Time { return time.Date(2025, 10, 8, 18, 0, 0, 0, time.UTC) })
	again, err := d.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "A", day1.Rows[0].Entrada)
	assert.Equal(t, "D", day2.Rows[0].Entrada)
	assert.Equal(t, "A", again.Rows[0].Entrada, "yesterday's key still reads yesterday's rows")
	assert.Equal(t, 1, store.downloads("tips", testKey))

	assert.FileExists(t, filepath.Join(dir, "2025-10-08_omqb_results.csv"))
	assert.FileExists(t, filepath.Join(dir, "2025-10-09_omqb_results.csv"))
}
