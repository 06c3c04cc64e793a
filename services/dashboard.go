package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"mmtips-service/config"
)

// Page is everything the dashboard renders for one request.
type Page struct {
	Date       string // YYYY-MM-DD in the configured offset
	ResultsKey string
	Rows       []DailyResultRow
	History    []HistoryRow
}

// Dashboard loads and transforms the two input files on every request,
// downloading them only when their version tags change.
type Dashboard struct {
	fetcher     *Fetcher
	bucket      string
	resultsFile string
	historyKey  string
	dataDir     string
	offsetHours int
	now         func() time.Time
}

func NewDashboard(cfg *config.Config, fetcher *Fetcher) *Dashboard {
	return &Dashboard{
		fetcher:     fetcher,
		bucket:      cfg.Bucket,
		resultsFile: cfg.ResultsFile,
		historyKey:  cfg.HistoryKey,
		dataDir:     cfg.DataDir,
		offsetHours: cfg.UTCOffsetHours,
		now:         time.Now,
	}
}

// SetClock replaces time.Now, for tests.
func (d *Dashboard) SetClock(now func() time.Time) {
	d.now = now
}

// resultsPath is <dataDir>/<date>_<file>, one local copy per daily key.
func (d *Dashboard) resultsPath(date string) string {
	return filepath.Join(d.dataDir, date+"_"+d.resultsFile)
}

func (d *Dashboard) historyPath() string {
	return filepath.Join(d.dataDir, path.Base(d.historyKey))
}

// ResultsKey is today's daily results object key.
func (d *Dashboard) ResultsKey() string {
	return DailyResultsKey(d.now(), d.offsetHours, d.resultsFile)
}

// HistoryKey is the cumulative history object key.
func (d *Dashboard) HistoryKey() string {
	return d.historyKey
}

// Load fetches (if changed) and transforms both files. Any error aborts the
// whole page.
func (d *Dashboard) Load(ctx context.Context) (*Page, error) {
	now := d.now()
	date := LocalDate(now, d.offsetHours)
	key := DailyResultsKey(now, d.offsetHours, d.resultsFile)

	res, err := d.fetcher.FetchIfChanged(ctx, d.bucket, key, d.resultsPath(date))
	if err != nil {
		return nil, err
	}
	rows, err := loadResults(res.Path)
	if err != nil {
		return nil, fmt.Errorf("daily results %s: %w", key, err)
	}

	hist, err := d.fetcher.FetchIfChanged(ctx, d.bucket, d.historyKey, d.historyPath())
	if err != nil {
		return nil, err
	}
	history, err := loadHistory(hist.Path)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", d.historyKey, err)
	}

	return &Page{
		Date:       date,
		ResultsKey: key,
		Rows:       rows,
		History:    history,
	}, nil
}

// Refresh runs the freshness checks without transforming anything.
func (d *Dashboard) Refresh(ctx context.Context) error {
	now := d.now()
	key := DailyResultsKey(now, d.offsetHours, d.resultsFile)
	if _, err := d.fetcher.FetchIfChanged(ctx, d.bucket, key, d.resultsPath(LocalDate(now, d.offsetHours))); err != nil {
		return err
	}
	_, err := d.fetcher.FetchIfChanged(ctx, d.bucket, d.historyKey, d.historyPath())
	return err
}

func loadResults(p string) ([]DailyResultRow, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := ReadDailyResults(f)
	if err != nil {
		return nil, err
	}
	return TransformResults(raw)
}

func loadHistory(p string) ([]HistoryRow, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadHistory(f)
	if err != nil {
		return nil, err
	}
	return AggregateHistory(rows), nil
}
