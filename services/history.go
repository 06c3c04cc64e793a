package services

import (
	"io"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ColExecutionDate = "DataExecucao"
	ColCumulativePL  = "PL_Acumulado"
)

// HistoryRow is one point of the cumulative P/L curve.
type HistoryRow struct {
	ExecutionDate time.Time
	CumulativePL  decimal.Decimal
	EntryIndex    int // 1-based, assigned by AggregateHistory
}

// ReadHistory parses the cumulative history CSV. Extra columns are ignored.
func ReadHistory(r io.Reader) ([]HistoryRow, error) {
	records, err := readTable(r, ColExecutionDate, ColCumulativePL)
	if err != nil {
		return nil, err
	}

	rows := make([]HistoryRow, 0, len(records))
	for _, rec := range records {
		date, err := parseTimestamp(rec, ColExecutionDate)
		if err != nil {
			return nil, err
		}
		pl, err := parseDecimal(rec, ColCumulativePL)
		if err != nil {
			return nil, err
		}
		rows = append(rows, HistoryRow{ExecutionDate: date, CumulativePL: pl})
	}
	return rows, nil
}

// AggregateHistory returns a copy of rows sorted by execution date (ties keep
// file order) with EntryIndex set to 1..N. The input is not modified.
func AggregateHistory(rows []HistoryRow) []HistoryRow {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b HistoryRow) int {
		return a.ExecutionDate.Compare(b.ExecutionDate)
	})
	for i := range out {
		out[i].EntryIndex = i + 1
	}
	return out
}
