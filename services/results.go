package services

import (
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// SitOutSuggestion marks rows where the model suggests no bet.
	SitOutSuggestion = "Sugestão: Fique de fora no modelo"

	BackHomePrefix = "Sugestão: Back Home"
	BackAwayPrefix = "Sugestão: Back Away"

	// DisplayDateLayout is DD/MM/YYYY HH:MM.
	DisplayDateLayout = "02/01/2006 15:04"
)

// Daily results file columns.
const (
	ColDate      = "Date"
	ColBackModel = "Back_Model"
	ColHome      = "Home"
	ColAway      = "Away"
	ColOddBackH  = "Odd_Back_H"
	ColOddBackA  = "Odd_Back_A"
	ColLeague    = "League"
)

// ResultColumns are the display headers of the daily table, in order.
var ResultColumns = []string{"Data", "League", "Home", "Away", "Entrada", "Odd Sugerida"}

// Side is the team a suggestion backs.
type Side int

const (
	SideNone Side = iota
	SideHome
	SideAway
)

func (s Side) String() string {
	switch s {
	case SideHome:
		return "home"
	case SideAway:
		return "away"
	default:
		return "none"
	}
}

// RawResult is one parsed line of the daily results file.
type RawResult struct {
	Line        int
	Date        time.Time
	League      string
	Home        string
	Away        string
	BackModel   string
	OddBackHome string // raw cell, parsed only when this side is backed
	OddBackAway string
}

// OddBadge marks the suggested odd for highlighted rendering.
type OddBadge struct {
	Value string
}

func (b OddBadge) String() string {
	return b.Value
}

// DailyResultRow is a display-ready row of the daily table.
type DailyResultRow struct {
	Data        string // DisplayDateLayout
	League      string
	Home        string
	Away        string
	Entrada     string // empty when the suggestion backs neither side
	OddSugerida decimal.NullDecimal
	Badge       OddBadge

	Date time.Time
	Side Side
}

// Cells returns the row in ResultColumns order.
func (r DailyResultRow) Cells() []string {
	return []string{r.Data, r.League, r.Home, r.Away, r.Entrada, r.Badge.Value}
}

// ReadDailyResults parses the daily results CSV. A malformed timestamp
// anywhere in the file fails the whole read with a *ParseError. Odds stay raw
// until TransformResults knows which side is backed.
func ReadDailyResults(r io.Reader) ([]RawResult, error) {
	records, err := readTable(r, ColDate, ColBackModel, ColHome, ColAway, ColOddBackH, ColOddBackA, ColLeague)
	if err != nil {
		return nil, err
	}

	results := make([]RawResult, 0, len(records))
	for _, rec := range records {
		date, err := parseTimestamp(rec, ColDate)
		if err != nil {
			return nil, err
		}
		results = append(results, RawResult{
			Line:        rec.line,
			Date:        date,
			League:      rec.get(ColLeague),
			Home:        rec.get(ColHome),
			Away:        rec.get(ColAway),
			BackModel:   rec.get(ColBackModel),
			OddBackHome: rec.get(ColOddBackH),
			OddBackAway: rec.get(ColOddBackA),
		})
	}
	return results, nil
}

// SuggestedSide reads the side a Back_Model label backs.
func SuggestedSide(backModel string) Side {
	switch {
	case strings.HasPrefix(backModel, BackHomePrefix):
		return SideHome
	case strings.HasPrefix(backModel, BackAwayPrefix):
		return SideAway
	default:
		return SideNone
	}
}

// TransformResults drops sit-out rows and derives Entrada / Odd Sugerida for
// the rest. Input order is kept. Only the backed side's odd is parsed; a blank
// or malformed one is a *ParseError.
func TransformResults(raw []RawResult) ([]DailyResultRow, error) {
	rows := make([]DailyResultRow, 0, len(raw))
	for _, r := range raw {
		if r.BackModel == SitOutSuggestion {
			continue
		}

		row := DailyResultRow{
			Data:   r.Date.Format(DisplayDateLayout),
			League: r.League,
			Home:   r.Home,
			Away:   r.Away,
			Date:   r.Date,
			Side:   SuggestedSide(r.BackModel),
		}

		var (
			odd decimal.Decimal
			err error
		)
		switch row.Side {
		case SideHome:
			odd, err = parseOdd(r.Line, ColOddBackH, r.OddBackHome)
			row.Entrada = r.Home
		case SideAway:
			odd, err = parseOdd(r.Line, ColOddBackA, r.OddBackAway)
			row.Entrada = r.Away
		}
		if err != nil {
			return nil, err
		}

		if row.Side != SideNone {
			row.OddSugerida = decimal.NewNullDecimal(odd)
			row.Badge = OddBadge{Value: odd.String()}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseOdd(line int, column, value string) (decimal.Decimal, error) {
	return parseDecimal(record{line: line, fields: map[string]string{column: value}}, column)
}
