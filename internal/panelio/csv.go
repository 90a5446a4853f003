// Package panelio reads return panels from long-format CSV files.
//
// Two layouts are accepted, told apart by the header:
//
//	date,asset,return,market_cap               one row per (period, asset)
//	date,sector,ticker,return,market_cap       one row per security, aggregated to sectors
//
// Column order is free and names are case-insensitive. An empty return cell
// is a missing return.
package panelio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
)

var columnAliases = map[string]string{
	"date":       "date",
	"asset":      "asset",
	"ret":        "return",
	"return":     "return",
	"ret_sec":    "return",
	"market_cap": "market_cap",
	"mkt":        "market_cap",
	"mkt_sec":    "market_cap",
	"sector":     "sector",
	"ticker":     "ticker",
	"security":   "ticker",
}

// LoadPanel opens path and reads a panel from it.
func LoadPanel(path string) (*domain.ReturnPanel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open panel file: %w", err)
	}
	defer f.Close()

	panel, err := ReadPanel(f)
	if err != nil {
		return nil, fmt.Errorf("panel file %s: %w", path, err)
	}
	return panel, nil
}

// ReadPanel reads either layout and returns the asset-level panel.
// Security rows are aggregated with AggregateSectors.
func ReadPanel(r io.Reader) (*domain.ReturnPanel, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty panel file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	_, hasSector := cols["sector"]
	_, hasTicker := cols["ticker"]
	securities := hasSector && hasTicker

	assetCol := "asset"
	if securities {
		assetCol = "sector"
	}
	for _, required := range []string{"date", assetCol, "return", "market_cap"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var observations []domain.Observation
	var rows []SecurityRow
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := time.Parse(domain.DateLayout, strings.TrimSpace(rec[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", line, err)
		}
		ret, err := parseReturn(rec[cols["return"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid return: %w", line, err)
		}
		mcap, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["market_cap"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid market cap: %w", line, err)
		}

		if securities {
			rows = append(rows, SecurityRow{
				Date:      date,
				Sector:    strings.TrimSpace(rec[cols["sector"]]),
				Ticker:    strings.TrimSpace(rec[cols["ticker"]]),
				Return:    ret,
				MarketCap: mcap,
			})
			continue
		}
		observations = append(observations, domain.Observation{
			Date:      date,
			Asset:     strings.TrimSpace(rec[cols[assetCol]]),
			Return:    ret,
			MarketCap: mcap,
		})
	}

	if securities {
		observations, err = AggregateSectors(rows)
		if err != nil {
			return nil, err
		}
	}
	return domain.NewReturnPanel(observations)
}

func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		canonical, ok := columnAliases[key]
		if !ok {
			continue
		}
		if _, dup := cols[canonical]; dup {
			return nil, fmt.Errorf("column %q appears more than once", canonical)
		}
		cols[canonical] = i
	}
	return cols, nil
}

func parseReturn(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(raw, 64)
}
