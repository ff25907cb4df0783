// Package datafile reads the vendor text exports that seed the bar
// store: one comma-separated file per product and resolution holding
// time,open,high,low,close,volume rows with an optional header line.
// Minute files live under 1min/<SYM>.txt, daily files under
// daily/<SYM>_daily.txt.
package datafile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klefe6/almanac/internal/calendar"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

const (
	minuteDir   = "1min"
	dailyDir    = "daily"
	dailySuffix = "_daily"
)

var minuteLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
}

var dailyLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
}

// Discovery points at the data files found for one product symbol.
type Discovery struct {
	Symbol     string
	MinutePath string
	DailyPath  string
}

// Discover scans dataDir for minute and daily files and returns one
// entry per symbol, sorted by symbol. A product may have either
// resolution or both; a missing subdirectory simply contributes
// nothing.
func Discover(dataDir string) ([]Discovery, error) {
	found := make(map[string]*Discovery)

	minutePaths, err := filepath.Glob(filepath.Join(dataDir, minuteDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("scan minute files: %w", err)
	}
	for _, p := range minutePaths {
		sym := strings.ToUpper(strings.TrimSuffix(filepath.Base(p), ".txt"))
		entry(found, sym).MinutePath = p
	}

	dailyPaths, err := filepath.Glob(filepath.Join(dataDir, dailyDir, "*"+dailySuffix+".txt"))
	if err != nil {
		return nil, fmt.Errorf("scan daily files: %w", err)
	}
	for _, p := range dailyPaths {
		stem := strings.TrimSuffix(filepath.Base(p), ".txt")
		sym := strings.ToUpper(strings.TrimSuffix(stem, dailySuffix))
		entry(found, sym).DailyPath = p
	}

	out := make([]Discovery, 0, len(found))
	for _, d := range found {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func entry(m map[string]*Discovery, sym string) *Discovery {
	if d, ok := m[sym]; ok {
		return d
	}
	d := &Discovery{Symbol: sym}
	m[sym] = d
	return d
}

// ParseResult carries the parsed bars plus the count of malformed rows
// that were skipped.
type ParseResult struct {
	Bars    []domain.Bar
	Skipped int
}

// ParseMinuteFile reads a minute-resolution file. Timestamps are
// interpreted as New York wall-clock times.
func ParseMinuteFile(path string) (ParseResult, error) {
	return parse(path, minuteLayouts)
}

// ParseDailyFile reads a daily-resolution file; bare dates are accepted
// in addition to the minute timestamp layouts.
func ParseDailyFile(path string) (ParseResult, error) {
	return parse(path, dailyLayouts)
}

func parse(path string, layouts []string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var res ParseResult
	line := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		line++

		bar, ok := parseRow(record, layouts)
		if !ok {
			// A leading row with letters in the time column is a header.
			if line == 1 && looksLikeHeader(record) {
				continue
			}
			res.Skipped++
			continue
		}
		res.Bars = append(res.Bars, bar)
	}
	return res, nil
}

func parseRow(fields []string, layouts []string) (domain.Bar, bool) {
	if len(fields) < 6 {
		return domain.Bar{}, false
	}

	ts, ok := parseTime(strings.TrimSpace(fields[0]), layouts)
	if !ok {
		return domain.Bar{}, false
	}

	var px [4]float64
	for i := range px {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return domain.Bar{}, false
		}
		px[i] = v
	}

	// Some vendors export volume with a decimal point.
	vol, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
	if err != nil || vol < 0 {
		return domain.Bar{}, false
	}

	return domain.Bar{
		Time:   ts,
		Open:   px[0],
		High:   px[1],
		Low:    px[2],
		Close:  px[3],
		Volume: int64(vol),
	}, true
}

func parseTime(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, s, calendar.NewYork()); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func looksLikeHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	return strings.ContainsAny(strings.ToLower(fields[0]), "abcdefghijklmnopqrstuvwxyz")
}
