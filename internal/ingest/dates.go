package ingest

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
)

var datePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`^(\d{4}-\d{1,2}-\d{1,2})`),
	regexp.MustCompile(`^(\d{1,2}-\d{1,2}-\d{4})`),
}

// ExtractDate returns the date part of a timestamp cell such as "15/03/2024 10:22:01".
// Cells without digits, and the literal "order" some exports repeat in data rows, yield false.
func ExtractDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if isBlank(s) || strings.EqualFold(s, "order") {
		return "", false
	}
	for _, re := range datePrefixes {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1], true
		}
	}
	if !strings.ContainsAny(s, "0123456789") {
		return "", false
	}
	date, _, _ := strings.Cut(s, " ")
	return date, true
}

// ParseDate reads d/m/Y, Y-m-d and d-m-Y dates.
func ParseDate(s string) (time.Time, bool) {
	var layout string
	switch {
	case strings.Contains(s, "/"):
		layout = "2/1/2006"
	case strings.Count(s, "-") == 2:
		if first, _, _ := strings.Cut(s, "-"); len(first) == 4 {
			layout = "2006-1-2"
		} else {
			layout = "2-1-2006"
		}
	default:
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UniqueDates lists the distinct dates of a timestamp column in chronological order.
// Dates that do not parse sort first.
func UniqueDates(t *Table, column string) ([]string, error) {
	idx := findColumnIndex(t.Columns, column)
	if idx < 0 {
		return nil, &apierr.InputShapeError{Source: t.Name, Missing: []string{column}, Available: t.Columns}
	}

	seen := make(map[string]struct{})
	var dates []string
	for _, row := range t.Rows {
		d, ok := ExtractDate(Cell(row, idx))
		if !ok || len(d) <= 5 {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}

	floor := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	key := func(s string) time.Time {
		if t, ok := ParseDate(s); ok {
			return t
		}
		return floor
	}
	slices.SortStableFunc(dates, func(a, b string) int {
		return key(a).Compare(key(b))
	})
	return dates, nil
}

// FilterByDateRange keeps rows whose date falls inside [start, end], both ends inclusive.
func FilterByDateRange(t *Table, column, start, end string) (*Table, error) {
	idx := findColumnIndex(t.Columns, column)
	if idx < 0 {
		return nil, &apierr.InputShapeError{Source: t.Name, Missing: []string{column}, Available: t.Columns}
	}
	from, okFrom := ParseDate(strings.TrimSpace(start))
	to, okTo := ParseDate(strings.TrimSpace(end))
	if !okFrom || !okTo {
		return nil, apierr.New(http.StatusBadRequest, "invalid_date",
			fmt.Errorf("invalid date range %q to %q", start, end))
	}

	var rows [][]string
	for _, row := range t.Rows {
		d, ok := ExtractDate(Cell(row, idx))
		if !ok {
			continue
		}
		day, ok := ParseDate(d)
		if !ok || day.Before(from) || day.After(to) {
			continue
		}
		rows = append(rows, row)
	}
	return t.withRows(rows), nil
}
