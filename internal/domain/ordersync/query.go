package ordersync

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QueryResult is the row set of an analytic query
type QueryResult struct {
	Items        []QueryRow
	HasMore      bool
	TotalResults int
}

// QueryRow is one analytic query row keyed by lower-case column name
type QueryRow map[string]any

// String returns the column as a string; absent columns yield ""
func (r QueryRow) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the column as an int; unparsable values yield 0
func (r QueryRow) Int(column string) int {
	switch t := r[column].(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// IntPtr returns nil for an absent or zero column
func (r QueryRow) IntPtr(column string) *int {
	n := r.Int(column)
	if n == 0 {
		return nil
	}
	return &n
}

// Bool reads the accounting system's "T"/"F" flags as well as JSON booleans
func (r QueryRow) Bool(column string) bool {
	switch t := r[column].(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "T") || strings.EqualFold(t, "true")
	default:
		return false
	}
}

// queryTimeLayouts are the timestamp formats analytic queries return
var queryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006 3:04 pm",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02",
}

// Time parses the column with the known layouts; ok is false when none match
func (r QueryRow) Time(column string) (time.Time, bool) {
	s := strings.TrimSpace(r.String(column))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// QuoteLiteral renders s as a single-quoted query literal
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
