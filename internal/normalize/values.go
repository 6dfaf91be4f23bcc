package normalize

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"critreport/internal/domain"
)

// Cluster canonicalizes a cluster name: trimmed and upper-cased.
func Cluster(v any) string {
	return strings.ToUpper(strings.TrimSpace(Text(v)))
}

// Occurrence canonicalizes an occurrence identifier. Leading zeros are kept
// and the ".0" left behind by numeric round-trips is removed.
func Occurrence(v any) string {
	s := strings.TrimSpace(Text(v))
	for strings.HasSuffix(s, ".0") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ".0"))
	}
	return s
}

// Text renders a raw value as a string. nil is the empty string.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006/01/02",
}

// Date parses a date-bearing value. Failures yield the missing marker
// (Valid=false) together with a *domain.ParseError describing why.
func Date(column string, v any, loc *time.Location) (sql.NullTime, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch x := v.(type) {
	case sql.NullTime:
		return x, nil
	case time.Time:
		if x.IsZero() {
			return sql.NullTime{}, nil
		}
		return sql.NullTime{Time: x, Valid: true}, nil
	case nil:
		return sql.NullTime{}, nil
	}
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return sql.NullTime{}, nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
			return sql.NullTime{Time: parsed, Valid: true}, nil
		}
	}
	return sql.NullTime{}, &domain.ParseError{Column: column, Value: v, Err: fmt.Errorf("unsupported date format")}
}

// Impact parses a customer/impact count. The result is always a
// non-negative int; anything unparsable is 0 with a *domain.ParseError.
func Impact(column string, v any) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return clampInt(int64(x)), nil
	case int8:
		return clampInt(int64(x)), nil
	case int16:
		return clampInt(int64(x)), nil
	case int32:
		return clampInt(int64(x)), nil
	case int64:
		return clampInt(x), nil
	case uint8:
		return int(x), nil
	case uint16:
		return int(x), nil
	case uint32:
		return int(x), nil
	case uint64:
		if x > math.MaxInt32 {
			return math.MaxInt32, nil
		}
		return int(x), nil
	case float32:
		return impactFromFloat(column, v, float64(x))
	case float64:
		return impactFromFloat(column, v, x)
	case bool:
		return 0, &domain.ParseError{Column: column, Value: v, Err: fmt.Errorf("boolean is not a count")}
	}

	s := strings.TrimSpace(Text(v))
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clampInt(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return impactFromFloat(column, v, f)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return impactFromFloat(column, v, f)
		}
	}
	return 0, &domain.ParseError{Column: column, Value: v, Err: fmt.Errorf("not a number")}
}

func impactFromFloat(column string, raw any, f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &domain.ParseError{Column: column, Value: raw, Err: fmt.Errorf("not a finite number")}
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return clampInt(int64(f)), nil
}

func clampInt(n int64) int {
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
