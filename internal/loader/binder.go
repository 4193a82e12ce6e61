package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"mysql-loader/internal/batch"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// bindValue binds one decoded value to the next column of w, converting it
// to the column's declared type. Values that cannot be converted bind NULL
// instead of failing the row. Timestamps without an offset are read in loc.
func bindValue(w batch.RowWriter, col batch.Column, v any, loc *time.Location) error {
	if v == nil {
		return w.SetNull(col.Type)
	}

	switch t := col.Type; {
	case t == batch.Real:
		f, ok := toFloat(v, 32)
		if !ok {
			return w.SetNull(t)
		}
		if math.Abs(f) > math.MaxFloat32 {
			f = math.Inf(int(math.Copysign(1, f)))
		}
		return w.SetFloat(float32(f))
	case t.IsFloating():
		f, ok := toFloat(v, 64)
		if !ok {
			return w.SetNull(t)
		}
		return w.SetDouble(f)
	case t.IsInteger():
		n, ok := toInt(v)
		if !ok {
			return w.SetNull(t)
		}
		return w.SetLong(n)
	case t == batch.Boolean:
		b, ok := toBool(v)
		if !ok {
			return w.SetNull(t)
		}
		return w.SetBoolean(b)
	case t == batch.Date || t == batch.Time || t == batch.Timestamp:
		ts, ok := toTime(v, loc)
		if !ok {
			return w.SetNull(t)
		}
		return w.SetTimestamp(ts)
	case t == batch.Binary || t == batch.Blob:
		if b, ok := v.([]byte); ok {
			return w.SetBytes(b)
		}
		return w.SetBytes([]byte(toString(v)))
	default:
		return w.SetString(toString(v))
	}
}

// toFloat converts v to a float of the given bit size. Values out of range
// come back as signed infinity so the batch writer can decide what to bind.
func toFloat(v any, bits int) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		return parseFloat(x.String(), bits)
	case string:
		return parseFloat(x, bits)
	case []byte:
		return parseFloat(string(x), bits)
	}
	return 0, false
}

func parseFloat(s string, bits int) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string, []byte, json.Number:
		s := strings.TrimSpace(toString(x))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	f, ok := toFloat(v, 64)
	if !ok || math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(math.Round(f)), true
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	f, ok := toFloat(v, 64)
	if !ok || math.IsNaN(f) {
		return false, false
	}
	return f != 0, true
}

func toTime(v any, loc *time.Location) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
