package fhirpath

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// NullValue is the type of Null.
type NullValue struct{}

// Null is the value of the {} literal. Results treat it as an empty
// collection.
var Null = NullValue{}

func (NullValue) String() string { return "{}" }

// EmptyOperand is the type of Empty.
type EmptyOperand struct{}

// Empty marks an absent operand slot. It is distinct from Null, which is a
// value.
var Empty = EmptyOperand{}

// Date is a date literal value, kept with the precision it was written in.
type Date struct {
	t      time.Time
	layout string
}

// DateTime is a dateTime literal value.
type DateTime struct {
	t      time.Time
	layout string
}

// Time is a time-of-day literal value.
type Time struct {
	t      time.Time
	layout string
}

// Quantity is a quantity literal such as 5 'mg' or 4 days.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02T15Z07:00",
	"2006-01-02T15",
	"2006-01-02T",
	"2006-01-02",
	"2006-01",
	"2006",
}

var timeLayouts = []string{
	"15:04:05.999999999",
	"15:04",
	"15",
}

func parseLayouts(s string, layouts []string) (time.Time, string, error) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, l, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("cannot parse %q", s)
}

// ParseDate parses an ISO-8601 date of year, month or day precision.
func ParseDate(s string) (Date, error) {
	t, l, err := parseLayouts(s, dateLayouts)
	if err != nil {
		return Date{}, fmt.Errorf("date: %w", err)
	}
	return Date{t: t, layout: l}, nil
}

// ParseDateTime parses an ISO-8601 dateTime of any precision down to
// nanoseconds, with an optional zone.
func ParseDateTime(s string) (DateTime, error) {
	t, l, err := parseLayouts(s, dateTimeLayouts)
	if err != nil {
		return DateTime{}, fmt.Errorf("dateTime: %w", err)
	}
	return DateTime{t: t, layout: l}, nil
}

// ParseTime parses an ISO-8601 time of day (hh, hh:mm, hh:mm:ss[.fff]).
func ParseTime(s string) (Time, error) {
	t, l, err := parseLayouts(s, timeLayouts)
	if err != nil {
		return Time{}, fmt.Errorf("time: %w", err)
	}
	return Time{t: t, layout: l}, nil
}

func (d Date) Time() time.Time     { return d.t }
func (d DateTime) Time() time.Time { return d.t }
func (t Time) Time() time.Time     { return t.t }

func (d Date) String() string     { return d.t.Format(d.layout) }
func (d DateTime) String() string { return d.t.Format(d.layout) }
func (t Time) String() string     { return t.t.Format(t.layout) }

func (d Date) MarshalJSON() ([]byte, error)     { return json.Marshal(d.String()) }
func (d DateTime) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }
func (t Time) MarshalJSON() ([]byte, error)     { return json.Marshal(t.String()) }

func (q Quantity) String() string {
	return strconv.FormatFloat(q.Value, 'f', -1, 64) + " '" + q.Unit + "'"
}

// isScalarType lists struct types the element tree must not descend into.
func isScalarType(v interface{}) bool {
	switch v.(type) {
	case time.Time, Date, DateTime, Time, Quantity, NullValue, json.Number:
		return true
	}
	return false
}

// normalize unwraps elements and pointers and maps every numeric kind to
// int64 or float64, every string kind to string and every bool kind to
// bool, so that values decoded from JSON compare equal to typed model
// values and folded literals. Null and nil both normalize to nil.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil, NullValue:
		return nil
	case *Element:
		if x == nil {
			return nil
		}
		return normalize(x.value)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return string(x)
	case int64, float64, string, bool, time.Time, Date, DateTime, Time, Quantity:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// asTime extracts a point in time from v. A string is parsed only when the
// other operand is temporal, using that operand's kind to pick the layouts.
func asTime(v, other interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case Date:
		return x.t, true
	case DateTime:
		return x.t, true
	case Time:
		return x.t, true
	case time.Time:
		return x, true
	case string:
		var (
			t   time.Time
			err error
		)
		switch other.(type) {
		case Date:
			var d Date
			d, err = ParseDate(x)
			t = d.t
		case DateTime, time.Time:
			var dt DateTime
			dt, err = ParseDateTime(x)
			t = dt.t
		case Time:
			var tm Time
			tm, err = ParseTime(x)
			return tm.t, err == nil
		default:
			return time.Time{}, false
		}
		if err == nil {
			return t, true
		}
		if t, err = dateparse.ParseStrict(x); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func compareTemporal(a, b interface{}) (int, bool) {
	ta, ok := asTime(a, b)
	if !ok {
		return 0, false
	}
	tb, ok := asTime(b, a)
	if !ok {
		return 0, false
	}
	switch {
	case ta.Before(tb):
		return -1, true
	case ta.After(tb):
		return 1, true
	}
	return 0, true
}

// valuesEqual compares two values structurally after normalization.
// Slices compare item by item and string-keyed maps key by key.
func valuesEqual(a, b interface{}) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		return ok && x == y
	}
	if c, ok := compareTemporal(a, b); ok {
		return c == 0
	}

	switch x := a.(type) {
	case []interface{}:
		y, ok := b.([]interface{})
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		y, ok := b.(map[string]interface{})
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !valuesEqual(xv, yv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values. The second return is false when the
// values are not mutually comparable.
func compareValues(a, b interface{}) (int, bool) {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return 0, false
	}
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if c, ok := compareTemporal(a, b); ok {
		return c, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case Quantity:
		y, ok := b.(Quantity)
		if !ok || x.Unit != y.Unit {
			return 0, false
		}
		switch {
		case x.Value < y.Value:
			return -1, true
		case x.Value > y.Value:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// isEmptyValue reports whether v is absent: nil, a nil pointer, an empty
// string or a zero-length list or map.
func isEmptyValue(v interface{}) bool {
	switch x := v.(type) {
	case nil, NullValue:
		return true
	case string:
		return x == ""
	case []interface{}:
		return len(x) == 0
	case map[string]interface{}:
		return len(x) == 0
	}
	if isScalarType(v) {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
