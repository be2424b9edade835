package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date with no time-of-day component, formatted on the
// wire as ISO YYYY-MM-DD.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Clock is a time-of-day with no date component, formatted on the wire as
// HH:MM:SS with an optional .ffffff microsecond suffix.
type Clock struct {
	Hour    int
	Minute  int
	Second  int
	Micros  int
	HasFrac bool
}

// boolConverter implements both the true/false and yes/no wire spellings
// for bool, selected via SetBoolStyle.
type boolConverter struct {
	trueWord, falseWord string
}

func (b boolConverter) FromString(s string) (any, error) {
	return strings.EqualFold(s, b.trueWord), nil
}

func (b boolConverter) ToString(v any) (string, error) {
	asBool, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("convert: %v is not a bool", v)
	}
	if asBool {
		return b.trueWord, nil
	}
	return b.falseWord, nil
}

var trueFalseConverter = boolConverter{trueWord: "true", falseWord: "false"}
var yesNoConverter = boolConverter{trueWord: "yes", falseWord: "no"}

type intConverter struct{}

func (intConverter) FromString(s string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("convert: %q is not an integer: %w", s, err)
	}
	return n, nil
}

func (intConverter) ToString(v any) (string, error) {
	n, err := asInt64(v)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	}
	return 0, fmt.Errorf("convert: %v is not an integer", v)
}

type floatConverter struct{}

func (floatConverter) FromString(s string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("convert: %q is not a float: %w", s, err)
	}
	return f, nil
}

func (floatConverter) ToString(v any) (string, error) {
	switch f := v.(type) {
	case float64:
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits()), nil
	}
	return "", fmt.Errorf("convert: %v is not a float", v)
}

type dateConverter struct{}

func (dateConverter) FromString(s string) (any, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("convert: %q is not an ISO date: %w", s, err)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

func (dateConverter) ToString(v any) (string, error) {
	d, ok := v.(Date)
	if !ok {
		return "", fmt.Errorf("convert: %v is not a Date", v)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day), nil
}

type timeConverter struct{}

func (timeConverter) FromString(s string) (any, error) {
	main, frac, hasFrac := strings.Cut(s, ".")
	parts := strings.Split(main, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("convert: %q is not an HH:MM:SS time", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("convert: %q is not an HH:MM:SS time", s)
	}
	c := Clock{Hour: h, Minute: m, Second: sec}
	if hasFrac {
		micros, err := strconv.Atoi(frac)
		if err != nil {
			return nil, fmt.Errorf("convert: %q has an invalid fractional part: %w", s, err)
		}
		c.Micros = micros
		c.HasFrac = true
	}
	return c, nil
}

func (timeConverter) ToString(v any) (string, error) {
	c, ok := v.(Clock)
	if !ok {
		return "", fmt.Errorf("convert: %v is not a Clock", v)
	}
	base := fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	if c.HasFrac {
		return fmt.Sprintf("%s.%06d", base, c.Micros), nil
	}
	return base, nil
}

type datetimeConverter struct{}

func (d datetimeConverter) FromString(s string) (any, error) {
	datePart, timePart, ok := strings.Cut(s, " ")
	if !ok {
		return nil, fmt.Errorf("convert: %q is not a %q-separated datetime", s, " ")
	}
	date, err := dateConverter{}.FromString(datePart)
	if err != nil {
		return nil, err
	}
	clock, err := timeConverter{}.FromString(timePart)
	if err != nil {
		return nil, err
	}
	return DateTime{Date: date.(Date), Clock: clock.(Clock)}, nil
}

func (d datetimeConverter) ToString(v any) (string, error) {
	dt, ok := v.(DateTime)
	if !ok {
		return "", fmt.Errorf("convert: %v is not a DateTime", v)
	}
	datePart, err := dateConverter{}.ToString(dt.Date)
	if err != nil {
		return "", err
	}
	timePart, err := timeConverter{}.ToString(dt.Clock)
	if err != nil {
		return "", err
	}
	return datePart + " " + timePart, nil
}

// DateTime is the combination of Date and Clock, formatted on the wire as
// "<date> <time>" with a single space separator.
type DateTime struct {
	Date
	Clock
}

// defaultConverter stringifies with the value's natural Go formatting and
// forbids parsing, matching the original's fallback Converter base class.
type defaultConverter struct{}

func (defaultConverter) FromString(s string) (any, error) {
	return nil, fmt.Errorf("convert: no converter registered to parse %q", s)
}

func (defaultConverter) ToString(v any) (string, error) {
	return fmt.Sprintf("%v", v), nil
}
