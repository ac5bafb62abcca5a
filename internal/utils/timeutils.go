package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// spaceSeparatedLayout covers SQL-style date-times some publishers emit.
const spaceSeparatedLayout = "2006-01-02 15:04:05"

// ParseTimestamp accepts RFC3339 and ISO-8601 date-times. Values without a zone are
// interpreted as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := iso8601.ParseString(value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(spaceSeparatedLayout, value, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse time %q: unsupported layout", value)
}

// MinutesBefore returns t shifted back by the given number of minutes.
func MinutesBefore(t time.Time, minutes int) time.Time {
	return t.Add(-time.Duration(minutes) * time.Minute)
}

// FormatTimestamp renders t in UTC using RFC3339 with nanosecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
