package attribute

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the wire format of date attributes. Values are written
// in UTC, which renders the offset as "Z"; any ±HH:MM offset is accepted on
// decode.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Stepper bounds for custom:favorite_number.
const (
	StepperMin = 1
	StepperMax = 100
)

// DecodeTime parses an ISO-8601 attribute value at millisecond precision.
func DecodeTime(value string) (time.Time, bool) {
	t, err := time.Parse(TimestampLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EncodeTime formats t in UTC, truncated to milliseconds.
func EncodeTime(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimestampLayout)
}

// DecodeNumber parses a stepper value. Integers of any magnitude are clamped
// into range; only input that is not an integer yields StepperMin and false.
func DecodeNumber(value string) (int, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return StepperMin, false
	}
	// out of range for int64, n is ±MaxInt64
	switch {
	case n < StepperMin:
		return StepperMin, true
	case n > StepperMax:
		return StepperMax, true
	}
	return int(n), true
}

// EncodeNumber clamps n and formats it.
func EncodeNumber(n int) string {
	return strconv.Itoa(ClampNumber(n))
}

func ClampNumber(n int) int {
	if n < StepperMin {
		return StepperMin
	}
	if n > StepperMax {
		return StepperMax
	}
	return n
}

// DecodeBool reports whether value is "true", ignoring case.
func DecodeBool(value string) bool {
	return strings.EqualFold(value, "true")
}

func EncodeBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Normalize rewrites a value for storage under kind. Only stepper values are
// changed: integers are clamped into [StepperMin, StepperMax]. Anything that
// does not parse is kept verbatim.
func Normalize(kind Kind, value string) string {
	if kind != KindStepper {
		return value
	}
	n, ok := DecodeNumber(value)
	if !ok {
		return value
	}
	return EncodeNumber(n)
}
