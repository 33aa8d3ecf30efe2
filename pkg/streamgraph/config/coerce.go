package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrConversion is returned by the As* functions when a value cannot be
// represented as the requested type.
var ErrConversion = errors.New("cannot convert value")

func conversionError(v any, to string) error {
	return fmt.Errorf("%w: %v (%T) to %s", ErrConversion, v, v, to)
}

// AsFloat converts numbers and numeric strings to float64.
// YAML and TOML decode integers as int/int64, JSON decodes all numbers as
// float64; all of them are accepted.
func AsFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, conversionError(v, "float")
		}
		return f, nil
	}
	return 0, conversionError(v, "float")
}

// AsInt converts integers, integral floats and integer strings to int.
// A float with a fractional part is rejected.
func AsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int8:
		return int(val), nil
	case int16:
		return int(val), nil
	case int32:
		return int(val), nil
	case int64:
		if val > math.MaxInt || val < math.MinInt {
			return 0, conversionError(v, "int")
		}
		return int(val), nil
	case uint8:
		return int(val), nil
	case uint16:
		return int(val), nil
	case uint32:
		return int(val), nil
	case uint:
		if uint64(val) > math.MaxInt {
			return 0, conversionError(v, "int")
		}
		return int(val), nil
	case uint64:
		if val > math.MaxInt {
			return 0, conversionError(v, "int")
		}
		return int(val), nil
	case float32:
		return AsInt(float64(val))
	case float64:
		if val != math.Trunc(val) || val > math.MaxInt64 || val < math.MinInt64 {
			return 0, conversionError(v, "int")
		}
		return int(val), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, conversionError(v, "int")
		}
		return i, nil
	}
	return 0, conversionError(v, "int")
}

// AsBool converts booleans and strconv.ParseBool strings.
func AsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, conversionError(v, "bool")
		}
		return b, nil
	}
	return false, conversionError(v, "bool")
}

// AsString accepts strings and byte slices. Numbers are not formatted.
func AsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case fmt.Stringer:
		return val.String(), nil
	}
	return "", conversionError(v, "string")
}

// AsDuration converts to time.Duration.
//
// Accepts:
//   - time.Duration: used directly
//   - string: parsed with time.ParseDuration
//   - numbers: interpreted as seconds
func AsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, conversionError(v, "duration")
		}
		return d, nil
	}
	secs, err := AsFloat(v)
	if err != nil {
		return 0, conversionError(v, "duration")
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// AsBytes converts to a byte slice.
//
// Accepts:
//   - []byte: copied
//   - string: its raw bytes
//   - []int, []int64, []any: every element must be an integer in 0..255
func AsBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case string:
		return []byte(val), nil
	case []int:
		return intsToBytes(v, len(val), func(i int) any { return val[i] })
	case []int64:
		return intsToBytes(v, len(val), func(i int) any { return val[i] })
	case []any:
		return intsToBytes(v, len(val), func(i int) any { return val[i] })
	}
	return nil, conversionError(v, "bytes")
}

func intsToBytes(orig any, n int, at func(int) any) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		b, err := AsInt(at(i))
		if err != nil || b < 0 || b > math.MaxUint8 {
			return nil, fmt.Errorf("%w: element %d of %v is not a byte", ErrConversion, i, orig)
		}
		out[i] = byte(b)
	}
	return out, nil
}
