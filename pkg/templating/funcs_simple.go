package templating

import (
	"math"
	"reflect"
	"strconv"
)

// toInt converts the numeric kinds that reach templates (ints from literals,
// float64 from JSON site data, numeric strings) to an int. Anything else is 0.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case uint:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(math.Trunc(n))
	case float32:
		return int(math.Trunc(float64(n)))
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

// add returns a + b.
func add(a, b any) int {
	return toInt(a) + toInt(b)
}

// sub returns a - b.
func sub(a, b any) int {
	return toInt(a) - toInt(b)
}

// div returns a / b (integer division). Returns 0 if b is 0.
func div(a, b any) int {
	if toInt(b) == 0 {
		return 0
	}
	return toInt(a) / toInt(b)
}

// mult returns a * b.
func mult(a, b any) int {
	return toInt(a) * toInt(b)
}

// max returns the maximum of a and b.
//
//goland:noinspection GoReservedWordUsedAsName
func max(a, b any) int {
	x, y := toInt(a), toInt(b)
	if x > y {
		return x
	}
	return y
}

// min returns the minimum of a and b.
//
//goland:noinspection GoReservedWordUsedAsName
func min(a, b any) int {
	x, y := toInt(a), toInt(b)
	if x < y {
		return x
	}
	return y
}

// mod returns a % b. Returns 0 if b is 0.
func mod(a, b any) int {
	if toInt(b) == 0 {
		return 0
	}
	return toInt(a) % toInt(b)
}

// inc returns i + 1.
func inc(i any) int {
	return toInt(i) + 1
}

// dec returns i - 1.
func dec(i any) int {
	return toInt(i) - 1
}

// isSet returns true if a value is not its zero value.
func isSet(val any) bool {
	v := reflect.ValueOf(val)
	if !v.IsValid() {
		return false
	}
	return !v.IsZero()
}
