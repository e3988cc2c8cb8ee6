package templating

import (
	"fmt"
	"reflect"
)

// repeat returns a slice of integers from 0 to count-1.
func repeat(count any) []int {
	n := toInt(count)
	if n < 0 {
		return []int{}
	}
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// list returns a slice containing all the arguments passed to it.
func list(args ...any) []any {
	return args
}

// dict builds a map from alternating keys and values, mostly for passing
// several values to an included header: {{template "card.hamko" dict "title" .Title}}.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict expects an even number of arguments, got %d", len(pairs))
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// first returns the first element of a slice or array, or nil.
func first(slice any) any {
	val := reflect.ValueOf(slice)
	if !isSequence(val) || val.Len() == 0 {
		return nil
	}
	return val.Index(0).Interface()
}

// last returns the last element of a slice or array, or nil.
func last(slice any) any {
	val := reflect.ValueOf(slice)
	if !isSequence(val) || val.Len() == 0 {
		return nil
	}
	return val.Index(val.Len() - 1).Interface()
}

func isSequence(val reflect.Value) bool {
	return val.IsValid() && (val.Kind() == reflect.Slice || val.Kind() == reflect.Array)
}

// and returns true only if all arguments are true.
func and(args ...bool) bool {
	for _, arg := range args {
		if !arg {
			return false
		}
	}
	return true
}

// or returns true if any argument is true.
func or(args ...bool) bool {
	for _, arg := range args {
		if arg {
			return true
		}
	}
	return false
}

// not returns the boolean opposite of its argument.
func not(arg bool) bool {
	return !arg
}
