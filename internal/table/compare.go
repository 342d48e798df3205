package table

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Kind ranks used when two values of different kinds are compared. Nil sorts
// before everything else.
const (
	rankNil = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankOther
)

// Compare orders two field values, returning -1, 0 or +1. Numbers compare
// numerically regardless of their Go kind, strings lexicographically, times
// chronologically and bools with false first. Values of different kinds are
// ordered by kind and then by their string form.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case rankNil:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		return compareNumbers(a, b)
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return strings.Compare(stringOf(a), stringOf(b))
	}
}

// Equal reports whether a filter value matches a row value. Numbers of
// different kinds are equal when their values are; other values must be
// identical.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := rank(a), rank(b)
	if ra == rankNumber && rb == rankNumber {
		return compareNumbers(a, b) == 0
	}
	if ra == rankTime && rb == rankTime {
		return a.(time.Time).Equal(b.(time.Time))
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return rankNumber
	case time.Time:
		return rankTime
	case string, []byte, fmt.Stringer:
		return rankString
	default:
		return rankOther
	}
}

func compareNumbers(a, b any) int {
	if c, ok := compareIntegers(a, b); ok {
		return c
	}
	af, bf := asFloat(a), asFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// compareIntegers compares a and b exactly when both are integers, including
// unsigned values beyond the int64 range.
func compareIntegers(a, b any) (int, bool) {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		return cmp.Compare(ai, bi), true
	}
	au, aUint := asUint(a)
	bu, bUint := asUint(b)
	switch {
	case aUint && bUint:
		return cmp.Compare(au, bu), true
	case aUint && bInt:
		if bi < 0 {
			return 1, true
		}
		return cmp.Compare(au, uint64(bi)), true
	case aInt && bUint:
		if ai < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(ai), bu), true
	}
	return 0, false
}

func asUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	}
	return 0, false
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// stringOf returns the plain string form of a value, used for search
// matching, filter option labels and default cell rendering.
func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
