package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Normalize converts a decoded scalar to one of the canonical value types:
// nil, bool, int64, float64, string or time.Time.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, time.Time:
		return v, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x), nil
	case []byte:
		return string(x), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func normalizeUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return int64(u), nil
}

func valueEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		// NaN is a missing value, equal to itself for comparison purposes.
		return ok && (fa == fb || (math.IsNaN(fa) && math.IsNaN(fb)))
	}
	return a == b
}

// keyOf encodes the values of row r in the given columns as a join key.
// Integral floats encode like ints so 1 and 1.0 join.
func keyOf(cols [][]any, idxs []int, r int) string {
	var b strings.Builder
	for _, i := range idxs {
		writeKey(&b, cols[i][r])
		b.WriteByte(0)
	}
	return b.String()
}

func writeKey(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteByte('n')
	case bool:
		if x {
			b.WriteString("b1")
		} else {
			b.WriteString("b0")
		}
	case int64:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			b.WriteByte('i')
			b.WriteString(strconv.FormatInt(int64(x), 10))
			return
		}
		b.WriteByte('f')
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case string:
		b.WriteByte('s')
		b.WriteString(strconv.Itoa(len(x)))
		b.WriteByte(':')
		b.WriteString(x)
	case time.Time:
		b.WriteByte('t')
		b.WriteString(x.UTC().Format(time.RFC3339Nano))
	default:
		fmt.Fprintf(b, "?%T:%v", v, v)
	}
}
