package store

import "math"

// IsNumeric reports whether v is a Go integer or floating point value.
func IsNumeric(v any) bool {
	_, _, ok := toNumber(v)
	return ok
}

// ValidateIncrements checks that deltas is non-empty, names no "_id" field and
// carries only numeric values.
func ValidateIncrements(deltas map[string]any) error {
	if len(deltas) == 0 {
		return Invalid("no fields to increment")
	}
	for field, delta := range deltas {
		if field == "" {
			return Invalid("empty field name")
		}
		if field == IDField {
			return Invalid("cannot increment %s", IDField)
		}
		if !IsNumeric(delta) {
			return Invalid("delta for %q is not numeric (%T)", field, delta)
		}
	}
	return nil
}

// AddNumbers returns a+b. Integer operands yield an int64, any floating point
// operand yields a float64. ok is false when either value is not numeric or
// the integer sum overflows int64.
func AddNumbers(a, b any) (sum any, ok bool) {
	ai, af, aok := toNumber(a)
	bi, bf, bok := toNumber(b)
	if !aok || !bok {
		return nil, false
	}
	if af == nil && bf == nil {
		if (bi > 0 && ai > math.MaxInt64-bi) || (bi < 0 && ai < math.MinInt64-bi) {
			return nil, false
		}
		return ai + bi, true
	}
	return floatOf(ai, af) + floatOf(bi, bf), true
}

// NormalizeNumber converts Go integer kinds to int64 and float32 to float64.
// Other values are returned unchanged.
func NormalizeNumber(v any) any {
	i, f, ok := toNumber(v)
	if !ok {
		return v
	}
	if f != nil {
		return *f
	}
	return i
}

// IsZeroNumber reports whether v is a numeric zero.
func IsZeroNumber(v any) bool {
	i, f, ok := toNumber(v)
	if !ok {
		return false
	}
	if f != nil {
		return *f == 0
	}
	return i == 0
}

func floatOf(i int64, f *float64) float64 {
	if f != nil {
		return *f
	}
	return float64(i)
}

// toNumber returns the integer value or a pointer to the float value of v.
func toNumber(v any) (int64, *float64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), nil, true
	case int8:
		return int64(n), nil, true
	case int16:
		return int64(n), nil, true
	case int32:
		return int64(n), nil, true
	case int64:
		return n, nil, true
	case uint8:
		return int64(n), nil, true
	case uint16:
		return int64(n), nil, true
	case uint32:
		return int64(n), nil, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, nil, false
		}
		return int64(n), nil, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, nil, false
		}
		return int64(n), nil, true
	case float32:
		f := float64(n)
		return 0, &f, true
	case float64:
		return 0, &n, true
	default:
		return 0, nil, false
	}
}
