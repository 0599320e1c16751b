package ir

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AsDecimal converts a numeric value to a decimal.
// ok is false for non-numeric values.
func AsDecimal(v IRValue) (d decimal.Decimal, ok bool) {
	switch val := v.(type) {
	case IRInt:
		return decimal.NewFromInt(int64(val)), true
	case IRDecimal:
		return val.Decimal, true
	default:
		return decimal.Decimal{}, false
	}
}

// IsNumeric reports whether v is an IRInt or IRDecimal.
func IsNumeric(v IRValue) bool {
	_, ok := AsDecimal(v)
	return ok
}

// Equal reports whether two values are structurally equal.
// Numbers compare by value across IRInt and IRDecimal.
func Equal(a, b IRValue) bool {
	if da, ok := AsDecimal(a); ok {
		db, ok := AsDecimal(b)
		return ok && da.Equal(db)
	}

	switch av := a.(type) {
	case nil, IRNull:
		switch b.(type) {
		case nil, IRNull:
			return true
		}
		return false
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	case IRGrouping:
		bv, ok := b.(IRGrouping)
		return ok && Equal(av.Key, bv.Key) && Equal(av.Elements, bv.Elements)
	default:
		return false
	}
}

// Compare orders two values for sorting, Min and Max.
// Null sorts before everything. Numbers compare by value, strings
// lexically, false before true. Arrays compare element-wise.
// Values of unrelated kinds are not comparable and return an error.
func Compare(a, b IRValue) (int, error) {
	aNull, bNull := isNull(a), isNull(b)
	switch {
	case aNull && bNull:
		return 0, nil
	case aNull:
		return -1, nil
	case bNull:
		return 1, nil
	}

	if da, ok := AsDecimal(a); ok {
		db, ok := AsDecimal(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", KindName(a), KindName(b))
		}
		return da.Cmp(db), nil
	}

	switch av := a.(type) {
	case IRString:
		if bv, ok := b.(IRString); ok {
			return strings.Compare(string(av), string(bv)), nil
		}
	case IRBool:
		if bv, ok := b.(IRBool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !bool(av):
				return -1, nil
			default:
				return 1, nil
			}
		}
	case IRArray:
		if bv, ok := b.(IRArray); ok {
			for i := 0; i < len(av) && i < len(bv); i++ {
				c, err := Compare(av[i], bv[i])
				if err != nil || c != 0 {
					return c, err
				}
			}
			return compareInts(len(av), len(bv)), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", KindName(a), KindName(b))
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isNull(v IRValue) bool {
	switch v.(type) {
	case nil, IRNull:
		return true
	}
	return false
}

// KindName returns a short name for the value's kind, used in diagnostics.
func KindName(v IRValue) string {
	switch v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return "string"
	case IRInt:
		return "int"
	case IRDecimal:
		return "decimal"
	case IRBool:
		return "bool"
	case IRArray:
		return "array"
	case IRObject:
		return "object"
	case IRGrouping:
		return "grouping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
