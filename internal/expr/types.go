package expr

import (
	"fmt"
	"strings"

	"github.com/roach88/qmodel/internal/ir"
	"github.com/shopspring/decimal"
)

// Kind discriminates type descriptors.
type Kind int

const (
	KindAny Kind = iota
	KindBool
	KindInt
	KindLong
	KindFloat
	KindString
	KindRecord
	KindSequence
	KindGrouping
)

var kindNames = map[Kind]string{
	KindAny:      "any",
	KindBool:     "bool",
	KindInt:      "int",
	KindLong:     "long",
	KindFloat:    "float",
	KindString:   "string",
	KindRecord:   "record",
	KindSequence: "seq",
	KindGrouping: "grouping",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Field is one named member of a record type.
type Field struct {
	Name string
	Type *Type
}

// Type describes the static type of an expression or of the items
// flowing through a query. Types are immutable once built.
type Type struct {
	Kind   Kind
	Name   string  // optional record name
	Fields []Field // KindRecord, in declaration order
	Elem   *Type   // KindSequence and KindGrouping
	Key    *Type   // KindGrouping
}

// Shared scalar types.
var (
	Any    = &Type{Kind: KindAny}
	Bool   = &Type{Kind: KindBool}
	Int    = &Type{Kind: KindInt}
	Long   = &Type{Kind: KindLong}
	Float  = &Type{Kind: KindFloat}
	String = &Type{Kind: KindString}
)

// RecordOf builds a record type. name may be empty.
func RecordOf(name string, fields ...Field) *Type {
	return &Type{Kind: KindRecord, Name: name, Fields: fields}
}

// F is shorthand for a record Field.
func F(name string, t *Type) Field {
	return Field{Name: name, Type: t}
}

// SequenceOf builds the type of a sequence of elem.
func SequenceOf(elem *Type) *Type {
	return &Type{Kind: KindSequence, Elem: elem}
}

// GroupingOf builds the type of one group: a key plus its elements.
func GroupingOf(key, elem *Type) *Type {
	return &Type{Kind: KindGrouping, Key: key, Elem: elem}
}

// String renders the type in the same syntax ParseType accepts.
func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case KindRecord:
		var b strings.Builder
		b.WriteString(t.Name)
		b.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			b.WriteString(f.Type.String())
		}
		b.WriteByte('}')
		return b.String()
	case KindSequence:
		return "seq<" + t.Elem.String() + ">"
	case KindGrouping:
		return "grouping<" + t.Key.String() + ", " + t.Elem.String() + ">"
	default:
		return t.Kind.String()
	}
}

// Field returns the type of the named member.
// Groupings expose key, elements and count.
func (t *Type) Field(name string) (*Type, bool) {
	switch t.Kind {
	case KindAny:
		return Any, true
	case KindRecord:
		for _, f := range t.Fields {
			if f.Name == name {
				return f.Type, true
			}
		}
	case KindGrouping:
		switch name {
		case "key":
			return t.Key, true
		case "elements":
			return SequenceOf(t.Elem), true
		case "count":
			return Int, true
		}
	}
	return nil, false
}

// Equal reports structural type identity. Record fields compare as a set.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindRecord:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for _, f := range t.Fields {
			ft, ok := o.Field(f.Name)
			if !ok || !f.Type.Equal(ft) {
				return false
			}
		}
		return true
	case KindSequence:
		return t.Elem.Equal(o.Elem)
	case KindGrouping:
		return t.Key.Equal(o.Key) && t.Elem.Equal(o.Elem)
	default:
		return true
	}
}

// numericRank orders the numeric kinds for implicit widening.
func numericRank(k Kind) int {
	switch k {
	case KindInt:
		return 1
	case KindLong:
		return 2
	case KindFloat:
		return 3
	default:
		return 0
	}
}

// IsNumeric reports whether t is int, long or float.
func (t *Type) IsNumeric() bool {
	return t != nil && numericRank(t.Kind) > 0
}

// IsIntegral reports whether t is int or long.
func (t *Type) IsIntegral() bool {
	return t != nil && (t.Kind == KindInt || t.Kind == KindLong)
}

// AssignableTo reports whether a value of type t can be used where target
// is expected: identity, anything to or from any, and int -> long -> float
// widening.
func (t *Type) AssignableTo(target *Type) bool {
	if t == nil || target == nil {
		return false
	}
	if t.Kind == KindAny || target.Kind == KindAny {
		return true
	}
	if t.IsNumeric() && target.IsNumeric() {
		return numericRank(t.Kind) <= numericRank(target.Kind)
	}
	if t.Kind == KindSequence && target.Kind == KindSequence {
		return t.Elem.AssignableTo(target.Elem)
	}
	return t.Equal(target)
}

// Widen returns the smallest type both a and b are assignable to, or nil.
func Widen(a, b *Type) *Type {
	switch {
	case a.AssignableTo(b) && b.Kind != KindAny:
		return b
	case b.AssignableTo(a):
		return a
	default:
		return nil
	}
}

// Default returns the value a missing item of type t takes:
// zero for numbers, false for bool, null for everything else.
func (t *Type) Default() ir.IRValue {
	switch t.Kind {
	case KindInt, KindLong:
		return ir.IRInt(0)
	case KindFloat:
		return ir.NewIRDecimal(decimal.Zero)
	case KindBool:
		return ir.IRBool(false)
	default:
		return ir.IRNull{}
	}
}

// Accepts reports whether v is a non-null instance of t at run time.
func (t *Type) Accepts(v ir.IRValue) bool {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return false
	case ir.IRBool:
		return t.Kind == KindAny || t.Kind == KindBool
	case ir.IRInt:
		return t.Kind == KindAny || t.IsIntegral()
	case ir.IRDecimal:
		return t.Kind == KindAny || t.Kind == KindFloat
	case ir.IRString:
		return t.Kind == KindAny || t.Kind == KindString
	case ir.IRGrouping:
		return t.Kind == KindAny || t.Kind == KindGrouping
	case ir.IRArray:
		if t.Kind == KindAny {
			return true
		}
		if t.Kind != KindSequence {
			return false
		}
		for _, elem := range val {
			if !ir.Equal(elem, ir.IRNull{}) && !t.Elem.Accepts(elem) {
				return false
			}
		}
		return true
	case ir.IRObject:
		if t.Kind == KindAny {
			return true
		}
		if t.Kind != KindRecord {
			return false
		}
		for _, f := range t.Fields {
			fv, ok := val[f.Name]
			if !ok {
				return false
			}
			if !ir.Equal(fv, ir.IRNull{}) && !f.Type.Accepts(fv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Convert coerces v to t for Cast. Integers widen to decimals; anything
// else must already be accepted by t. Null passes through.
func (t *Type) Convert(v ir.IRValue) (ir.IRValue, error) {
	if ir.Equal(v, ir.IRNull{}) || t.Accepts(v) {
		return v, nil
	}
	if n, ok := v.(ir.IRInt); ok && t.Kind == KindFloat {
		return ir.NewIRDecimal(decimal.NewFromInt(int64(n))), nil
	}
	return nil, fmt.Errorf("cannot cast %s value to %s", ir.KindName(v), t)
}
