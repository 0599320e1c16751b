package expr

import (
	"testing"

	"github.com/roach88/qmodel/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeAssignableTo(t *testing.T) {
	person := RecordOf("Person", F("name", String), F("age", Int))

	tests := []struct {
		name   string
		from   *Type
		to     *Type
		expect bool
	}{
		{"identity", Int, Int, true},
		{"int to long", Int, Long, true},
		{"int to float", Int, Float, true},
		{"long to int", Long, Int, false},
		{"float to int", Float, Int, false},
		{"anything to any", person, Any, true},
		{"any to int", Any, Int, true},
		{"string to int", String, Int, false},
		{"record identity", person, RecordOf("", F("age", Int), F("name", String)), true},
		{"record mismatch", person, RecordOf("", F("name", String)), false},
		{"sequence covariance", SequenceOf(Int), SequenceOf(Long), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.from.AssignableTo(tt.to))
		})
	}
}

func TestTypeDefault(t *testing.T) {
	assert.Equal(t, ir.IRInt(0), Int.Default())
	assert.Equal(t, ir.IRInt(0), Long.Default())
	assert.Equal(t, ir.IRBool(false), Bool.Default())
	assert.True(t, ir.Equal(ir.IRInt(0), Float.Default()))
	assert.Equal(t, ir.IRNull{}, String.Default())
	assert.Equal(t, ir.IRNull{}, RecordOf("", F("a", Int)).Default())
}

func TestTypeAccepts(t *testing.T) {
	person := RecordOf("", F("name", String), F("age", Int))

	assert.True(t, Int.Accepts(ir.IRInt(1)))
	assert.False(t, Int.Accepts(ir.IRString("1")))
	assert.False(t, Int.Accepts(ir.IRNull{}))
	assert.True(t, String.Accepts(ir.IRString("x")))
	assert.True(t, person.Accepts(ir.IRObject{"name": ir.IRString("a"), "age": ir.IRInt(3)}))
	assert.True(t, person.Accepts(ir.IRObject{"name": ir.IRNull{}, "age": ir.IRInt(3)}))
	assert.False(t, person.Accepts(ir.IRObject{"name": ir.IRString("a")}))
	assert.True(t, Any.Accepts(ir.IRBool(true)))
}

func TestTypeConvert(t *testing.T) {
	v, err := Float.Convert(ir.IRInt(3))
	require.NoError(t, err)
	_, isDecimal := v.(ir.IRDecimal)
	assert.True(t, isDecimal)

	v, err = String.Convert(ir.IRNull{})
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v)

	_, err = Int.Convert(ir.IRString("3"))
	assert.EqualError(t, err, "cannot cast string value to int")
}

func TestParseTypeRoundTrip(t *testing.T) {
	sources := []string{
		"int",
		"seq<string>",
		"{name: string, age: int}",
		"Person{name: string, tags: seq<string>}",
		"grouping<string, {name: string}>",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			typ, err := ParseType(src)
			require.NoError(t, err)
			assert.Equal(t, src, typ.String())
		})
	}
}

func TestParseTypeAliases(t *testing.T) {
	assert.Same(t, Float, MustParseType("decimal"))
	assert.Same(t, Any, MustParseType("any"))
}

func TestParseTypeErrors(t *testing.T) {
	for _, src := range []string{"", "number", "seq<int", "{name string}", "grouping<int>"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseType(src)
			var syntaxErr *SyntaxError
			assert.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestGroupingMembers(t *testing.T) {
	g := GroupingOf(String, Int)

	key, ok := g.Field("key")
	require.True(t, ok)
	assert.Same(t, String, key)

	elements, ok := g.Field("elements")
	require.True(t, ok)
	assert.Equal(t, "seq<int>", elements.String())

	_, ok = g.Field("value")
	assert.False(t, ok)
}
