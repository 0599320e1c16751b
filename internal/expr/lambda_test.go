package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var personType = RecordOf("Person", F("name", String), F("age", Int))

func TestParseLambdaRendering(t *testing.T) {
	tests := []struct {
		src      string
		types    []*Type
		rendered string
		result   string
	}{
		{"p => p.age > 30", []*Type{personType}, "p => (p.age > 30)", "bool"},
		{"(acc, x) => acc + x", []*Type{Int, Int}, "(acc, x) => (acc + x)", "int"},
		{"x => x + 1.5", []*Type{Int}, "x => (x + 1.5)", "float"},
		{"p => {name: p.name, n: 1}", []*Type{personType}, "p => {name: p.name, n: 1}", "{name: string, n: int}"},
		{"p => !(p.age < 18) && p.name != \"bob\"", []*Type{personType}, `p => (!(p.age < 18) && (p.name != "bob"))`, "bool"},
		{"x => -x * 2", []*Type{Long}, "x => (-x * 2)", "long"},
		{"x => x", nil, "x => x", "any"},
		{"x => -3", nil, "x => -3", "int"},
		{"x => 1 + 2 * 3", nil, "x => (1 + (2 * 3))", "int"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			l, err := ParseLambda(tt.src, tt.types...)
			require.NoError(t, err)
			assert.Equal(t, tt.rendered, l.String())
			assert.Equal(t, tt.result, l.Type().String())
		})
	}
}

func TestParseLambdaParameters(t *testing.T) {
	l, err := ParseLambda("(a, b) => a", Int, String)
	require.NoError(t, err)
	require.Len(t, l.Params, 2)
	assert.Equal(t, "a", l.Params[0].Name)
	assert.Same(t, Int, l.Params[0].T)
	assert.Same(t, l.Params[0], l.Body, "body must reference the declared parameter")
}

func TestParseLambdaErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		types   []*Type
		message string
	}{
		{"unknown member", "p => p.salary", []*Type{personType}, `type Person{name: string, age: int} has no member "salary"`},
		{"unknown identifier", "p => q", nil, `unknown identifier "q"`},
		{"arity mismatch", "(a, b) => a", []*Type{Int}, "lambda declares 2 parameters, want 1"},
		{"bad arithmetic", "p => p.name * 2", []*Type{personType}, "operator * not defined for string and int"},
		{"bad logic", "x => x && true", []*Type{Int}, "operator && needs bool operands"},
		{"missing arrow", "x x", nil, `unexpected "x"`},
		{"unterminated", `x => "abc`, nil, "unterminated string"},
		{"duplicate params", "(a, a) => a", nil, `duplicate parameter "a"`},
		{"trailing input", "x => x )", nil, `unexpected ")"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLambda(tt.src, tt.types...)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseExpr(t *testing.T) {
	e, err := ParseExpr("12")
	require.NoError(t, err)
	assert.Equal(t, "12", e.String())
	assert.Same(t, Int, e.Type())

	e, err = ParseExpr(`{a: 1, b: "x"}`)
	require.NoError(t, err)
	assert.Equal(t, `{a: 1, b: "x"}`, e.String())

	_, err = ParseExpr("p.age")
	assert.Error(t, err)
}
