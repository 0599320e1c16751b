package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

// Compile reads every table and query from a CUE value shaped like:
//
//	table: people: {
//		type: "Person{name: string, age: int}"
//		rows: [{name: "ann", age: 34}]
//	}
//	query: adults: {
//		source: "people"
//		ops: [{op: "Where", args: ["p => p.age > 30"]}]
//	}
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
func Compile(v cue.Value) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	prog := &Program{}

	tables := v.LookupPath(cue.ParsePath("table"))
	if tables.Exists() {
		iter, err := tables.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			t, err := CompileTable(iter.Value())
			if err != nil {
				return nil, err
			}
			prog.Tables = append(prog.Tables, t)
		}
	}

	queries := v.LookupPath(cue.ParsePath("query"))
	if queries.Exists() {
		iter, err := queries.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			q, err := CompileQuery(iter.Value())
			if err != nil {
				return nil, err
			}
			prog.Queries = append(prog.Queries, q)
		}
	}

	if len(prog.Queries) == 0 {
		return nil, &CompileError{Field: "query", Message: "at least one query is required", Pos: v.Pos()}
	}
	return prog, nil
}

// CompileTable parses one table struct. Its name is the struct label.
func CompileTable(v cue.Value) (*Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	t := &Table{Name: label(v)}
	field := "table." + t.Name

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, &CompileError{Field: field + ".type", Message: "row type is required", Pos: v.Pos()}
	}
	typeText, err := typeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if t.Type, err = expr.ParseType(typeText); err != nil {
		return nil, &CompileError{Field: field + ".type", Message: err.Error(), Pos: typeVal.Pos()}
	}

	rowsVal := v.LookupPath(cue.ParsePath("rows"))
	if !rowsVal.Exists() {
		return t, nil
	}
	iter, err := rowsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t.Rows = ir.IRArray{}
	for i := 0; iter.Next(); i++ {
		row, err := decodeValue(iter.Value())
		if err != nil {
			return nil, err
		}
		if t.Type.Kind == expr.KindRecord {
			if _, ok := row.(ir.IRObject); !ok {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s.rows[%d]", field, i),
					Message: fmt.Sprintf("row must be an object, got %s", ir.KindName(row)),
					Pos:     iter.Value().Pos(),
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// CompileQuery parses one query struct. Its name is the struct label.
func CompileQuery(v cue.Value) (*Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	q := &Query{Name: label(v)}
	field := "query." + q.Name

	sourceVal := v.LookupPath(cue.ParsePath("source"))
	if !sourceVal.Exists() {
		return nil, &CompileError{Field: field + ".source", Message: "source is required", Pos: v.Pos()}
	}
	source, err := sourceVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	q.Source = source

	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return q, nil
	}
	iter, err := opsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		op, err := compileOp(iter.Value(), fmt.Sprintf("%s.ops[%d]", field, i))
		if err != nil {
			return nil, err
		}
		q.Ops = append(q.Ops, op)
	}
	return q, nil
}

func compileOp(v cue.Value, field string) (Op, error) {
	var op Op

	nameVal := v.LookupPath(cue.ParsePath("op"))
	if !nameVal.Exists() {
		return op, &CompileError{Field: field + ".op", Message: "operator name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return op, formatCUEError(err)
	}
	op.Op = name

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		iter, err := argsVal.List()
		if err != nil {
			return op, formatCUEError(err)
		}
		for iter.Next() {
			arg, err := argText(iter.Value())
			if err != nil {
				return op, err
			}
			op.Args = append(op.Args, arg)
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if typeVal.Exists() {
		if op.Type, err = typeVal.String(); err != nil {
			return op, formatCUEError(err)
		}
	}
	return op, nil
}

// argText returns strings as written and other concrete values as JSON
// text, so `args: [2]` and `args: ["2"]` mean the same.
func argText(v cue.Value) (string, error) {
	if v.Kind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return "", formatCUEError(err)
	}
	return string(b), nil
}

// decodeValue converts a concrete CUE value through JSON so decimal
// literals keep their exact digits.
func decodeValue(v cue.Value) (ir.IRValue, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	val, err := ir.UnmarshalIRValue(b)
	if err != nil {
		return nil, &CompileError{Field: "rows", Message: err.Error(), Pos: v.Pos()}
	}
	return val, nil
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
