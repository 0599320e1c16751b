package expr

// Rewrite transforms e bottom-up: children are rewritten first, then fn is
// applied to the rebuilt node. Nodes whose children did not change are
// reused, so Rewrite with an identity fn returns e itself.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	return fn(rewriteChildren(e, func(c Expr) Expr { return Rewrite(c, fn) }))
}

// Substitute transforms e top-down: fn sees each node before its children.
// When fn returns ok, its result replaces the node and the node's subtree
// is not visited.
func Substitute(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	return rewriteChildren(e, func(c Expr) Expr { return Substitute(c, fn) })
}

// rewriteChildren rebuilds e with each child replaced by recurse(child).
func rewriteChildren(e Expr, recurse func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Lambda:
		body := recurse(n.Body)
		if body == n.Body {
			return n
		}
		return &Lambda{Params: n.Params, Body: body}
	case *Binary:
		left, right := recurse(n.Left), recurse(n.Right)
		if left == n.Left && right == n.Right {
			return n
		}
		return &Binary{Op: n.Op, Left: left, Right: right}
	case *Unary:
		operand := recurse(n.Operand)
		if operand == n.Operand {
			return n
		}
		return &Unary{Op: n.Op, Operand: operand}
	case *Member:
		target := recurse(n.Target)
		if target == n.Target {
			return n
		}
		m := &Member{Target: target, Name: n.Name, T: n.T}
		if t, ok := target.Type().Field(n.Name); ok && n.T.Kind == KindAny {
			m.T = t
		}
		return m
	case *Record:
		changed := false
		fields := make([]RecordField, len(n.Fields))
		for i, f := range n.Fields {
			v := recurse(f.Value)
			changed = changed || v != f.Value
			fields[i] = RecordField{Name: f.Name, Value: v}
		}
		if !changed {
			return n
		}
		return &Record{Fields: fields}
	case Extension:
		return n.RewriteChildren(recurse)
	default:
		// Constant, Parameter, Table
		return e
	}
}

// Walk visits e and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Children returns the direct sub-expressions of e.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Lambda:
		return []Expr{n.Body}
	case *Binary:
		return []Expr{n.Left, n.Right}
	case *Unary:
		return []Expr{n.Operand}
	case *Member:
		return []Expr{n.Target}
	case *Record:
		out := make([]Expr, len(n.Fields))
		for i, f := range n.Fields {
			out[i] = f.Value
		}
		return out
	case Extension:
		return n.Children()
	default:
		return nil
	}
}

// Replace substitutes every occurrence of target (by identity) in e.
func Replace(e, target, with Expr) Expr {
	return Rewrite(e, func(n Expr) Expr {
		if n == target {
			return with
		}
		return n
	})
}

// Contains reports whether target occurs in e (by identity).
func Contains(e, target Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if n == target {
			found = true
		}
		return !found
	})
	return found
}
