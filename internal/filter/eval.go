package filter

import (
	"strings"

	"github.com/otokawa-k/kaonavi-mcp-server/internal/table"
)

// Apply filters a table by a predicate string, returning a new table with
// the same column set and the surviving rows in their original order.
//
// A malformed predicate returns *ParseError; a reference to a column the
// table does not have returns *UnknownColumnError before any row is
// evaluated. Per-row type mismatches and null operands never abort the
// call: the row simply fails the comparison and is excluded.
func Apply(t *table.Table, predicate string) (*table.Table, error) {
	expr, err := Parse(predicate)
	if err != nil {
		return nil, err
	}
	for _, col := range columns(expr, nil) {
		if !t.HasColumn(col) {
			return nil, &UnknownColumnError{Column: col}
		}
	}

	keep := make([]int, 0, len(t.Rows))
	for i := range t.Rows {
		if evalBool(expr, t, i) {
			keep = append(keep, i)
		}
	}
	return t.Select(keep), nil
}

func evalBool(e Expr, t *table.Table, row int) bool {
	switch n := e.(type) {
	case *Logical:
		if n.Op == tokAnd {
			return evalBool(n.Left, t, row) && evalBool(n.Right, t, row)
		}
		return evalBool(n.Left, t, row) || evalBool(n.Right, t, row)
	case *Not:
		return !evalBool(n.Expr, t, row)
	case *Compare:
		return evalCompare(n, t, row)
	case *Contains:
		return evalContains(n, t, row)
	case *NullCheck:
		isNull := resolve(n.Operand, t, row) == nil
		if n.Negate {
			return !isNull
		}
		return isNull
	case *Literal:
		b, ok := n.Val.(bool)
		return ok && b
	case *ColumnRef:
		b, ok := resolve(n, t, row).(bool)
		return ok && b
	}
	return false
}

func evalCompare(c *Compare, t *table.Table, row int) bool {
	// An explicit null literal makes ==/!= behave as a null check.
	if isNullLiteral(c.Right) || isNullLiteral(c.Left) {
		operand := c.Left
		if isNullLiteral(c.Left) {
			operand = c.Right
		}
		isNull := resolve(operand, t, row) == nil
		switch c.Op {
		case tokEq:
			return isNull
		case tokNeq:
			return !isNull
		}
		return false
	}

	l := resolve(c.Left, t, row)
	r := resolve(c.Right, t, row)
	if l == nil || r == nil {
		return false
	}

	if lf, lok := asNumber(l); lok {
		rf, rok := asNumber(r)
		if !rok {
			return false
		}
		return compareFloat(c.Op, lf, rf)
	}
	if ls, lok := l.(string); lok {
		rs, rok := r.(string)
		if !rok {
			return false
		}
		return compareString(c.Op, ls, rs)
	}
	if lb, lok := l.(bool); lok {
		rb, rok := r.(bool)
		if !rok {
			return false
		}
		switch c.Op {
		case tokEq:
			return lb == rb
		case tokNeq:
			return lb != rb
		}
		return false
	}
	return false
}

func evalContains(c *Contains, t *table.Table, row int) bool {
	hay, hok := resolve(c.Haystack, t, row).(string)
	needle, nok := resolve(c.Needle, t, row).(string)
	if !hok || !nok {
		return false
	}
	return strings.Contains(hay, needle)
}

func resolve(e Expr, t *table.Table, row int) table.Value {
	switch n := e.(type) {
	case *ColumnRef:
		return t.Rows[row][t.ColumnIndex(n.Name)]
	case *Literal:
		return n.Val
	}
	return nil
}

func isNullLiteral(e Expr) bool {
	lit, ok := e.(*Literal)
	return ok && lit.Val == nil
}

func asNumber(v table.Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func compareFloat(op tokenType, l, r float64) bool {
	switch op {
	case tokEq:
		return l == r
	case tokNeq:
		return l != r
	case tokGt:
		return l > r
	case tokGte:
		return l >= r
	case tokLt:
		return l < r
	case tokLte:
		return l <= r
	}
	return false
}

func compareString(op tokenType, l, r string) bool {
	switch op {
	case tokEq:
		return l == r
	case tokNeq:
		return l != r
	case tokGt:
		return l > r
	case tokGte:
		return l >= r
	case tokLt:
		return l < r
	case tokLte:
		return l <= r
	}
	return false
}
