package filter

import "github.com/otokawa-k/kaonavi-mcp-server/internal/table"

// Expr is a node in the parsed predicate tree. The tree is transient:
// parsed per call and evaluated by direct interpretation, never cached.
type Expr interface {
	exprNode()
}

// ColumnRef references a table column by name.
type ColumnRef struct {
	Name string
}

// Literal holds a scalar constant: nil, bool, int64, float64, or string.
type Literal struct {
	Val table.Value
}

// Compare applies a comparison operator to two operands.
type Compare struct {
	Op    tokenType // tokEq, tokNeq, tokGt, tokGte, tokLt, tokLte
	Left  Expr
	Right Expr
}

// Contains tests string containment of Needle within Haystack.
type Contains struct {
	Haystack Expr
	Needle   Expr
}

// NullCheck implements "col is null" / "col is not null".
type NullCheck struct {
	Operand Expr
	Negate  bool
}

// Logical combines two boolean subtrees with and/or.
type Logical struct {
	Op    tokenType // tokAnd, tokOr
	Left  Expr
	Right Expr
}

// Not negates a boolean subtree.
type Not struct {
	Expr Expr
}

func (*ColumnRef) exprNode() {}
func (*Literal) exprNode()   {}
func (*Compare) exprNode()   {}
func (*Contains) exprNode()  {}
func (*NullCheck) exprNode() {}
func (*Logical) exprNode()   {}
func (*Not) exprNode()       {}

// columns appends every column name referenced under e, in reference order.
func columns(e Expr, out []string) []string {
	switch n := e.(type) {
	case *ColumnRef:
		out = append(out, n.Name)
	case *Compare:
		out = columns(n.Left, out)
		out = columns(n.Right, out)
	case *Contains:
		out = columns(n.Haystack, out)
		out = columns(n.Needle, out)
	case *NullCheck:
		out = columns(n.Operand, out)
	case *Logical:
		out = columns(n.Left, out)
		out = columns(n.Right, out)
	case *Not:
		out = columns(n.Expr, out)
	}
	return out
}
