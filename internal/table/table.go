package table

import (
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is one scalar cell: nil, bool, int64, float64, or string.
// The Flattener guarantees no other dynamic types appear in a Table.
type Value any

// Table is an ordered sequence of rows sharing one column set.
// Every row has exactly len(Columns) cells; missing upstream values
// are explicit nils, never omitted. Row order is upstream insertion
// order and is preserved through filtering.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// ColumnIndex returns the position of a column, or -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the column exists in the table's column set.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Select returns a new Table with the same column set containing only the
// rows whose indices appear in keep, in the given order. Rows are shared,
// not copied; tables are treated as immutable after construction.
func (t *Table) Select(keep []int) *Table {
	rows := make([][]Value, 0, len(keep))
	for _, i := range keep {
		rows = append(rows, t.Rows[i])
	}
	return &Table{Columns: t.Columns, Rows: rows}
}

// Records renders each row as an ordered column-name-to-value mapping, in
// table column order. The ordered maps marshal to JSON objects whose key
// order matches the column order.
func (t *Table) Records() []*orderedmap.OrderedMap[string, Value] {
	out := make([]*orderedmap.OrderedMap[string, Value], 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := orderedmap.New[string, Value](len(t.Columns))
		for i, col := range t.Columns {
			rec.Set(col, row[i])
		}
		out = append(out, rec)
	}
	return out
}

// MarshalRows serializes the table's rows as a JSON array of objects in
// column order.
func (t *Table) MarshalRows() ([]byte, error) {
	b, err := json.MarshalIndent(t.Records(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("table: marshal rows: %w", err)
	}
	return b, nil
}

// RenderValue converts a cell to its canonical string form, used by schema
// sampling and the string side of filter comparisons. Nil renders empty.
func RenderValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
