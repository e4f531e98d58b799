package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// ErrMalformedData indicates the upstream batch cannot be flattened: the
// payload is not an array of objects, or a multi-valued field has no
// defined flattening rule and a value would be silently dropped.
var ErrMalformedData = errors.New("table: malformed upstream data")

// pathSeparator joins nested field names into column names
// (department.code, custom_fields.血液型).
const pathSeparator = "."

// multiValueSeparator joins array-of-scalar values into one cell
// (hierarchical department paths, repeated custom-field values).
const multiValueSeparator = " / "

// FlattenMembers converts an upstream member_data JSON array into a Table.
// Columns are the union of flattened field names across all records in
// first-seen order; records missing a field get an explicit nil.
func FlattenMembers(raw []byte) (*Table, error) {
	b := newBuilder()
	if err := eachRecord(raw, func(rec []byte) error {
		row := b.newRow()
		return flattenInto(row, "", rec)
	}); err != nil {
		return nil, err
	}
	return b.table(), nil
}

// FlattenSheet converts an upstream sheet member_data JSON array into a
// Table. Each member entry is {code, records: [...]}; every element of
// records becomes its own row carrying the member-level fields (code
// first). A member without records yields a single row of member-level
// fields only.
func FlattenSheet(raw []byte) (*Table, error) {
	b := newBuilder()
	if err := eachRecord(raw, func(member []byte) error {
		var base []cell
		baseRow := &row{set: func(name string, v Value) error {
			base = append(base, cell{name, v})
			return nil
		}}
		var records [][]byte
		err := jsonparser.ObjectEach(member, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
			if string(key) == "records" {
				if vt != jsonparser.Array {
					return fmt.Errorf("%w: records is not an array", ErrMalformedData)
				}
				return eachElement(value, func(rec []byte, rt jsonparser.ValueType) error {
					if rt != jsonparser.Object {
						return fmt.Errorf("%w: sheet record is not an object", ErrMalformedData)
					}
					records = append(records, rec)
					return nil
				})
			}
			return flattenField(baseRow, string(key), value, vt)
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			r := b.newRow()
			return replay(r, base)
		}
		for _, rec := range records {
			r := b.newRow()
			if err := replay(r, base); err != nil {
				return err
			}
			if err := flattenInto(r, "", rec); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return b.table(), nil
}

type cell struct {
	name string
	val  Value
}

func replay(r *row, cells []cell) error {
	for _, c := range cells {
		if err := r.set(c.name, c.val); err != nil {
			return err
		}
	}
	return nil
}

// eachRecord walks a JSON array of objects, failing when the batch is not
// a sequence of maps.
func eachRecord(raw []byte, fn func(rec []byte) error) error {
	if first := firstByte(raw); first != '[' {
		return fmt.Errorf("%w: batch is not a JSON array", ErrMalformedData)
	}
	return eachElement(raw, func(value []byte, vt jsonparser.ValueType) error {
		if vt != jsonparser.Object {
			return fmt.Errorf("%w: batch element is not an object", ErrMalformedData)
		}
		return fn(value)
	})
}

// eachElement iterates a JSON array, surfacing the first callback error.
// jsonparser.ArrayEach does not propagate callback errors itself.
func eachElement(data []byte, fn func(value []byte, vt jsonparser.ValueType) error) error {
	var walkErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, vt jsonparser.ValueType, _ int, cbErr error) {
		if walkErr != nil {
			return
		}
		if cbErr != nil {
			walkErr = cbErr
			return
		}
		walkErr = fn(value, vt)
	})
	if walkErr != nil {
		return walkErr
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	return nil
}

// flattenInto walks one nested record object and writes scalar cells.
func flattenInto(r *row, prefix string, obj []byte) error {
	return jsonparser.ObjectEach(obj, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		name := string(key)
		if prefix != "" {
			name = prefix + pathSeparator + name
		}
		return flattenField(r, name, value, vt)
	})
}

func flattenField(r *row, name string, value []byte, vt jsonparser.ValueType) error {
	switch vt {
	case jsonparser.Object:
		return flattenInto(r, name, value)
	case jsonparser.Array:
		return flattenArray(r, name, value)
	default:
		v, err := scalarValue(value, vt)
		if err != nil {
			return err
		}
		return r.set(name, v)
	}
}

// flattenArray applies the two defined multi-value rules: arrays of
// scalars join into one cell, and arrays of {name, values} groups
// (Kaonavi custom fields) become one column per group. Any other
// array-of-object shape is ambiguous and rejected.
func flattenArray(r *row, name string, arr []byte) error {
	var scalars []string
	var groups [][]byte
	mixed := false
	err := eachElement(arr, func(value []byte, vt jsonparser.ValueType) error {
		switch vt {
		case jsonparser.Object:
			if len(scalars) > 0 {
				mixed = true
				return nil
			}
			groups = append(groups, value)
		case jsonparser.Array:
			mixed = true
		default:
			if len(groups) > 0 {
				mixed = true
				return nil
			}
			v, err := scalarValue(value, vt)
			if err != nil {
				return err
			}
			scalars = append(scalars, RenderValue(v))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if mixed {
		return fmt.Errorf("%w: field %q mixes shapes with no flattening rule", ErrMalformedData, name)
	}
	if len(groups) > 0 {
		for _, g := range groups {
			if err := flattenGroup(r, name, g); err != nil {
				return err
			}
		}
		return nil
	}
	if len(scalars) == 0 {
		return r.set(name, nil)
	}
	return r.set(name, strings.Join(scalars, multiValueSeparator))
}

// flattenGroup handles one {name, values} custom-field group, producing a
// column named <parent>.<group name> with its values joined.
func flattenGroup(r *row, parent string, group []byte) error {
	label, err := jsonparser.GetString(group, "name")
	if err != nil {
		return fmt.Errorf("%w: field %q contains objects without a name/values shape", ErrMalformedData, parent)
	}
	values, vt, _, err := jsonparser.Get(group, "values")
	if err != nil || vt != jsonparser.Array {
		return fmt.Errorf("%w: custom field %q has no values array", ErrMalformedData, label)
	}
	var rendered []string
	if err := eachElement(values, func(value []byte, vt jsonparser.ValueType) error {
		v, err := scalarValue(value, vt)
		if err != nil {
			return fmt.Errorf("%w: custom field %q has a non-scalar value", ErrMalformedData, label)
		}
		rendered = append(rendered, RenderValue(v))
		return nil
	}); err != nil {
		return err
	}
	col := parent + pathSeparator + label
	if len(rendered) == 0 {
		return r.set(col, nil)
	}
	return r.set(col, strings.Join(rendered, multiValueSeparator))
}

func scalarValue(value []byte, vt jsonparser.ValueType) (Value, error) {
	switch vt {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: bad string literal", ErrMalformedData)
		}
		return s, nil
	case jsonparser.Number:
		text := string(value)
		if !strings.ContainsAny(text, ".eE") {
			if i, err := strconv.ParseInt(text, 10, 64); err == nil {
				return i, nil
			}
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number literal %q", ErrMalformedData, text)
		}
		return f, nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return nil, fmt.Errorf("%w: bad boolean literal", ErrMalformedData)
		}
		return b, nil
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type", ErrMalformedData)
	}
}

func firstByte(raw []byte) byte {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c
	}
	return 0
}

// row accumulates named cells for one record. Column registration happens
// through the builder so first-seen order is global across the batch.
type row struct {
	set func(name string, v Value) error
}

// builder collects rows with ragged column sets and normalizes them into a
// Table with the union column set and explicit nils.
type builder struct {
	cols   []string
	colIdx map[string]int
	rows   []map[int]Value
}

func newBuilder() *builder {
	return &builder{colIdx: make(map[string]int)}
}

func (b *builder) newRow() *row {
	cells := make(map[int]Value)
	b.rows = append(b.rows, cells)
	return &row{set: func(name string, v Value) error {
		idx, ok := b.colIdx[name]
		if !ok {
			idx = len(b.cols)
			b.colIdx[name] = idx
			b.cols = append(b.cols, name)
		}
		if _, dup := cells[idx]; dup {
			return fmt.Errorf("%w: duplicate field %q in one record", ErrMalformedData, name)
		}
		cells[idx] = v
		return nil
	}}
}

func (b *builder) table() *Table {
	t := &Table{Columns: b.cols, Rows: make([][]Value, 0, len(b.rows))}
	for _, cells := range b.rows {
		vals := make([]Value, len(b.cols))
		for idx, v := range cells {
			vals[idx] = v
		}
		t.Rows = append(t.Rows, vals)
	}
	return t
}
