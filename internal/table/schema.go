package table

import (
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/otokawa-k/kaonavi-mcp-server/config"
)

// ColumnSchema describes one column: its inferred scalar type and up to
// config.DefaultSampleValues distinct non-null sample values rendered as
// strings, in first-occurrence order.
type ColumnSchema struct {
	Name         string   `json:"-"`
	Type         string   `json:"type"`
	SampleValues []string `json:"sample_values"`
}

// Inferred column types, in rule order. A column with no non-null values
// falls through to TypeString.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeString  = "string"
)

// Describe derives per-column schemas from a table. It is a pure function
// of its input: the table is never mutated and results are computed fresh
// on every call.
func Describe(t *Table) []ColumnSchema {
	out := make([]ColumnSchema, 0, len(t.Columns))
	for i, col := range t.Columns {
		out = append(out, describeColumn(t, i, col))
	}
	return out
}

// DescribeJSON renders the schemas as a JSON object keyed by column name
// in column order.
func DescribeJSON(t *Table) ([]byte, error) {
	info := orderedmap.New[string, ColumnSchema](len(t.Columns))
	for _, cs := range Describe(t) {
		info.Set(cs.Name, cs)
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("table: marshal schema: %w", err)
	}
	return b, nil
}

func describeColumn(t *Table, idx int, name string) ColumnSchema {
	allInt := true
	allNum := true
	allBool := true
	sawValue := false

	samples := make([]string, 0, config.DefaultSampleValues)
	seen := make(map[string]struct{})

	for _, row := range t.Rows {
		v := row[idx]
		if v == nil {
			continue
		}
		sawValue = true
		s := RenderValue(v)

		if _, ok := seen[s]; !ok && len(samples) < config.DefaultSampleValues {
			seen[s] = struct{}{}
			samples = append(samples, s)
		}

		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allNum && !allInt {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allNum = false
			}
		}
		if allBool && s != "true" && s != "false" {
			allBool = false
		}
	}

	typ := TypeString
	switch {
	case !sawValue:
		typ = TypeString
	case allInt:
		typ = TypeInteger
	case allNum:
		typ = TypeNumber
	case allBool:
		typ = TypeBoolean
	}
	return ColumnSchema{Name: name, Type: typ, SampleValues: samples}
}
