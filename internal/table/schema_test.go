package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func schemaFixture() *Table {
	return &Table{
		Columns: []string{"age", "rate", "active", "name", "empty"},
		Rows: [][]Value{
			{int64(31), 1.5, true, "Sales", nil},
			{int64(25), int64(2), false, "Eng", nil},
			{nil, 0.25, true, "Sales", nil},
		},
	}
}

func TestDescribe_TypeInferenceOrder(t *testing.T) {
	schemas := Describe(schemaFixture())
	byName := map[string]ColumnSchema{}
	for _, cs := range schemas {
		byName[cs.Name] = cs
	}

	require.Equal(t, TypeInteger, byName["age"].Type)
	require.Equal(t, TypeNumber, byName["rate"].Type)
	require.Equal(t, TypeBoolean, byName["active"].Type)
	require.Equal(t, TypeString, byName["name"].Type)
	// A column with no non-null values falls through to string.
	require.Equal(t, TypeString, byName["empty"].Type)
}

func TestDescribe_SampleValues(t *testing.T) {
	tbl := &Table{
		Columns: []string{"dept"},
		Rows: [][]Value{
			{"Sales"}, {"Eng"}, {"Sales"}, {nil}, {"HR"},
			{"Legal"}, {"Ops"}, {"Finance"},
		},
	}

	schemas := Describe(tbl)
	require.Len(t, schemas, 1)
	// Distinct, non-null, first-occurrence order, capped at 5.
	require.Equal(t, []string{"Sales", "Eng", "HR", "Legal", "Ops"}, schemas[0].SampleValues)
}

func TestDescribe_PureFunction(t *testing.T) {
	tbl := schemaFixture()
	before := tbl.Len()
	_ = Describe(tbl)
	_ = Describe(tbl)
	require.Equal(t, before, tbl.Len())
	require.Equal(t, schemaFixture(), tbl)
}

func TestDescribeJSON_KeyedByColumnInOrder(t *testing.T) {
	tbl := &Table{
		Columns: []string{"b", "a"},
		Rows:    [][]Value{{int64(1), "x"}},
	}

	raw, err := DescribeJSON(tbl)
	require.NoError(t, err)

	var decoded map[string]struct {
		Type         string   `json:"type"`
		SampleValues []string `json:"sample_values"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, TypeInteger, decoded["b"].Type)
	require.Equal(t, []string{"x"}, decoded["a"].SampleValues)
	// Column order survives serialization.
	require.Less(t, indexOf(t, raw, `"b"`), indexOf(t, raw, `"a"`))
}
