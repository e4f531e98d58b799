package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenMembers_UnionColumnsAndNulls(t *testing.T) {
	raw := []byte(`[
		{"code": "A0001", "name": "田中 太郎", "age": 31,
		 "department": {"code": "1000", "name": "営業部", "names": ["本社", "営業部"]},
		 "custom_fields": [{"id": 100, "name": "血液型", "values": ["A"]}]},
		{"code": "A0002", "name": "鈴木 次郎", "age": 25, "city": "渋谷"}
	]`)

	tbl, err := FlattenMembers(raw)
	require.NoError(t, err)

	require.Equal(t, []string{
		"code", "name", "age",
		"department.code", "department.name", "department.names",
		"custom_fields.血液型", "city",
	}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())

	// Every row exposes the full column set; absent fields are explicit nils.
	for _, row := range tbl.Rows {
		require.Len(t, row, len(tbl.Columns))
	}
	require.Equal(t, Value(nil), tbl.Rows[0][tbl.ColumnIndex("city")])
	require.Equal(t, Value(nil), tbl.Rows[1][tbl.ColumnIndex("department.name")])

	// Scalars keep their JSON types; hierarchies join deterministically.
	require.Equal(t, Value(int64(31)), tbl.Rows[0][tbl.ColumnIndex("age")])
	require.Equal(t, Value("本社 / 営業部"), tbl.Rows[0][tbl.ColumnIndex("department.names")])
	require.Equal(t, Value("A"), tbl.Rows[0][tbl.ColumnIndex("custom_fields.血液型")])
}

func TestFlattenMembers_Idempotent(t *testing.T) {
	raw := []byte(`[
		{"code": "A0001", "department": {"name": "営業部"}},
		{"code": "A0002", "age": 40}
	]`)

	first, err := FlattenMembers(raw)
	require.NoError(t, err)
	second, err := FlattenMembers(raw)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFlattenMembers_ScalarTypes(t *testing.T) {
	raw := []byte(`[{"i": 42, "f": 1.5, "b": true, "s": "x", "n": null}]`)

	tbl, err := FlattenMembers(raw)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	require.Equal(t, Value(int64(42)), tbl.Rows[0][0])
	require.Equal(t, Value(1.5), tbl.Rows[0][1])
	require.Equal(t, Value(true), tbl.Rows[0][2])
	require.Equal(t, Value("x"), tbl.Rows[0][3])
	require.Nil(t, tbl.Rows[0][4])
}

func TestFlattenMembers_MalformedBatch(t *testing.T) {
	cases := map[string]string{
		"not an array":       `{"code": "A0001"}`,
		"scalar elements":    `[1, 2, 3]`,
		"ambiguous objects":  `[{"x": [{"foo": 1}]}]`,
		"group sans values":  `[{"custom_fields": [{"name": "血液型"}]}]`,
		"mixed array shapes": `[{"x": [1, {"name": "a", "values": []}]}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FlattenMembers([]byte(raw))
			require.ErrorIs(t, err, ErrMalformedData)
		})
	}
}

func TestFlattenSheet_OneRowPerRecord(t *testing.T) {
	raw := []byte(`[
		{"code": "A0001", "records": [
			{"date": "2024-04-01", "metric": 1},
			{"date": "2024-05-01", "metric": 2}
		]},
		{"code": "A0002", "records": [
			{"date": "2024-04-01", "metric": 3}
		]}
	]`)

	tbl, err := FlattenSheet(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"code", "date", "metric"}, tbl.Columns)
	require.Equal(t, 3, tbl.Len())
	require.Equal(t, Value("A0001"), tbl.Rows[0][0])
	require.Equal(t, Value("A0001"), tbl.Rows[1][0])
	require.Equal(t, Value("A0002"), tbl.Rows[2][0])
	require.Equal(t, Value(int64(2)), tbl.Rows[1][tbl.ColumnIndex("metric")])
}

func TestFlattenSheet_MemberWithoutRecords(t *testing.T) {
	raw := []byte(`[{"code": "A0003"}]`)

	tbl, err := FlattenSheet(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"code"}, tbl.Columns)
	require.Equal(t, 1, tbl.Len())
	require.Equal(t, Value("A0003"), tbl.Rows[0][0])
}

func TestFlattenSheet_RecordsNotArray(t *testing.T) {
	raw := []byte(`[{"code": "A0001", "records": {"date": "2024-04-01"}}]`)

	_, err := FlattenSheet(raw)
	require.ErrorIs(t, err, ErrMalformedData)
}

func TestTableSelect_PreservesColumnsAndOrder(t *testing.T) {
	tbl := &Table{
		Columns: []string{"a", "b"},
		Rows: [][]Value{
			{int64(1), "x"},
			{int64(2), "y"},
			{int64(3), "z"},
		},
	}

	out := tbl.Select([]int{2, 0})
	require.Equal(t, tbl.Columns, out.Columns)
	require.Equal(t, 2, out.Len())
	require.Equal(t, Value(int64(3)), out.Rows[0][0])
	require.Equal(t, Value(int64(1)), out.Rows[1][0])
}

func TestMarshalRows_ColumnOrderPreserved(t *testing.T) {
	tbl := &Table{
		Columns: []string{"z_last", "a_first"},
		Rows:    [][]Value{{int64(1), "x"}},
	}

	b, err := tbl.MarshalRows()
	require.NoError(t, err)
	// Ordered maps keep the table's column order, not lexical order.
	require.Less(t, indexOf(t, b, `"z_last"`), indexOf(t, b, `"a_first"`))
}

func indexOf(t *testing.T, b []byte, sub string) int {
	t.Helper()
	idx := -1
	for i := 0; i+len(sub) <= len(b); i++ {
		if string(b[i:i+len(sub)]) == sub {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "substring %s not found", sub)
	return idx
}
