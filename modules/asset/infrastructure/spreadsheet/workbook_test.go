package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-sql/civil"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestWriteThenReadWorkbook(t *testing.T) {
	wb := types.Workbook{Sheets: []types.Sheet{
		{
			Name: "Laptop",
			Rows: [][]types.Value{
				{types.Text("Model"), types.Text("Amount"), types.Text("Purchase Date"), types.Text("Serial")},
				{types.Text("X1"), types.Number(decimal.RequireFromString("1180.5")), types.NumberFromInt(45823), types.Text("0042")},
				{types.Text("T14"), types.Null(), types.Date(civil.Date{Year: 2024, Month: 3, Day: 9}), types.Null()},
			},
		},
		{
			Name: "Mobile",
			Rows: [][]types.Value{{types.Text("IMEI")}, {types.Text("123")}},
		},
	}}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, wb); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadWorkbook(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Sheets) != 2 || got.Sheets[0].Name != "Laptop" || got.Sheets[1].Name != "Mobile" {
		t.Fatalf("sheets=%+v", got.Sheets)
	}

	rows := got.Sheets[0].Rows
	if len(rows) != 3 || rows[0][2].String() != "Purchase Date" {
		t.Fatalf("rows=%v", rows)
	}
	if n, ok := rows[1][1].AsNumber(); !ok || !n.Equal(decimal.RequireFromString("1180.5")) {
		t.Fatalf("amount=%v kind=%v", rows[1][1], rows[1][1].Kind())
	}
	if d, ok := rows[1][2].AsDate(); !ok || d != (civil.Date{Year: 2025, Month: 6, Day: 15}) {
		t.Fatalf("serial under date header: %v kind=%v", rows[1][2], rows[1][2].Kind())
	}
	if s, ok := rows[1][3].AsText(); !ok || s != "0042" {
		t.Fatalf("serial=%v kind=%v", rows[1][3], rows[1][3].Kind())
	}
	if len(rows[2]) > 1 && !rows[2][1].IsNull() {
		t.Fatalf("blank amount=%v", rows[2][1])
	}
	if s, ok := rows[2][2].AsText(); !ok || s != "09-03-2024" {
		t.Fatalf("date text=%v kind=%v", rows[2][2], rows[2][2].Kind())
	}

	if s, ok := got.Sheets[1].Rows[1][0].AsText(); !ok || s != "123" {
		t.Fatalf("imei=%v", got.Sheets[1].Rows[1][0])
	}
}

func TestReadWorkbook_Invalid(t *testing.T) {
	if _, err := ReadWorkbook(strings.NewReader("not a zip")); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadWorkbook_NumericTextUnderPlainHeader(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Qty", "Date of issue"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{3, "15-06-2025"}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	got, err := ReadWorkbook(&buf)
	if err != nil {
		t.Fatal(err)
	}
	row := got.Sheets[0].Rows[1]
	if n, ok := row[0].AsNumber(); !ok || n.IntPart() != 3 {
		t.Fatalf("qty=%v kind=%v", row[0], row[0].Kind())
	}
	if s, ok := row[1].AsText(); !ok || s != "15-06-2025" {
		t.Fatalf("text date must stay text for strict parsing: %v", row[1])
	}
}

func TestSheetName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Laptop", "Laptop"},
		{"  ", "Sheet1"},
		{"a/b:c?", "a_b_c_"},
		{"'quoted'", "quoted"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
		{"लैपटॉप", "लैपटॉप"},
	}
	for _, tc := range cases {
		if got := SheetName(tc.in); got != tc.want {
			t.Fatalf("SheetName(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]struct{}{}
	long := strings.Repeat("y", 40)
	first := uniqueSheetName(long, used)
	second := uniqueSheetName(long, used)
	third := uniqueSheetName(strings.ToUpper(long), used)
	if first != strings.Repeat("y", 31) {
		t.Fatalf("first=%q", first)
	}
	if second != strings.Repeat("y", 27)+" (2)" || len([]rune(second)) != 31 {
		t.Fatalf("second=%q", second)
	}
	if third == first || third == second {
		t.Fatalf("third=%q collides", third)
	}
}

func TestCellOut(t *testing.T) {
	if cellOut(types.Null()) != nil {
		t.Fatal("null must be nil")
	}
	if v, ok := cellOut(types.NumberFromInt(7)).(float64); !ok || v != 7 {
		t.Fatalf("number=%v", cellOut(types.NumberFromInt(7)))
	}
	if v := cellOut(types.Date(civil.Date{Year: 2025, Month: 1, Day: 2})); v != "02-01-2025" {
		t.Fatalf("date=%v", v)
	}
	if v := cellOut(types.Text("abc")); v != "abc" {
		t.Fatalf("text=%v", v)
	}
}
