// Package spreadsheet converts between .xlsx files and the typed workbook the
// import reconciler and exporters work on.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/civildate"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MaxSheetName  = 31
	defaultSheet  = "Sheet1"
	invalidInName = `:\/?*[]`
)

var ErrEmptyWorkbook = errors.New("spreadsheet: workbook has no sheets")

// ReadWorkbook loads every sheet of an .xlsx stream. Numeric cells become
// Number values, except under a date header where the Excel serial is turned
// into a calendar Date. Empty cells are Null.
func ReadWorkbook(r io.Reader) (types.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return types.Workbook{}, fmt.Errorf("spreadsheet: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return types.Workbook{}, ErrEmptyWorkbook
	}

	wb := types.Workbook{Sheets: make([]types.Sheet, 0, len(sheets))}
	for _, name := range sheets {
		raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return types.Workbook{}, fmt.Errorf("spreadsheet: read sheet %q: %w", name, err)
		}
		sheet := types.Sheet{Name: name, Rows: make([][]types.Value, 0, len(raw))}
		var headers []string
		for i, cells := range raw {
			row := make([]types.Value, len(cells))
			for j, cell := range cells {
				if i == 0 {
					row[j] = cellText(cell)
					continue
				}
				kind, err := cellKind(f, name, j, i)
				if err != nil {
					return types.Workbook{}, err
				}
				row[j] = cellValue(cell, kind, isDateColumn(headers, j), date1904)
			}
			if i == 0 {
				headers = cells
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func cellKind(f *excelize.File, sheet string, col, row int) (excelize.CellType, error) {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return excelize.CellTypeUnset, err
	}
	return f.GetCellType(sheet, ref)
}

func cellText(raw string) types.Value {
	if raw == "" {
		return types.Null()
	}
	return types.Text(raw)
}

func cellValue(raw string, kind excelize.CellType, dateColumn, date1904 bool) types.Value {
	if strings.TrimSpace(raw) == "" {
		return types.Null()
	}
	switch kind {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return types.Text(raw)
	case excelize.CellTypeBool:
		if raw == "1" {
			return types.Text("TRUE")
		}
		return types.Text("FALSE")
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return types.Date(civil.DateOf(t))
		}
		return types.Text(raw)
	}

	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return types.Text(raw)
	}
	if dateColumn {
		serial, _ := d.Float64()
		if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
			return types.Date(civil.DateOf(t))
		}
	}
	return types.Number(d)
}

func isDateColumn(headers []string, col int) bool {
	if col >= len(headers) {
		return false
	}
	return strings.Contains(strings.ToLower(headers[col]), "date")
}

// WriteWorkbook renders wb as .xlsx. Sheet names are made legal for Excel:
// forbidden characters become "_", names are cut to 31 runes and
// deduplicated. Dates are written as dd-mm-yyyy text.
func WriteWorkbook(w io.Writer, wb types.Workbook) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	used := map[string]struct{}{}
	for i, sheet := range wb.Sheets {
		name := uniqueSheetName(sheet.Name, used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("spreadsheet: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("spreadsheet: new sheet %q: %w", name, err)
		}
		for r, row := range sheet.Rows {
			ref, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = cellOut(v)
			}
			if err := f.SetSheetRow(name, ref, &cells); err != nil {
				return fmt.Errorf("spreadsheet: write %s!%s: %w", name, ref, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write: %w", err)
	}
	return nil
}

func cellOut(v types.Value) any {
	switch v.Kind() {
	case types.KindNull:
		return nil
	case types.KindNumber:
		n, _ := v.AsNumber()
		return n.InexactFloat64()
	case types.KindDate:
		d, _ := v.AsDate()
		return civildate.FormatDMY(d)
	case types.KindTimestamp:
		ts, _ := v.AsTimestamp()
		return ts
	default:
		return v.String()
	}
}

func uniqueSheetName(raw string, used map[string]struct{}) string {
	base := SheetName(raw)
	name := base
	for n := 2; ; n++ {
		if _, taken := used[strings.ToLower(name)]; !taken {
			break
		}
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, MaxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = struct{}{}
	return name
}

// SheetName makes raw a legal worksheet name.
func SheetName(raw string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidInName, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(raw))
	name = strings.Trim(name, "'")
	if name == "" {
		name = defaultSheet
	}
	return truncateRunes(name, MaxSheetName)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
