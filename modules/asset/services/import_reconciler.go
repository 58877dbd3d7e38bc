package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/civildate"
	"github.com/jacksonlee411/assetdesk/pkg/money"
	"github.com/shopspring/decimal"
)

// Per-field import errors.
const (
	ImportErrMultipleGST   = "Multiple GST columns not allowed"
	ImportErrInvalidGST    = "Invalid GST header/value"
	ImportErrTotalMismatch = "Total mismatch"
	ImportErrFutureDate    = "Future date not allowed"
	ImportErrInvalidDate   = "Invalid date format"

	suggestionPrefix = "Expected: "
)

var hundred = decimal.NewFromInt(100)

// BuildPreview stages every data row of every sheet. Sheets with fewer than
// two rows and all-blank rows are skipped; data rows are numbered from 2 to
// match the spreadsheet. It never fails: problems become per-field errors.
func BuildPreview(wb types.Workbook, now time.Time) types.ImportPreview {
	p := types.ImportPreview{
		CreatedAt:    now.UTC(),
		SheetHeaders: map[string][]string{},
		PreviewData:  []types.RowResult{},
	}
	for _, sheet := range wb.Sheets {
		if len(sheet.Rows) < 2 {
			continue
		}
		headers := headerRow(sheet.Rows[0])
		p.SheetHeaders[sheet.Name] = headers
		p.SheetOrder = append(p.SheetOrder, sheet.Name)
		for i, row := range sheet.Rows[1:] {
			if rowIsBlank(row) {
				continue
			}
			res := stageRow(sheet.Name, i+2, headers, row, now)
			if res.HasErrors() {
				p.ErrorCount++
			}
			p.PreviewData = append(p.PreviewData, res)
		}
	}
	return p
}

func headerRow(cells []types.Value) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c.String())
	}
	return out
}

func rowIsBlank(row []types.Value) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

func cellAt(row []types.Value, col int) types.Value {
	if col < len(row) {
		return row[col]
	}
	return types.Null()
}

func stageRow(sheet string, rowNum int, headers []string, row []types.Value, now time.Time) types.RowResult {
	res := types.RowResult{
		Sheet:       sheet,
		Row:         rowNum,
		Data:        map[string]string{},
		Errors:      map[string]string{},
		Suggestions: map[string]string{},
	}

	var (
		amount, total, gstAmount decimal.Decimal
		hasAmount, hasTotal      bool
		gstRate                  int
		gstHeader, totalHeader   string
	)
	for col, header := range headers {
		value := cellAt(row, col)
		low := strings.ToLower(header)
		switch {
		case low == "amount":
			amount, hasAmount = MoneyOf(value), true
			res.Data[header] = money.FormatINR(amount)
		case low == "total":
			total, hasTotal = MoneyOf(value), true
			if totalHeader == "" {
				totalHeader = header
			}
			res.Data[header] = money.FormatINR(total)
		case isGSTHeader(header):
			rate, ok := gstHeaderRate(header)
			if !ok {
				res.Errors[header] = ImportErrInvalidGST
				res.Suggestions[header] = money.FormatINR(decimal.Zero)
				res.Data[header] = value.String()
				continue
			}
			cellAmount := MoneyOf(value)
			res.Data[header] = money.FormatINR(cellAmount)
			if gstHeader != "" {
				res.Errors[header] = ImportErrMultipleGST
				continue
			}
			gstRate, gstAmount, gstHeader = rate, cellAmount, header
		default:
			res.Data[header] = strings.TrimSpace(value.String())
		}
	}

	if hasAmount && gstHeader != "" {
		expectedGST := money.Round2(amount.Mul(decimal.NewFromInt(int64(gstRate))).Div(hundred))
		if !money.Round2(gstAmount).Equal(expectedGST) {
			res.Errors[gstHeader] = fmt.Sprintf("GST mismatch (%d%%)", gstRate)
			res.Suggestions[gstHeader] = suggestionPrefix + money.FormatINR(expectedGST)
		}
		if hasTotal {
			expectedTotal := money.Round2(amount.Add(expectedGST))
			if !money.Round2(total).Equal(expectedTotal) {
				res.Errors[totalHeader] = ImportErrTotalMismatch
				res.Suggestions[totalHeader] = suggestionPrefix + money.FormatINR(expectedTotal)
			}
		}
	}

	for col, header := range headers {
		if !isDateHeader(header) {
			continue
		}
		value := cellAt(row, col)
		if value.IsBlank() {
			continue
		}
		d, ok := strictDate(value)
		if !ok {
			res.Errors[header] = ImportErrInvalidDate
			continue
		}
		if civildate.IsFuture(d, now) {
			res.Errors[header] = ImportErrFutureDate
		}
		res.Data[header] = civildate.FormatDMY(d)
	}
	return res
}

func isDateHeader(header string) bool {
	return strings.Contains(strings.ToLower(header), "date")
}

func isMoneyHeader(header string) bool {
	low := strings.ToLower(header)
	return low == "amount" || low == "total" || strings.HasPrefix(low, "gst")
}

// strictDate accepts typed dates or dd-mm-yyyy text only.
func strictDate(v types.Value) (civil.Date, bool) {
	switch v.Kind() {
	case types.KindDate:
		d, _ := v.AsDate()
		return d, true
	case types.KindTimestamp:
		ts, _ := v.AsTimestamp()
		return civildate.Today(ts), true
	case types.KindText:
		return civildate.ParseDMY(v.String())
	default:
		return civil.Date{}, false
	}
}

// DisplayPreview returns a copy of p whose row data has suggestions applied
// and money columns rendered with currency grouping.
func DisplayPreview(p types.ImportPreview) types.ImportPreview {
	out := p
	out.PreviewData = make([]types.RowResult, 0, len(p.PreviewData))
	for _, row := range p.PreviewData {
		data := make(map[string]string, len(row.Data))
		for key, val := range row.Data {
			if sug, ok := row.Suggestions[key]; ok {
				if d, ok := money.ParseSuggestion(sug); ok {
					val = d.String()
				} else {
					val = sug
				}
			}
			if isMoneyHeader(key) && strings.TrimSpace(val) != "" {
				if d, err := decimal.NewFromString(money.Strip(val)); err == nil {
					val = money.FormatINR(d)
				}
			}
			data[key] = val
		}
		row.Data = data
		out.PreviewData = append(out.PreviewData, row)
	}
	return out
}

// acceptedValues is the row as it will be committed: suggestions applied
// (never to date columns), then user corrections on top.
func acceptedValues(row types.RowResult, corrections map[string]string) map[string]string {
	out := make(map[string]string, len(row.Data))
	for k, v := range row.Data {
		out[k] = v
	}
	for key, sug := range row.Suggestions {
		if isDateHeader(key) {
			continue
		}
		if d, ok := money.ParseSuggestion(sug); ok {
			out[key] = d.String()
		} else {
			out[key] = sug
		}
	}
	for key, v := range corrections {
		out[key] = v
	}
	return out
}

// recordFromRow maps header-keyed display values onto canonical field keys.
func recordFromRow(headers []string, data map[string]string, fields []types.FieldDefinition) types.Record {
	kinds := make(map[string]types.FieldKind, len(fields))
	for _, f := range fields {
		kinds[f.Name] = f.Kind
	}
	rec := types.Record{}
	for _, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		key := HeaderToFieldKey(h, fields)
		raw := strings.TrimSpace(data[h])
		switch {
		case raw == "":
			rec[key] = types.Null()
		case kinds[key] == types.FieldDate || isDateHeader(key):
			if d, ok := civildate.ParseDMY(raw); ok {
				rec[key] = types.Date(d)
			} else {
				rec[key] = types.Text(raw)
			}
		case isCurrencyKey(key):
			rec[key] = types.Number(money.Normalize(raw))
		default:
			rec[key] = types.Text(raw)
		}
	}
	return NormalizeGSTKeys(rec)
}

func isCurrencyKey(key string) bool {
	if canon, ok := CanonicalGSTKey(key); ok {
		key = canon
	}
	return fieldmeta.IsCurrencyField(key)
}

// fixedRows renders one sheet of the corrected workbook.
func fixedRows(headers []string, rows []types.RowResult) [][]types.Value {
	out := make([][]types.Value, 0, len(rows)+1)
	head := make([]types.Value, len(headers))
	for i, h := range headers {
		head[i] = types.Text(h)
	}
	out = append(out, head)
	for _, row := range rows {
		cells := make([]types.Value, len(headers))
		for i, key := range headers {
			val, ok := row.Data[key]
			if !ok {
				val = "-"
			}
			cell := types.Text(val)
			if sug := row.Suggestions[key]; sug != "" {
				switch {
				case isDateHeader(key):
					cell = types.Text(sug)
				default:
					if d, ok := money.ParseSuggestion(sug); ok {
						cell = types.Number(d)
					} else if d, err := decimal.NewFromString(strings.TrimSpace(sug)); err == nil {
						cell = types.Number(d)
					} else {
						cell = types.Text(sug)
					}
				}
			}
			if isMoneyHeader(key) && cell.Kind() == types.KindText {
				text := strings.TrimSpace(cell.String())
				if text == "" || text == "-" {
					cell = types.Number(decimal.Zero)
				} else if d, err := decimal.NewFromString(money.Strip(text)); err == nil {
					cell = types.Number(d)
				}
			}
			cells[i] = cell
		}
		out = append(out, cells)
	}
	return out
}
