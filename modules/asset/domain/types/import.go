package types

import "time"

// Workbook is an uploaded spreadsheet: ordered sheets of ordered rows, first row headers.
type Workbook struct {
	Sheets []Sheet
}

type Sheet struct {
	Name string
	Rows [][]Value
}

type RowResult struct {
	Sheet       string            `json:"sheet"`
	Row         int               `json:"row"`
	Data        map[string]string `json:"data"`
	Errors      map[string]string `json:"errors"`
	Suggestions map[string]string `json:"suggestions"`
}

func (r RowResult) HasErrors() bool { return len(r.Errors) > 0 }

// ImportPreview is the staged, reviewable rendering of an upload.
type ImportPreview struct {
	ID           string              `json:"id"`
	CreatedAt    time.Time           `json:"created_at"`
	SheetHeaders map[string][]string `json:"sheet_headers"`
	SheetOrder   []string            `json:"sheet_order"`
	PreviewData  []RowResult         `json:"preview_data"`
	ErrorCount   int                 `json:"error_count"`
}

// Sheets lists sheet names in upload order.
func (p ImportPreview) Sheets() []string {
	if len(p.SheetOrder) > 0 {
		return p.SheetOrder
	}
	out := make([]string, 0, len(p.SheetHeaders))
	seen := map[string]struct{}{}
	for _, row := range p.PreviewData {
		if _, ok := seen[row.Sheet]; ok {
			continue
		}
		seen[row.Sheet] = struct{}{}
		out = append(out, row.Sheet)
	}
	return out
}

func (p ImportPreview) RowsOf(sheet string) []RowResult {
	var out []RowResult
	for _, row := range p.PreviewData {
		if row.Sheet == sheet {
			out = append(out, row)
		}
	}
	return out
}
