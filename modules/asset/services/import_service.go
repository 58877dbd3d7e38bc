package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
	"github.com/jacksonlee411/assetdesk/pkg/uuidv7"
)

// RowRef addresses one staged row.
type RowRef struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
}

type ConfirmOptions struct {
	// Corrections are user-entered values keyed by row, then by header.
	Corrections map[RowRef]map[string]string
}

type RowWarning struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ConfirmResult struct {
	Inserted     int               `json:"inserted"`
	IDs          []string          `json:"ids"`
	Held         []types.RowResult `json:"held"`
	Warnings     []RowWarning      `json:"warnings"`
	CreatedTypes []string          `json:"created_types"`
}

// ImportService stages uploaded workbooks for review and commits them.
type ImportService struct {
	previews  ports.PreviewStore
	assets    ports.AssetStore
	registry  ports.TypeSchemaRegistry
	sanitizer *Sanitizer
	admission RowAdmission
	now       func() time.Time
	log       logger.Logger
}

type ImportServiceOption func(*ImportService)

func WithImportClock(now func() time.Time) ImportServiceOption {
	return func(s *ImportService) { s.now = now }
}

func WithImportLogger(l logger.Logger) ImportServiceOption {
	return func(s *ImportService) { s.log = l }
}

func NewImportService(
	previews ports.PreviewStore,
	assets ports.AssetStore,
	registry ports.TypeSchemaRegistry,
	sanitizer *Sanitizer,
	admission RowAdmission,
	opts ...ImportServiceOption,
) *ImportService {
	s := &ImportService{
		previews:  previews,
		assets:    assets,
		registry:  registry,
		sanitizer: sanitizer,
		admission: admission,
		now:       time.Now,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage builds and stores a preview of wb. Nothing is written to the asset store.
func (s *ImportService) Stage(ctx context.Context, wb types.Workbook) (types.ImportPreview, error) {
	p := BuildPreview(wb, s.now())
	id, err := uuidv7.NewString()
	if err != nil {
		return types.ImportPreview{}, err
	}
	p.ID = id
	if err := s.previews.Save(ctx, p); err != nil {
		return types.ImportPreview{}, err
	}
	s.log.Info("import staged", "preview_id", id, "rows", len(p.PreviewData), "error_rows", p.ErrorCount)
	return p, nil
}

// Preview returns the stored preview rendered for review.
func (s *ImportService) Preview(ctx context.Context, id string) (types.ImportPreview, error) {
	p, err := s.previews.Load(ctx, id)
	if err != nil {
		return types.ImportPreview{}, err
	}
	return DisplayPreview(p), nil
}

func (s *ImportService) Discard(ctx context.Context, id string) error {
	return s.previews.Delete(ctx, id)
}

// Confirm commits every admitted row as a new asset. Rows still carrying
// unresolved errors are held: they stay in the preview and are reported back.
// The preview is deleted once no held rows remain.
func (s *ImportService) Confirm(ctx context.Context, id string, opts ConfirmOptions) (ConfirmResult, error) {
	p, err := s.previews.Load(ctx, id)
	if err != nil {
		return ConfirmResult{}, err
	}

	result := ConfirmResult{IDs: []string{}, Held: []types.RowResult{}, Warnings: []RowWarning{}, CreatedTypes: []string{}}
	schemas := map[string][]types.FieldDefinition{}
	var recs []types.Record

	for _, row := range p.PreviewData {
		ref := RowRef{Sheet: row.Sheet, Row: row.Row}
		corrections := opts.Corrections[ref]
		ok, err := s.admission.Admit(ctx, AdmissionInput{
			Sheet:           row.Sheet,
			Row:             row.Row,
			ErrorFields:     sortedKeys(row.Errors),
			SuggestedFields: sortedKeys(row.Suggestions),
			CorrectedFields: sortedKeys(corrections),
		})
		if err != nil {
			return ConfirmResult{}, err
		}
		if !ok {
			result.Held = append(result.Held, row)
			continue
		}

		headers := p.SheetHeaders[row.Sheet]
		if len(headers) == 0 {
			headers = sortedKeys(row.Data)
		}
		fields, ok := schemas[row.Sheet]
		if !ok {
			fields, err = s.ensureType(ctx, row.Sheet, headers, &result)
			if err != nil {
				return ConfirmResult{}, err
			}
			schemas[row.Sheet] = fields
		}

		rec := recordFromRow(headers, acceptedValues(row, corrections), fields)
		rec[fieldmeta.FieldCategory] = types.Text(row.Sheet)
		allowed := types.FieldNameSet(fields)
		allowed[fieldmeta.FieldCategory] = struct{}{}

		payload, warnings, err := s.sanitizer.Sanitize(nil, rec, SanitizeOptions{
			Source:        types.SourceSpreadsheet,
			ForceApply:    true,
			AllowedFields: allowed,
			Mode:          types.ModeCreate,
		})
		if err != nil {
			return ConfirmResult{}, err
		}
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, RowWarning{Sheet: row.Sheet, Row: row.Row, Message: w})
		}
		recs = append(recs, payload)
	}

	// The preview is settled before the insert so a retried confirm never
	// sees rows that were already written.
	if err := s.settlePreview(ctx, id, p, result.Held); err != nil {
		return ConfirmResult{}, err
	}
	if len(recs) > 0 {
		ids, err := s.assets.InsertMany(ctx, recs)
		if err != nil {
			if serr := s.previews.Save(ctx, p); serr != nil {
				s.log.Error("restore preview after failed insert", "preview_id", id, "error", serr)
			}
			return ConfirmResult{}, err
		}
		result.IDs = ids
		result.Inserted = len(ids)
	}

	s.log.Info("import confirmed", "preview_id", id, "inserted", result.Inserted, "held", len(result.Held), "warnings", len(result.Warnings))
	return result, nil
}

// settlePreview deletes the preview, or keeps only the held rows.
func (s *ImportService) settlePreview(ctx context.Context, id string, p types.ImportPreview, held []types.RowResult) error {
	if len(held) == 0 {
		return s.previews.Delete(ctx, id)
	}
	p.PreviewData = held
	p.ErrorCount = 0
	for _, row := range held {
		if row.HasErrors() {
			p.ErrorCount++
		}
	}
	return s.previews.Save(ctx, p)
}

// ensureType returns the sheet's schema, creating a category from the
// headers when the sheet name is not a known type.
func (s *ImportService) ensureType(ctx context.Context, sheet string, headers []string, result *ConfirmResult) ([]types.FieldDefinition, error) {
	t, err := s.registry.GetType(ctx, sheet)
	if err == nil {
		return t.Fields, nil
	}
	if !errors.Is(err, ports.ErrAssetTypeNotFound) {
		return nil, err
	}
	created := types.AssetType{Name: sheet, Fields: FieldsFromHeaders(headers)}
	if err := s.registry.UpsertType(ctx, created); err != nil {
		return nil, err
	}
	result.CreatedTypes = append(result.CreatedTypes, sheet)
	s.log.Info("asset type created from import", "type", sheet, "fields", len(created.Fields))
	return created.Fields, nil
}

// FieldsFromHeaders derives a field list from spreadsheet headers. Headers
// matching a master catalog label reuse that field; others get a slugged name.
func FieldsFromHeaders(headers []string) []types.FieldDefinition {
	out := make([]types.FieldDefinition, 0, len(headers))
	seen := map[string]struct{}{}
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		f := headerField(h)
		if f.Name == "" {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f)
	}
	return out
}

func headerField(h string) types.FieldDefinition {
	if key := HeaderToFieldKey(h, nil); fieldmeta.IsGSTKey(key) {
		return types.FieldDefinition{Label: h, Name: key, Kind: types.FieldNumber}
	}
	for _, f := range fieldmeta.MasterFields() {
		if strings.EqualFold(f.Label, h) {
			f.Label = h
			return f
		}
	}
	name := strings.ReplaceAll(slug.Make(h), "-", "_")
	kind := types.FieldText
	switch low := strings.ToLower(h); {
	case low == fieldmeta.FieldAmount || low == fieldmeta.FieldTotal:
		kind = types.FieldNumber
	case isDateHeader(h):
		kind = types.FieldDate
	}
	return types.FieldDefinition{Label: h, Name: name, Kind: kind}
}

// ErrorReport writes the preview's per-field errors as CSV.
func (s *ImportService) ErrorReport(ctx context.Context, id string, w io.Writer) error {
	p, err := s.previews.Load(ctx, id)
	if err != nil {
		return err
	}
	return WriteErrorReport(p, w)
}

func WriteErrorReport(p types.ImportPreview, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Sheet", "Row", "Field", "Error"}); err != nil {
		return err
	}
	for _, row := range p.PreviewData {
		for _, field := range errorFieldOrder(p.SheetHeaders[row.Sheet], row.Errors) {
			if err := cw.Write([]string{row.Sheet, strconv.Itoa(row.Row), field, row.Errors[field]}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// errorFieldOrder lists error fields in header order, then any others sorted.
func errorFieldOrder(headers []string, errs map[string]string) []string {
	out := make([]string, 0, len(errs))
	seen := map[string]struct{}{}
	for _, h := range headers {
		if _, ok := errs[h]; ok {
			if _, dup := seen[h]; !dup {
				seen[h] = struct{}{}
				out = append(out, h)
			}
		}
	}
	for _, k := range sortedKeys(errs) {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// FixedWorkbook renders the preview with suggestions applied, one sheet per
// staged sheet, ready to be corrected and uploaded again.
func (s *ImportService) FixedWorkbook(ctx context.Context, id string) (types.Workbook, error) {
	p, err := s.previews.Load(ctx, id)
	if err != nil {
		return types.Workbook{}, err
	}
	var wb types.Workbook
	for _, sheet := range p.Sheets() {
		rows := p.RowsOf(sheet)
		if len(rows) == 0 {
			continue
		}
		headers := p.SheetHeaders[sheet]
		if len(headers) == 0 {
			headers = sortedKeys(rows[0].Data)
		}
		wb.Sheets = append(wb.Sheets, types.Sheet{Name: sheet, Rows: fixedRows(headers, rows)})
	}
	return wb, nil
}
