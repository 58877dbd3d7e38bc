package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/modules/asset/infrastructure/spreadsheet"
	"github.com/jacksonlee411/assetdesk/modules/asset/services"
)

const (
	maxUploadBytes = 20 << 20
	uploadField    = "file"
)

type Importer interface {
	Stage(ctx context.Context, wb types.Workbook) (types.ImportPreview, error)
	Preview(ctx context.Context, id string) (types.ImportPreview, error)
	Discard(ctx context.Context, id string) error
	Confirm(ctx context.Context, id string, opts services.ConfirmOptions) (services.ConfirmResult, error)
	ErrorReport(ctx context.Context, id string, w io.Writer) error
	FixedWorkbook(ctx context.Context, id string) (types.Workbook, error)
}

type ImportsController struct {
	Importer Importer
	Metrics  *Metrics
	// ReadWorkbook parses uploads; defaults to spreadsheet.ReadWorkbook.
	ReadWorkbook func(io.Reader) (types.Workbook, error)
}

type importCorrection struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type confirmImportAPIRequest struct {
	ID          string             `json:"id"`
	Corrections []importCorrection `json:"corrections"`
}

type previewIDAPIRequest struct {
	ID string `json:"id"`
}

// HandleUploadAPI stages a multipart .xlsx upload (form field "file").
func (c ImportsController) HandleUploadAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file_required", "an .xlsx file is required")
		return
	}
	defer func() { _ = file.Close() }()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		writeError(w, r, http.StatusBadRequest, "invalid_file_type", "only .xlsx files are accepted")
		return
	}

	read := c.ReadWorkbook
	if read == nil {
		read = spreadsheet.ReadWorkbook
	}
	wb, err := read(file)
	if err != nil {
		code := "invalid_workbook"
		if errors.Is(err, spreadsheet.ErrEmptyWorkbook) {
			code = "empty_workbook"
		}
		writeError(w, r, http.StatusBadRequest, code, "could not read workbook")
		return
	}

	p, err := c.Importer.Stage(r.Context(), wb)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.Metrics.rows("staged", len(p.PreviewData))
	c.Metrics.rows("error", p.ErrorCount)
	writeJSON(w, http.StatusCreated, p)
}

func (c ImportsController) HandlePreviewAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	p, err := c.Importer.Preview(r.Context(), pathOrQuery(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (c ImportsController) HandleConfirmAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req confirmImportAPIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opts := services.ConfirmOptions{Corrections: map[services.RowRef]map[string]string{}}
	for _, corr := range req.Corrections {
		if corr.Field == "" {
			continue
		}
		ref := services.RowRef{Sheet: corr.Sheet, Row: corr.Row}
		if opts.Corrections[ref] == nil {
			opts.Corrections[ref] = map[string]string{}
		}
		opts.Corrections[ref][corr.Field] = corr.Value
	}

	res, err := c.Importer.Confirm(r.Context(), bodyOrPathID(r, req.ID), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.Metrics.rows("inserted", res.Inserted)
	c.Metrics.rows("held", len(res.Held))
	writeJSON(w, http.StatusOK, res)
}

func (c ImportsController) HandleDiscardAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req previewIDAPIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := c.Importer.Discard(r.Context(), bodyOrPathID(r, req.ID)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bodyOrPathID prefers the id in the JSON body over the {id} segment.
func bodyOrPathID(r *http.Request, bodyID string) string {
	if id := strings.TrimSpace(bodyID); id != "" {
		return id
	}
	return pathOrQuery(r, "id")
}

// HandleErrorReport downloads the Sheet,Row,Field,Error CSV of a preview.
func (c ImportsController) HandleErrorReport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	var buf bytes.Buffer
	if err := c.Importer.ErrorReport(r.Context(), pathOrQuery(r, "id"), &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", "import_errors.csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleFixedWorkbook downloads the upload with suggestions applied.
func (c ImportsController) HandleFixedWorkbook(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	wb, err := c.Importer.FixedWorkbook(r.Context(), pathOrQuery(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeWorkbook(w, r, wb, "fixed_import.xlsx")
}
