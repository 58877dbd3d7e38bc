package controllers

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/modules/asset/infrastructure/spreadsheet"
	"github.com/jacksonlee411/assetdesk/modules/asset/services"
	"github.com/jacksonlee411/assetdesk/pkg/httperr"
)

type AssetReader interface {
	ListTypes(ctx context.Context) ([]string, error)
	MasterFields() []types.FieldDefinition
	GetFields(ctx context.Context, category string) ([]types.FieldDefinition, error)
	View(ctx context.Context, id string) (services.AssetView, error)
	EditForm(ctx context.Context, id string) (services.EditForm, error)
	Search(ctx context.Context, q services.SearchQuery) ([]services.SearchRow, error)
	Export(ctx context.Context, ids []string) (types.Workbook, error)
	KekaExport(ctx context.Context, ids []string) (types.Workbook, error)
}

type AssetWriter interface {
	Create(ctx context.Context, req services.CreateAssetRequest) (services.CreateAssetResult, error)
	Update(ctx context.Context, req services.UpdateAssetRequest) (services.UpdateAssetResult, error)
	CreateType(ctx context.Context, req services.CreateTypeRequest) (types.AssetType, error)
	Delete(ctx context.Context, ids []string) (int, error)
}

type AssetsController struct {
	Reader  AssetReader
	Writer  AssetWriter
	Metrics *Metrics
}

type createAssetAPIRequest struct {
	Category string            `json:"category"`
	NewType  bool              `json:"new_type"`
	Features []string          `json:"features"`
	Data     map[string]string `json:"data"`
}

type updateAssetAPIRequest struct {
	ID         string            `json:"id"`
	Data       map[string]string `json:"data"`
	Source     string            `json:"source"`
	ForceApply bool              `json:"force_apply"`
}

type createTypeAPIRequest struct {
	Name     string                  `json:"name"`
	Features []string                `json:"features"`
	Fields   []types.FieldDefinition `json:"fields"`
}

type deleteAssetsAPIRequest struct {
	IDs []string `json:"ids"`
}

// HandleAssetsAPI: GET searches, POST creates.
func (c AssetsController) HandleAssetsAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		rows, err := c.Reader.Search(r.Context(), services.SearchQuery{
			Term: strings.TrimSpace(q.Get("q")),
			Sort: strings.TrimSpace(q.Get("sort")),
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assets": rows})

	case http.MethodPost:
		var req createAssetAPIRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := c.Writer.Create(r.Context(), services.CreateAssetRequest{
			Category: req.Category,
			NewType:  req.NewType,
			Features: req.Features,
			Data:     req.Data,
		})
		c.Metrics.write("create", err, len(res.Warnings))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (c AssetsController) HandleViewAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	view, err := c.Reader.View(r.Context(), pathOrQuery(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (c AssetsController) HandleEditFormAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	form, err := c.Reader.EditForm(r.Context(), pathOrQuery(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (c AssetsController) HandleUpdateAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req updateAssetAPIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_id", "id is required")
		return
	}
	source := types.Source(strings.ToLower(strings.TrimSpace(req.Source)))
	switch source {
	case "", types.SourceUI, types.SourceSpreadsheet:
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_source", "source must be ui or spreadsheet")
		return
	}

	res, err := c.Writer.Update(r.Context(), services.UpdateAssetRequest{
		ID:         req.ID,
		Data:       req.Data,
		Source:     source,
		ForceApply: req.ForceApply,
	})
	c.Metrics.write("update", err, len(res.Warnings))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c AssetsController) HandleDeleteAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req deleteAssetsAPIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := c.Writer.Delete(r.Context(), req.IDs)
	c.Metrics.write("delete", err, 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// HandleTypesAPI: GET lists category names, POST creates a category.
func (c AssetsController) HandleTypesAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names, err := c.Reader.ListTypes(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"types": names})

	case http.MethodPost:
		var req createTypeAPIRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		t, err := c.Writer.CreateType(r.Context(), services.CreateTypeRequest{
			Name:     req.Name,
			Features: req.Features,
			Fields:   req.Fields,
		})
		c.Metrics.write("create_type", err, 0)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (c AssetsController) HandleTypeFieldsAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	category := pathOrQuery(r, "category")
	if category == "" {
		writeServiceError(w, r, httperr.NewBadRequest(services.ErrCodeCategoryRequired))
		return
	}
	fields, err := c.Reader.GetFields(r.Context(), category)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "fields": fields})
}

func (c AssetsController) HandleMasterFieldsAPI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": c.Reader.MasterFields()})
}

// HandleExport streams one sheet per category; ?ids limits the selection.
func (c AssetsController) HandleExport(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, c.Reader.Export, "assets_export.xlsx")
}

func (c AssetsController) HandleKekaExport(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, c.Reader.KekaExport, "keka_export.xlsx")
}

func (c AssetsController) export(w http.ResponseWriter, r *http.Request, build func(context.Context, []string) (types.Workbook, error), filename string) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	wb, err := build(r.Context(), queryIDs(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeWorkbook(w, r, wb, filename)
}

func writeWorkbook(w http.ResponseWriter, r *http.Request, wb types.Workbook, filename string) {
	var buf bytes.Buffer
	if err := spreadsheet.WriteWorkbook(&buf, wb); err != nil {
		writeServiceError(w, r, err)
		return
	}
	attachment(w, spreadsheet.ContentType, filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
