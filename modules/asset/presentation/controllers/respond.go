package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jacksonlee411/assetdesk/internal/routing"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/services"
	"github.com/jacksonlee411/assetdesk/pkg/httperr"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	routing.WriteError(w, r, routing.RouteClassPublicAPI, status, code, message)
}

// writeServiceError maps service and store errors onto stable codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case httperr.IsBadRequest(err):
		writeError(w, r, http.StatusBadRequest, err.Error(), err.Error())
	case services.IsImmutableViolation(err):
		writeError(w, r, http.StatusUnprocessableEntity, services.ErrCodeImmutableFieldModified, err.Error())
	case errors.Is(err, ports.ErrAssetNotFound):
		writeError(w, r, http.StatusNotFound, services.ErrCodeAssetNotFound, "asset not found")
	case errors.Is(err, ports.ErrAssetTypeNotFound):
		writeError(w, r, http.StatusNotFound, services.ErrCodeAssetTypeNotFound, "asset type not found")
	case errors.Is(err, ports.ErrPreviewNotFound):
		writeError(w, r, http.StatusNotFound, services.ErrCodePreviewNotFound, "import preview not found or expired")
	case errors.Is(err, services.ErrAssetTypeExists):
		writeError(w, r, http.StatusConflict, services.ErrCodeAssetTypeExists, "asset type already exists")
	default:
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "method", r.Method, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// decodeJSON leaves dst untouched for an empty body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return false
	}
	return true
}

// pathOrQuery reads the {name} path segment, falling back to ?name.
func pathOrQuery(r *http.Request, name string) string {
	if v := strings.TrimSpace(routing.PathParam(r, name)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// queryIDs accepts ?ids=a,b and repeated ?id=a&id=b.
func queryIDs(r *http.Request) []string {
	q := r.URL.Query()
	var out []string
	for _, raw := range q["ids"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	for _, id := range q["id"] {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func attachment(w http.ResponseWriter, contentType string, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
