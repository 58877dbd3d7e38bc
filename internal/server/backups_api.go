package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jacksonlee411/assetdesk/internal/backup"
	"github.com/jacksonlee411/assetdesk/internal/routing"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

type restoreBackupAPIRequest struct {
	// File is a snapshot name inside the backup directory; blank picks the latest.
	File string `json:"file"`
}

func writeOpsJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleRunBackupAPI(w http.ResponseWriter, r *http.Request, svc *backup.Service) {
	res, err := svc.Run(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("manual backup failed", "error", err)
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, "backup_failed", "backup_failed")
		return
	}
	writeOpsJSON(w, http.StatusCreated, res)
}

func handleLatestBackupAPI(w http.ResponseWriter, r *http.Request, svc *backup.Service) {
	path, err := svc.Latest()
	if err != nil {
		if errors.Is(err, backup.ErrNoBackups) {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusNotFound, "backup_not_found", "backup_not_found")
			return
		}
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, "backup_failed", "backup_failed")
		return
	}
	writeOpsJSON(w, http.StatusOK, map[string]string{"file": filepath.Base(path)})
}

func handleRestoreBackupAPI(w http.ResponseWriter, r *http.Request, svc *backup.Service) {
	var req restoreBackupAPIRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad_json")
		return
	}
	name := strings.TrimSpace(req.File)
	path := ""
	if name != "" {
		if filepath.Base(name) != name || strings.HasPrefix(name, ".") {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_backup_file", "invalid_backup_file")
			return
		}
		path = filepath.Join(svc.Dir(), name)
	}

	n, err := svc.Restore(r.Context(), path)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackups) || errors.Is(err, fs.ErrNotExist) {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusNotFound, "backup_not_found", "backup_not_found")
			return
		}
		logger.FromContext(r.Context()).Error("restore failed", "file", name, "error", err)
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, "restore_failed", "restore_failed")
		return
	}
	writeOpsJSON(w, http.StatusOK, map[string]int{"restored": n})
}
