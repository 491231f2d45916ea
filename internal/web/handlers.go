package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sunghokim-dev/presbytery-site/internal/backup"
	"github.com/sunghokim-dev/presbytery-site/internal/schema"
	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

// targetInfo is the JSON shape of one registry entry.
type targetInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// handleListTargets returns every registered interchange target.
func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	infos := s.service.Targets()
	out := make([]targetInfo, len(infos))
	for i, info := range infos {
		kind := "flat"
		if info.Kind == schema.KindDocument {
			kind = "document"
		}
		out[i] = targetInfo{Key: info.Key, Label: info.Label, Kind: kind}
	}
	writeJSON(w, out)
}

// handleDownloadTemplate returns the target's CSV with its current rows, or
// one example row when empty, named so spreadsheets open it as a template.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	s.serveCSV(w, r, target, target+"-template.csv")
}

// handleExportCSV returns the target's current rows as CSV, the download
// named with today's date.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	name := fmt.Sprintf("%s-%s.csv", target, time.Now().Format("2006-01-02"))
	s.serveCSV(w, r, target, name)
}

func (s *Server) serveCSV(w http.ResponseWriter, r *http.Request, target, filename string) {
	if _, ok := schema.Get(target); !ok {
		writeError(w, http.StatusNotFound, "unknown target")
		return
	}

	doc, err := s.service.ExportTable(r.Context(), target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	payload := tabular.Encode(doc.Headers, doc.Rows)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(payload)
}

// handleExportWorkbook returns the target's current rows as an XLSX
// workbook.
func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if _, ok := schema.Get(target); !ok {
		writeError(w, http.StatusNotFound, "unknown target")
		return
	}

	payload, err := s.service.ExportWorkbook(r.Context(), target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", target+".xlsx"))
	w.Write(payload)
}

// importResponse is the JSON body of a successful import.
type importResponse struct {
	Success       bool   `json:"success"`
	Target        string `json:"target"`
	ImportedCount int    `json:"importedCount"`
	OperationID   string `json:"operationId"`
}

// handleImport replaces or merges a target's data from an uploaded CSV.
// Flat targets are replaced wholesale, so the request must carry
// confirm=true; a plain upload without it is rejected before anything is
// parsed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	def, ok := schema.Get(target)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown target")
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	if def.Info.Kind == schema.KindFlat && r.FormValue("confirm") != "true" {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("importing %s replaces all existing rows; resubmit with confirm=true", target))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	result, err := s.service.ImportTable(ctx, target, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, importResponse{
		Success:       true,
		Target:        result.Target,
		ImportedCount: result.ImportedCount,
		OperationID:   result.OperationID,
	})
}

// handleBackup streams a zip archive of every collection and asset.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", backup.Filename(time.Now())))

	builder := backup.NewBuilder(s.stores)
	if err := builder.WriteTo(r.Context(), w); err != nil {
		// Headers are already sent; the client sees a truncated download.
		slog.Error("backup stream failed", "error", err, "state", builder.State())
	}
}

// handleRestore applies an uploaded backup archive. Overwrite (the
// default) clears everything first and must carry confirm=true; merge only
// adds items that are not already present.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Backup.MaxArchiveSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "archive too large or invalid form")
		return
	}

	policy, err := backup.ParsePolicy(r.FormValue("policy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if policy == backup.PolicyOverwrite && r.FormValue("confirm") != "true" {
		writeError(w, http.StatusBadRequest,
			"an overwrite restore replaces all collections and assets; resubmit with confirm=true")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no archive provided")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Backup.RestoreTimeout)
	defer cancel()

	result, err := s.restorer.Restore(ctx, file, header.Size, policy)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, result)
}
