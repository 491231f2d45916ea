package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sunghokim-dev/presbytery-site/internal/config"
	"github.com/sunghokim-dev/presbytery-site/internal/core"
	"github.com/sunghokim-dev/presbytery-site/internal/schema"
	"github.com/sunghokim-dev/presbytery-site/internal/store"
	"github.com/sunghokim-dev/presbytery-site/internal/tabular"
)

type memRecords struct {
	data map[string][]schema.FlatRecord
}

func (m *memRecords) ListAll(ctx context.Context, collection string) ([]schema.FlatRecord, error) {
	return m.data[collection], nil
}

func (m *memRecords) DeleteAll(ctx context.Context, collection string) error {
	delete(m.data, collection)
	return nil
}

func (m *memRecords) BulkInsert(ctx context.Context, collection string, records []schema.FlatRecord) error {
	m.data[collection] = append(m.data[collection], records...)
	return nil
}

func (m *memRecords) ReplaceAll(ctx context.Context, collection string, records []schema.FlatRecord) error {
	m.data[collection] = records
	return nil
}

type memDocuments struct {
	data map[string][]byte
}

func (m *memDocuments) Read(ctx context.Context, key string) ([]byte, error) {
	return m.data[key], nil
}

func (m *memDocuments) Write(ctx context.Context, key string, doc []byte) error {
	m.data[key] = doc
	return nil
}

type memAssets struct {
	data map[string][]byte
}

func (m *memAssets) List(ctx context.Context) ([]string, error) {
	var paths []string
	for p := range m.data {
		paths = append(paths, p)
	}
	return paths, nil
}

func (m *memAssets) Read(ctx context.Context, path string) ([]byte, error) {
	data, ok := m.data[path]
	if !ok {
		return nil, fmt.Errorf("no such asset: %s", path)
	}
	return data, nil
}

func (m *memAssets) Write(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.data[path] = data
	return nil
}

func (m *memAssets) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := m.data[path]
	return ok, nil
}

func (m *memAssets) RemoveAll(ctx context.Context) error {
	m.data = make(map[string][]byte)
	return nil
}

func newTestServer() (*Server, *memRecords) {
	records := &memRecords{data: make(map[string][]schema.FlatRecord)}
	stores := store.Stores{
		Records:   records,
		Documents: &memDocuments{data: make(map[string][]byte)},
		Assets:    &memAssets{data: make(map[string][]byte)},
	}
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, Timeout: time.Minute},
		Backup: config.BackupConfig{MaxArchiveSize: 1 << 20, RestoreTimeout: time.Minute},
	}
	return NewServer(cfg, core.NewService(stores), stores), records
}

func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleListTargets(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/targets", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var targets []targetInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &targets); err != nil {
		t.Fatalf("response unparseable: %v", err)
	}
	if len(targets) != 7 {
		t.Errorf("targets = %d, want 7", len(targets))
	}
}

func TestHandleDownloadTemplate(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/template/fees-status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "fees-status-template.csv") {
		t.Errorf("Content-Disposition = %q, want the template filename", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("template download missing UTF-8 BOM")
	}
	// Empty collection still yields a header line plus one example row.
	lines := strings.Count(rec.Body.String(), "\r\n")
	if lines != 2 {
		t.Errorf("template has %d lines, want header plus one example row", lines)
	}
}

func TestHandleExportCSV_FilenameEmbedsDate(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/export/members", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := fmt.Sprintf("members-%s.csv", time.Now().Format("2006-01-02"))
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, want) {
		t.Errorf("Content-Disposition = %q, want %q", cd, want)
	}
}

func TestHandleDownloadTemplate_UnknownTarget(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/template/nope", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleImport_RequiresConfirmForFlatTargets(t *testing.T) {
	srv, records := newTestServer()

	csv := tabular.Encode([]string{"이름", "교회", "직분"}, []tabular.Row{
		{"이름": "김철수", "교회": "은혜교회", "직분": "장로"},
	})

	// Without confirm=true the destructive import is rejected.
	body, contentType := multipartBody(t, nil, "members.csv", csv)
	req := httptest.NewRequest(http.MethodPost, "/api/import/members", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status without confirm = %d, want 400", rec.Code)
	}
	if len(records.data[schema.CollectionMembers]) != 0 {
		t.Fatal("unconfirmed import must not write")
	}

	// With confirm=true it goes through.
	body, contentType = multipartBody(t, map[string]string{"confirm": "true"}, "members.csv", csv)
	req = httptest.NewRequest(http.MethodPost, "/api/import/members", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with confirm = %d, want 200; body = %s", rec.Code, rec.Body)
	}

	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response unparseable: %v", err)
	}
	if !resp.Success || resp.ImportedCount != 1 {
		t.Errorf("response = %+v, want success with 1 imported", resp)
	}
	if len(records.data[schema.CollectionMembers]) != 1 {
		t.Errorf("stored %d members, want 1", len(records.data[schema.CollectionMembers]))
	}
}

func TestHandleImport_MalformedCSVNamesLine(t *testing.T) {
	srv, _ := newTestServer()

	body, contentType := multipartBody(t, map[string]string{"confirm": "true"},
		"members.csv", []byte("이름,교회,직분\n김철수,은혜교회\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/import/members", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "line 2") {
		t.Errorf("error body = %s, want the offending line number", rec.Body)
	}
}

func TestHandleBackup_DownloadHeaders(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/backup", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q, want application/zip", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "presbytery-backup-") || !strings.Contains(cd, ".zip") {
		t.Errorf("Content-Disposition = %q, want a dated zip filename", cd)
	}
	if body := rec.Body.Bytes(); len(body) < 4 || body[0] != 'P' || body[1] != 'K' {
		t.Error("backup body is not a zip container")
	}
}

func TestHandleRestore_RejectsUnknownPolicy(t *testing.T) {
	srv, _ := newTestServer()

	body, contentType := multipartBody(t, map[string]string{"policy": "upsert"}, "b.zip", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRestore_OverwriteRequiresConfirm(t *testing.T) {
	srv, _ := newTestServer()

	body, contentType := multipartBody(t, nil, "b.zip", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "confirm=true") {
		t.Errorf("error body = %s, want the confirmation hint", rec.Body)
	}
}

func TestHandleRestore_EndToEnd(t *testing.T) {
	// Build a backup from one server, restore it into another.
	src, srcRecords := newTestServer()
	srcRecords.data[schema.CollectionMembers] = []schema.FlatRecord{
		schema.MemberRecord{Name: "김철수", Church: "은혜교회"},
	}

	backupReq := httptest.NewRequest(http.MethodGet, "/api/backup", nil)
	backupRec := httptest.NewRecorder()
	src.Router().ServeHTTP(backupRec, backupReq)
	if backupRec.Code != http.StatusOK {
		t.Fatalf("backup status = %d, want 200", backupRec.Code)
	}

	dst, dstRecords := newTestServer()
	dstRecords.data[schema.CollectionMembers] = []schema.FlatRecord{
		schema.MemberRecord{Name: "기존회원", Church: "제일교회"},
	}

	body, contentType := multipartBody(t,
		map[string]string{"policy": "overwrite", "confirm": "true"},
		"backup.zip", backupRec.Body.Bytes())
	req := httptest.NewRequest(http.MethodPost, "/api/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	dst.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, want 200; body = %s", rec.Code, rec.Body)
	}

	got := dstRecords.data[schema.CollectionMembers]
	if len(got) != 1 || got[0].(schema.MemberRecord).Name != "김철수" {
		t.Errorf("members after restore = %+v, want exactly the archive's rows", got)
	}
}
