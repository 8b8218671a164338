package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"marcout/internal/jobstore"
)

const fixtureDSL = `KNOWN PARAMETERS ----
collection_code

JSON EXTRACTED PROPERTIES ----
control_number = album_id

MARC FIELD TEMPLATES ----
FIELD: 001
CONTENT: control_number
TERMINATE DATA WITH: NOTHING
`

func newTestJobStore(t *testing.T) *jobstore.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := jobstore.NewForTesting(db)
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return store
}

func TestResolveRecordsInlineWins(t *testing.T) {
	h := NewExportHandler(nil, nil, "", 0)
	req := &exportRequest{}
	req.Records = []map[string]any{{"album_id": "a1"}}
	req.RecordsUploadID = "11111111-1111-1111-1111-111111111111"

	if err := h.resolveRecords(req); err != nil {
		t.Fatalf("resolveRecords: %v", err)
	}
	if len(req.Records) != 1 || req.Records[0]["album_id"] != "a1" {
		t.Errorf("inline records were overwritten: %+v", req.Records)
	}
}

func TestResolveRecordsFromXLSXUpload(t *testing.T) {
	dir := t.TempDir()
	uploadID := "22222222-2222-2222-2222-222222222222"

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "album_id")
	f.SetCellValue(sheet, "A2", "a42")
	if err := f.SaveAs(filepath.Join(dir, uploadID+".xlsx")); err != nil {
		t.Fatalf("save fixture workbook: %v", err)
	}

	h := NewExportHandler(nil, nil, dir, 0)
	req := &exportRequest{RecordsUploadID: uploadID}

	if err := h.resolveRecords(req); err != nil {
		t.Fatalf("resolveRecords: %v", err)
	}
	if len(req.Records) != 1 || req.Records[0]["album_id"] != "a42" {
		t.Errorf("got records %+v", req.Records)
	}
}

func TestResolveRecordsRejectsInvalidUploadID(t *testing.T) {
	h := NewExportHandler(nil, nil, t.TempDir(), 0)
	req := &exportRequest{RecordsUploadID: "../../etc/passwd"}

	if err := h.resolveRecords(req); err == nil {
		t.Fatal("expected an error for a path-traversal upload_id")
	}
}

func TestExportHandlerEnqueuesJobOverBatchLimit(t *testing.T) {
	store := newTestJobStore(t)
	h := NewExportHandler(nil, store, "", 1)

	app := fiber.New()
	app.Post("/export", h.Handle)
	app.Get("/jobs/:id", h.JobStatus)

	body := map[string]any{
		"marcout_sourcecode":     fixtureDSL,
		"requested_serialization": map[string]string{"serialization-name": "marc-text"},
		"collection_info":        map[string]any{"collection_code": "NBB"},
		"records": []map[string]any{
			{"album_id": "a1"},
			{"album_id": "a2"},
		},
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest("POST", "/export", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST /export: %v", err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("got status %d, want 202", resp.StatusCode)
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode accepted response: %v", err)
	}
	if accepted.JobID == "" {
		t.Fatal("expected a non-empty job_id")
	}

	deadline := time.Now().Add(2 * time.Second)
	var job *jobstore.Job
	for time.Now().Before(deadline) {
		job, err = store.Get(accepted.JobID)
		if err == nil && job.Status == jobstore.StatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job == nil || job.Status != jobstore.StatusCompleted {
		t.Fatalf("job did not complete in time: %+v", job)
	}

	statusReq := httptest.NewRequest("GET", "/jobs/"+accepted.JobID, nil)
	statusResp, err := app.Test(statusReq, -1)
	if err != nil {
		t.Fatalf("GET /jobs/:id: %v", err)
	}
	if statusResp.StatusCode != fiber.StatusOK {
		t.Fatalf("got status %d, want 200", statusResp.StatusCode)
	}
}
