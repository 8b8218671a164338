package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"marcout/internal/jobstore"
	"marcout/internal/logging"
	"marcout/internal/marcerr"
	"marcout/internal/marcout"
	"marcout/internal/recordstore"
	"marcout/internal/security"
	"marcout/internal/sources"
)

// ExportHandler serves POST /api/marcout/1.0/export, grounded in the
// teacher's thin fiber-handler-calls-a-service pattern (e.g.
// health.go's Handle) but wired to the evaluation pipeline instead of
// a service layer.
type ExportHandler struct {
	batches          *recordstore.Store // optional; nil when MONGO_URL isn't configured
	jobs             *jobstore.Store    // optional; nil runs every request inline
	uploadDir        string             // scratch directory holding <uuid>.xlsx / <uuid>.pdf uploads
	recordBatchLimit int                // requests with more records than this run as async jobs
}

// NewExportHandler builds a handler. batches and jobs may be nil.
func NewExportHandler(batches *recordstore.Store, jobs *jobstore.Store, uploadDir string, recordBatchLimit int) *ExportHandler {
	return &ExportHandler{
		batches:          batches,
		jobs:             jobs,
		uploadDir:        uploadDir,
		recordBatchLimit: recordBatchLimit,
	}
}

// exportRequest extends the §6 unified request with the out-of-band
// record sources the core evaluator stays ignorant of: a Mongo batch
// reference, an uploaded xlsx workbook, and an optional liner-notes
// PDF merged into every record before evaluation.
type exportRequest struct {
	marcout.UnifiedRequest
	RecordsBatchID     string `json:"records_batch_id"`
	RecordsUploadID    string `json:"records_upload_id"`
	RecordsSheetName   string `json:"records_sheet_name"`
	LinerNotesUploadID string `json:"liner_notes_upload_id"`
}

// Handle parses the request, resolves its records from whichever
// source was given, and either runs the export pipeline inline or (for
// batches too large to process inline) queues an asynchronous job and
// returns its ID for polling via JobStatus.
func (h *ExportHandler) Handle(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	if err := h.resolveRecords(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if h.jobs != nil && h.recordBatchLimit > 0 && len(req.Records) > h.recordBatchLimit {
		return h.enqueueJob(c, &req)
	}

	requestID, _ := c.Locals("requestid").(string)
	logger := logging.WithRequest(requestID, req.RequestedSerialization.Name, len(req.Records))

	ws, err := marcout.ResolveWorkset(&req.UnifiedRequest)
	if err != nil {
		return respondError(c, err)
	}

	result, err := marcout.Export(ws)
	if err != nil {
		return respondError(c, err)
	}

	logger.Info("export completed", "records", len(result.Records))
	return c.JSON(result)
}

// resolveRecords fills req.Records from a Mongo batch reference or an
// uploaded xlsx workbook when the request body didn't supply them
// inline, and merges an uploaded PDF's text into every record under
// "liner_notes" when requested. Inline records, if present, always
// win over a batch or upload reference.
func (h *ExportHandler) resolveRecords(req *exportRequest) error {
	switch {
	case len(req.Records) > 0:
		// already populated

	case req.RecordsBatchID != "":
		if h.batches == nil {
			return fmt.Errorf("records_batch_id given but no record store is configured")
		}
		batch, err := h.batches.GetBatch(context.Background(), req.RecordsBatchID)
		if err != nil {
			return fmt.Errorf("unknown records_batch_id")
		}
		req.Records = batch.Records

	case req.RecordsUploadID != "":
		if h.uploadDir == "" {
			return fmt.Errorf("records_upload_id given but no upload directory is configured")
		}
		if err := security.ValidateUploadID(req.RecordsUploadID); err != nil {
			return err
		}
		path := filepath.Join(h.uploadDir, req.RecordsUploadID+".xlsx")
		records, err := sources.RecordsFromXLSX(path, req.RecordsSheetName)
		if err != nil {
			return err
		}
		req.Records = records
	}

	if req.LinerNotesUploadID != "" {
		if h.uploadDir == "" {
			return fmt.Errorf("liner_notes_upload_id given but no upload directory is configured")
		}
		if err := security.ValidateUploadID(req.LinerNotesUploadID); err != nil {
			return err
		}
		path := filepath.Join(h.uploadDir, req.LinerNotesUploadID+".pdf")
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading liner notes upload: %w", err)
		}
		text, err := sources.LinerNotesFromPDF(data)
		if err != nil {
			return err
		}
		for i, record := range req.Records {
			req.Records[i] = sources.WithLinerNotes(record, text)
		}
	}

	return nil
}

// enqueueJob persists a queued jobstore row and runs the export
// pipeline in the background, for requests with more records than
// recordBatchLimit — too large to hold a caller's connection open for.
func (h *ExportHandler) enqueueJob(c *fiber.Ctx, req *exportRequest) error {
	id := uuid.New().String()
	job := jobstore.Job{
		ID:            id,
		Serialization: req.RequestedSerialization.Name,
		RecordCount:   len(req.Records),
		CreatedAt:     time.Now(),
	}
	if err := h.jobs.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to queue export job"})
	}

	jobs := h.jobs
	reqCopy := req.UnifiedRequest
	go func(id string, req marcout.UnifiedRequest) {
		if err := jobs.UpdateStatus(id, jobstore.StatusRunning, ""); err != nil {
			return
		}
		ws, err := marcout.ResolveWorkset(&req)
		if err != nil {
			jobs.UpdateStatus(id, jobstore.StatusFailed, err.Error())
			return
		}
		result, err := marcout.Export(ws)
		if err != nil {
			jobs.UpdateStatus(id, jobstore.StatusFailed, err.Error())
			return
		}
		jobs.UpdateStatus(id, jobstore.StatusCompleted, fmt.Sprintf("%d records serialized", len(result.Records)))
	}(id, reqCopy)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": id,
		"status": jobstore.StatusQueued,
	})
}

// JobStatus serves GET /api/marcout/1.0/jobs/:id, reporting an
// asynchronous export job's current lifecycle state. It does not
// return the serialized records themselves: the background job records
// only its status and a one-line summary (the serialized record count,
// or the error), and its serialized output is not stored.
func (h *ExportHandler) JobStatus(c *fiber.Ctx) error {
	if h.jobs == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no job store is configured"})
	}
	job, err := h.jobs.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown job id"})
	}
	return c.JSON(job)
}

func respondError(c *fiber.Ctx, err error) error {
	var marcErr *marcerr.Error
	if errors.As(err, &marcErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": marcErr.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
