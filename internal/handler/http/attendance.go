package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
	keepaliveInterval = 30 * time.Second
)

type AttendanceHandler interface {
	// Templates and uploads
	DownloadTemplate(w http.ResponseWriter, r *http.Request)
	StartUpload(w http.ResponseWriter, r *http.Request)
	ListUploads(w http.ResponseWriter, r *http.Request)
	GetUpload(w http.ResponseWriter, r *http.Request)
	CancelUpload(w http.ResponseWriter, r *http.Request)
	UploadReport(w http.ResponseWriter, r *http.Request)
	UploadDocument(w http.ResponseWriter, r *http.Request)

	// SSE
	GetStreamToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)

	// Store
	BulkWrite(w http.ResponseWriter, r *http.Request)
	ListRecords(w http.ResponseWriter, r *http.Request)
	StoreStatus(w http.ResponseWriter, r *http.Request)
}

// StoreStatusProvider reports the last health observation of the attendance store.
type StoreStatusProvider interface {
	Status() attendance.StoreStatusResponse
}

type attendanceHandlerImpl struct {
	uploadService attendance.BulkUploadService
	store         attendance.Store
	records       attendance.RecordReader
	health        StoreStatusProvider
	jwtService    jwt.Service
	maxFileSize   int64
}

// NewAttendanceHandler creates the attendance handler. store serves the bulk
// write API and may be nil when writes go to a remote store.
func NewAttendanceHandler(
	uploadService attendance.BulkUploadService,
	store attendance.Store,
	health StoreStatusProvider,
	jwtService jwt.Service,
	maxFileSize int64,
) AttendanceHandler {
	records, _ := store.(attendance.RecordReader)
	return &attendanceHandlerImpl{
		uploadService: uploadService,
		records:       records,
		store:         store,
		health:        health,
		jwtService:    jwtService,
		maxFileSize:   maxFileSize,
	}
}

// getUserIDFromContext extracts user_id from JWT context
func getUserIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
}

func attachment(w http.ResponseWriter, contentType, fileName string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DownloadTemplate implements AttendanceHandler.
func (h *attendanceHandlerImpl) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := attendance.TemplateRequest{
		StartDate:  query.Get("start_date"),
		EndDate:    query.Get("end_date"),
		Format:     query.Get("format"),
		Department: query.Get("department"),
	}
	if req.Format == "" {
		req.Format = "csv"
	}

	file, err := h.uploadService.GenerateTemplate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	attachment(w, file.ContentType, file.FileName, file.Data)
}

// StartUpload implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.HandleError(w, attendance.ErrDocumentTooLarge)
			return
		}
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			response.BadRequest(w, "Attendance document is required", map[string]string{"file": "required"})
			return
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded document", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}

	req := attendance.UploadRequest{
		FileName:  fileHeader.Filename,
		Data:      data,
		StartDate: r.FormValue("start_date"),
		EndDate:   r.FormValue("end_date"),
		Remarks:   r.FormValue("remarks"),
		DryRun:    validator.ParseBool(r.FormValue("dry_run")),
	}
	if userID := getUserIDFromContext(r); userID != "" {
		req.CreatedBy = &userID
	}

	run, err := h.uploadService.StartUpload(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Attendance upload started", run)
}

// ListUploads implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListUploads(w http.ResponseWriter, r *http.Request) {
	runs, err := h.uploadService.ListUploads(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, runs)
}

// GetUpload implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetUpload(w http.ResponseWriter, r *http.Request) {
	run, err := h.uploadService.GetUpload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, run)
}

// CancelUpload implements AttendanceHandler.
func (h *attendanceHandlerImpl) CancelUpload(w http.ResponseWriter, r *http.Request) {
	run, err := h.uploadService.CancelUpload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Accepted(w, "Attendance upload cancellation requested", run)
}

// UploadReport implements AttendanceHandler.
func (h *attendanceHandlerImpl) UploadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.uploadService.UploadReport(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	attachment(w, "application/pdf", fmt.Sprintf("attendance_upload_%s.pdf", id), data)
}

// UploadDocument implements AttendanceHandler.
func (h *attendanceHandlerImpl) UploadDocument(w http.ResponseWriter, r *http.Request) {
	file, err := h.uploadService.UploadDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	attachment(w, file.ContentType, file.FileName, file.Data)
}

// GetStreamToken generates a short-lived token for one upload's event stream
func (h *attendanceHandlerImpl) GetStreamToken(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.uploadService.GetUpload(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateStreamToken(userID, id)
	if err != nil {
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, attendance.StreamTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream handles the SSE connection for one upload's progress
func (h *attendanceHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// EventSource cannot send headers, so the token travels in the query
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	if _, err := h.jwtService.ValidateStreamToken(tokenStr, id); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cleanup, err := h.uploadService.Subscribe(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer cleanup()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"upload_id\":%q}\n\n", id)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// BulkWrite is the attendance store write API for one date.
func (h *attendanceHandlerImpl) BulkWrite(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		response.ServiceUnavailable(w, "Attendance writes are handled by a remote store")
		return
	}

	var req attendance.BulkWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, attendance.ErrUnknownStatus) {
			response.BadRequest(w, err.Error(), nil)
			return
		}
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.store.BulkWrite(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, fmt.Sprintf("Saved %d attendance records for %s", result.Count, req.AttendanceDate), result)
}

// ListRecords reads back the stored attendance of one date.
func (h *attendanceHandlerImpl) ListRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		response.ServiceUnavailable(w, "Attendance records are held by a remote store")
		return
	}

	records, err := h.records.ListRecords(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, records)
}

// StoreStatus implements AttendanceHandler.
func (h *attendanceHandlerImpl) StoreStatus(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.health.Status())
}
