package attendance

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/storage"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-ingest/internal/service/file"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	persistTimeout   = 5 * time.Second
	templateSheet    = "Attendance"
	queuedMessage    = "Waiting to start"
	messageRunFailed = "Upload stopped unexpectedly"
)

// Config bounds what an upload may contain.
type Config struct {
	MaxRangeDays int
	MaxFileSize  int64
}

type BulkUploadServiceImpl struct {
	employee.RosterRepository
	runRepo  attendance.UploadRunRepository
	store    attendance.Store
	files    file.FileService
	hub      *sse.Hub
	registry *Registry
	cfg      Config
	wg       sync.WaitGroup
}

// NewBulkUploadService wires the upload service. runRepo and files may be nil,
// in which case runs are kept in memory only and documents are not archived.
func NewBulkUploadService(
	rosterRepo employee.RosterRepository,
	runRepo attendance.UploadRunRepository,
	store attendance.Store,
	files file.FileService,
	hub *sse.Hub,
	cfg Config,
) *BulkUploadServiceImpl {
	if hub == nil {
		hub = sse.NewHub(0)
	}
	return &BulkUploadServiceImpl{
		RosterRepository: rosterRepo,
		runRepo:          runRepo,
		store:            store,
		files:            files,
		hub:              hub,
		registry:         NewRegistry(),
		cfg:              cfg,
	}
}

// GenerateTemplate implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) GenerateTemplate(ctx context.Context, req attendance.TemplateRequest) (attendance.TemplateFile, error) {
	if err := req.Validate(s.cfg.MaxRangeDays); err != nil {
		return attendance.TemplateFile{}, err
	}

	rng, err := daterange.Parse(req.StartDate, req.EndDate)
	if err != nil {
		return attendance.TemplateFile{}, err
	}
	format, err := tabular.ParseFormat(req.Format)
	if err != nil {
		return attendance.TemplateFile{}, err
	}

	var filter employee.RosterFilter
	if req.Department != "" {
		department := req.Department
		filter.Department = &department
	}
	roster, err := s.RosterRepository.ListRoster(ctx, filter)
	if err != nil {
		return attendance.TemplateFile{}, fmt.Errorf("failed to list roster: %w", err)
	}

	data, err := EncodeTemplate(format, BuildTemplate(roster, rng))
	if err != nil {
		return attendance.TemplateFile{}, err
	}

	return attendance.TemplateFile{
		FileName:    attendance.TemplateFileName(req.StartDate, req.EndDate, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// EncodeTemplate renders a template document. XLSX templates restrict date
// cells to the status codes.
func EncodeTemplate(format tabular.Format, doc tabular.Document) ([]byte, error) {
	if format != tabular.FormatXLSX {
		return tabular.Encode(format, doc)
	}
	data, err := tabular.EncodeXLSX(doc, templateSheet)
	if err != nil {
		return nil, err
	}
	firstDateCol := identityColumns + 1
	lastDateCol := len(doc.Header) - 1
	return tabular.AddDropList(data, firstDateCol, lastDateCol, len(doc.Rows), attendance.Codes())
}

// StartUpload implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) StartUpload(ctx context.Context, req attendance.UploadRequest) (attendance.UploadRunResponse, error) {
	if err := req.Validate(s.cfg.MaxRangeDays, s.cfg.MaxFileSize); err != nil {
		return attendance.UploadRunResponse{}, err
	}

	rng, err := daterange.Parse(req.StartDate, req.EndDate)
	if err != nil {
		return attendance.UploadRunResponse{}, err
	}
	format, err := tabular.DetectFormat(req.FileName, req.Data)
	if err != nil {
		return attendance.UploadRunResponse{}, err
	}

	// Structural problems fail the request before anything is submitted.
	doc, err := tabular.Parse(format, req.Data)
	if err != nil {
		return attendance.UploadRunResponse{}, err
	}

	days := rng.Days()
	dayStates := make(map[string]attendance.DayState, len(days))
	for _, day := range days {
		dayStates[daterange.Format(day)] = attendance.DayPending
	}

	run := attendance.UploadRun{
		ID:          uuid.NewString(),
		FileName:    req.FileName,
		Format:      string(format),
		Fingerprint: Fingerprint(req.Data),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Remarks:     req.Remarks,
		DryRun:      req.DryRun,
		Status:      attendance.UploadQueued,
		Progress:    attendance.Progress{TotalDays: len(days), Message: queuedMessage},
		DayStates:   dayStates,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}

	duplicateOf := s.findDuplicate(ctx, run)
	if !run.DryRun {
		run.ArchivePath = s.archive(ctx, run, format, req.Data)
	}
	s.persistCreate(run)

	store := s.store
	if run.DryRun {
		store = DryRunStore{}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.registry.Add(run, cancel)

	s.wg.Add(1)
	go s.execute(runCtx, cancel, run.ID, store, doc, rng, req.Remarks)

	slog.Info("Attendance upload started",
		"upload_id", run.ID,
		"file_name", run.FileName,
		"range", rng.String(),
		"rows", len(doc.Rows),
		"dry_run", run.DryRun,
	)

	resp := attendance.NewUploadRunResponse(run)
	resp.DuplicateOf = duplicateOf
	return resp, nil
}

func (s *BulkUploadServiceImpl) execute(ctx context.Context, cancel context.CancelFunc, id string, store attendance.Store, doc tabular.Document, rng daterange.Range, remarks string) {
	defer s.wg.Done()
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Attendance upload panicked", "upload_id", id, "panic", r)
			s.finish(id, nil, fmt.Errorf("%s: %v", messageRunFailed, r))
		}
	}()

	s.registry.Update(id, func(run *attendance.UploadRun) {
		run.Status = attendance.UploadRunning
	})

	reporter := Reporters{
		s.registry.Reporter(id),
		LogReporter{UploadID: id},
		HubReporter{Hub: s.hub, Topic: id},
	}

	outcome, err := NewPipeline(store).Run(ctx, doc, rng, remarks, reporter)
	if err != nil {
		s.finish(id, nil, err)
		return
	}
	s.finish(id, &outcome, nil)
}

// finish records the terminal state, persists it and ends every stream of the run.
func (s *BulkUploadServiceImpl) finish(id string, outcome *attendance.UploadOutcome, runErr error) {
	now := time.Now().UTC()

	s.registry.Update(id, func(run *attendance.UploadRun) {
		run.FinishedAt = &now
		switch {
		case runErr != nil:
			msg := runErr.Error()
			run.Status = attendance.UploadFailed
			run.Error = &msg
		case outcome.Cancelled:
			run.Status = attendance.UploadCancelled
		default:
			run.Status = attendance.UploadCompleted
		}
		if outcome != nil {
			run.Outcome = outcome
			run.Progress.Message = outcome.Message
		}
	})

	run, ok := s.registry.Get(id)
	if !ok {
		return
	}
	s.persistFinish(run)

	if outcome != nil {
		slog.Info("Attendance upload finished",
			"upload_id", id,
			"status", run.Status,
			"success_count", outcome.SuccessCount,
			"failure_count", outcome.FailureCount,
		)
	}

	s.hub.Publish(id, sse.Event{Event: EventCompleted, Data: attendance.NewUploadRunResponse(run)})
	s.hub.CloseTopic(id)
}

// GetUpload implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) GetUpload(ctx context.Context, id string) (attendance.UploadRunResponse, error) {
	run, err := s.lookup(ctx, id)
	if err != nil {
		return attendance.UploadRunResponse{}, err
	}
	return attendance.NewUploadRunResponse(run), nil
}

// ListUploads implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) ListUploads(ctx context.Context) ([]attendance.UploadRunResponse, error) {
	runs := s.registry.List()
	resp := make([]attendance.UploadRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, attendance.NewUploadRunResponse(run))
	}
	return resp, nil
}

// CancelUpload implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) CancelUpload(ctx context.Context, id string) (attendance.UploadRunResponse, error) {
	if !validator.IsValidUUID(id) {
		return attendance.UploadRunResponse{}, attendance.ErrUploadNotFound
	}
	run, err := s.registry.Cancel(id)
	if err != nil {
		return attendance.UploadRunResponse{}, err
	}
	slog.Info("Attendance upload cancellation requested", "upload_id", id)
	return attendance.NewUploadRunResponse(run), nil
}

// UploadReport implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) UploadReport(ctx context.Context, id string) ([]byte, error) {
	run, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !run.Status.Finished() || run.Outcome == nil {
		return nil, attendance.ErrUploadNotFinished
	}
	return RenderReport(run)
}

// UploadDocument implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) UploadDocument(ctx context.Context, id string) (attendance.TemplateFile, error) {
	run, err := s.lookup(ctx, id)
	if err != nil {
		return attendance.TemplateFile{}, err
	}
	if run.ArchivePath == nil || s.files == nil {
		return attendance.TemplateFile{}, attendance.ErrDocumentNotArchived
	}

	rc, err := s.files.OpenFile(ctx, *run.ArchivePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return attendance.TemplateFile{}, attendance.ErrDocumentNotArchived
		}
		return attendance.TemplateFile{}, fmt.Errorf("failed to open archived document: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return attendance.TemplateFile{}, fmt.Errorf("failed to read archived document: %w", err)
	}

	format, err := tabular.ParseFormat(run.Format)
	if err != nil {
		return attendance.TemplateFile{}, err
	}
	return attendance.TemplateFile{
		FileName:    run.FileName,
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// Subscribe implements attendance.BulkUploadService.
func (s *BulkUploadServiceImpl) Subscribe(ctx context.Context, id string) (<-chan attendance.UploadEvent, func(), error) {
	if !validator.IsValidUUID(id) {
		return nil, nil, attendance.ErrUploadNotFound
	}

	// Subscribe before reading the run so a finish in between still closes the channel.
	ch, cleanup := s.hub.Subscribe(id)

	run, ok := s.registry.Get(id)
	if !ok {
		cleanup()
		return nil, nil, attendance.ErrUploadNotFound
	}

	out := make(chan attendance.UploadEvent, 10)

	if run.Status.Finished() {
		cleanup()
		out <- attendance.UploadEvent{Event: EventCompleted, Data: attendance.NewUploadRunResponse(run)}
		close(out)
		return out, func() {}, nil
	}

	go func() {
		defer close(out)
		completed := false
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					// The completed event may have been dropped on a full channel.
					if !completed {
						if run, found := s.registry.Get(id); found && run.Status.Finished() {
							select {
							case out <- attendance.UploadEvent{Event: EventCompleted, Data: attendance.NewUploadRunResponse(run)}:
							case <-ctx.Done():
							}
						}
					}
					return
				}
				completed = event.Event == EventCompleted
				select {
				case out <- attendance.UploadEvent{Event: event.Event, Data: event.Data}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup, nil
}

// PurgeFinished drops finished runs older than retention from memory.
func (s *BulkUploadServiceImpl) PurgeFinished(retention time.Duration) int {
	return s.registry.PurgeFinished(time.Now().UTC().Add(-retention))
}

// Shutdown cancels every running upload and waits for them to settle.
func (s *BulkUploadServiceImpl) Shutdown(ctx context.Context) error {
	s.registry.CancelAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for uploads to stop: %w", ctx.Err())
	}
}

// Wait blocks until every started upload has finished.
func (s *BulkUploadServiceImpl) Wait() {
	s.wg.Wait()
}

// lookup prefers the live registry and falls back to persisted history.
// Upload ids are UUIDs, so anything else is unknown without a query.
func (s *BulkUploadServiceImpl) lookup(ctx context.Context, id string) (attendance.UploadRun, error) {
	if !validator.IsValidUUID(id) {
		return attendance.UploadRun{}, attendance.ErrUploadNotFound
	}
	if run, ok := s.registry.Get(id); ok {
		return run, nil
	}
	if s.runRepo == nil {
		return attendance.UploadRun{}, attendance.ErrUploadNotFound
	}
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrUploadNotFound) {
			return attendance.UploadRun{}, err
		}
		return attendance.UploadRun{}, fmt.Errorf("failed to get upload run: %w", err)
	}
	return run, nil
}

func (s *BulkUploadServiceImpl) findDuplicate(ctx context.Context, run attendance.UploadRun) *string {
	if s.runRepo == nil {
		return nil
	}
	prev, err := s.runRepo.FindCompletedByFingerprint(ctx, run.Fingerprint, run.StartDate, run.EndDate)
	if err != nil {
		slog.Warn("Failed to look up previous uploads", "fingerprint", run.Fingerprint, "error", err)
		return nil
	}
	if prev == nil {
		return nil
	}
	slog.Info("Document was already uploaded for this range", "fingerprint", run.Fingerprint, "previous_upload_id", prev.ID)
	return &prev.ID
}

func (s *BulkUploadServiceImpl) archive(ctx context.Context, run attendance.UploadRun, format tabular.Format, data []byte) *string {
	if s.files == nil {
		return nil
	}
	stored, err := s.files.ArchiveAttendanceDocument(ctx, run.Fingerprint, format, data)
	if err != nil {
		slog.Warn("Failed to archive attendance document", "upload_id", run.ID, "error", err)
		return nil
	}
	return &stored
}

func (s *BulkUploadServiceImpl) persistCreate(run attendance.UploadRun) {
	if s.runRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.runRepo.Create(ctx, run); err != nil {
		slog.Warn("Failed to record upload run", "upload_id", run.ID, "error", err)
	}
}

func (s *BulkUploadServiceImpl) persistFinish(run attendance.UploadRun) {
	if s.runRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.runRepo.Finish(ctx, run); err != nil {
		slog.Warn("Failed to record upload result", "upload_id", run.ID, "error", err)
	}
}

// Fingerprint identifies a document by content.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
