package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type uploadRunRepository struct {
	db *database.DB
}

func NewUploadRunRepository(db *database.DB) attendance.UploadRunRepository {
	return &uploadRunRepository{db: db}
}

const uploadRunColumns = `
	id, file_name, format, fingerprint, archive_path, start_date, end_date, remarks,
	dry_run, status, outcome, error, created_by, created_at, finished_at
`

// Create implements attendance.UploadRunRepository.
func (r *uploadRunRepository) Create(ctx context.Context, run attendance.UploadRun) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_upload_runs (
			id, file_name, format, fingerprint, archive_path, start_date, end_date,
			remarks, dry_run, status, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		run.ID,
		run.FileName,
		run.Format,
		run.Fingerprint,
		run.ArchivePath,
		run.StartDate,
		run.EndDate,
		run.Remarks,
		run.DryRun,
		string(run.Status),
		run.CreatedBy,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create upload run: %w", err)
	}
	return nil
}

// Finish implements attendance.UploadRunRepository.
func (r *uploadRunRepository) Finish(ctx context.Context, run attendance.UploadRun) error {
	q := GetQuerier(ctx, r.db)

	var (
		outcome      []byte
		successCount int
		failureCount int
	)
	if run.Outcome != nil {
		var err error
		outcome, err = json.Marshal(run.Outcome)
		if err != nil {
			return fmt.Errorf("failed to encode upload outcome: %w", err)
		}
		successCount = run.Outcome.SuccessCount
		failureCount = run.Outcome.FailureCount
	}

	query := `
		UPDATE attendance_upload_runs
		SET status = $2, success_count = $3, failure_count = $4, outcome = $5,
			error = $6, finished_at = $7
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, run.ID, string(run.Status), successCount, failureCount, outcome, run.Error, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to finish upload run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrUploadNotFound
	}
	return nil
}

// GetByID implements attendance.UploadRunRepository.
func (r *uploadRunRepository) GetByID(ctx context.Context, id string) (attendance.UploadRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + uploadRunColumns + ` FROM attendance_upload_runs WHERE id::text = $1`

	run, err := scanUploadRun(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.UploadRun{}, attendance.ErrUploadNotFound
		}
		return attendance.UploadRun{}, fmt.Errorf("failed to get upload run: %w", err)
	}
	return run, nil
}

// FindCompletedByFingerprint implements attendance.UploadRunRepository.
func (r *uploadRunRepository) FindCompletedByFingerprint(ctx context.Context, fingerprint, startDate, endDate string) (*attendance.UploadRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + uploadRunColumns + `
		FROM attendance_upload_runs
		WHERE fingerprint = $1
		  AND start_date = $2
		  AND end_date = $3
		  AND status = $4
		  AND dry_run = false
		ORDER BY created_at DESC
		LIMIT 1
	`

	run, err := scanUploadRun(q.QueryRow(ctx, query, fingerprint, startDate, endDate, string(attendance.UploadCompleted)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find upload run by fingerprint: %w", err)
	}
	return &run, nil
}

func scanUploadRun(row pgx.Row) (attendance.UploadRun, error) {
	var (
		run        attendance.UploadRun
		startDate  time.Time
		endDate    time.Time
		status     string
		outcomeRaw []byte
	)

	err := row.Scan(
		&run.ID, &run.FileName, &run.Format, &run.Fingerprint, &run.ArchivePath,
		&startDate, &endDate, &run.Remarks, &run.DryRun, &status,
		&outcomeRaw, &run.Error, &run.CreatedBy, &run.CreatedAt, &run.FinishedAt,
	)
	if err != nil {
		return attendance.UploadRun{}, err
	}

	run.StartDate = startDate.Format("2006-01-02")
	run.EndDate = endDate.Format("2006-01-02")
	run.Status = attendance.UploadStatus(status)
	run.DayStates = map[string]attendance.DayState{}

	if len(outcomeRaw) > 0 {
		var outcome attendance.UploadOutcome
		if err := json.Unmarshal(outcomeRaw, &outcome); err != nil {
			return attendance.UploadRun{}, fmt.Errorf("failed to decode upload outcome: %w", err)
		}
		run.Outcome = &outcome
		for _, day := range outcome.DailyResults {
			run.DayStates[day.Date] = day.State
		}
		run.Progress = attendance.Progress{
			ProcessedDays: len(outcome.DailyResults),
			TotalDays:     len(outcome.DailyResults),
			Message:       outcome.Message,
		}
	}

	return run, nil
}
