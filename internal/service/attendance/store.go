package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
)

// RepositoryStore serves the store write API from the local database.
type RepositoryStore struct {
	repo attendance.AttendanceRepository
}

func NewRepositoryStore(repo attendance.AttendanceRepository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

// BulkWrite implements attendance.Store.
func (s *RepositoryStore) BulkWrite(ctx context.Context, req attendance.BulkWriteRequest) (attendance.BulkWriteResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.BulkWriteResult{}, err
	}

	date, err := time.Parse(daterange.DateLayout, req.AttendanceDate)
	if err != nil {
		return attendance.BulkWriteResult{}, fmt.Errorf("failed to parse attendance date: %w", err)
	}

	records, err := s.repo.BulkUpsert(ctx, date, req.AttendanceMap, req.Remarks)
	if err != nil {
		return attendance.BulkWriteResult{}, fmt.Errorf("failed to upsert attendance for %s: %w", req.AttendanceDate, err)
	}

	return attendance.BulkWriteResult{Count: len(records), Records: records}, nil
}

// ListRecords implements attendance.RecordReader.
func (s *RepositoryStore) ListRecords(ctx context.Context, date string) ([]attendance.AttendanceRecord, error) {
	day, ok := validator.IsValidDate(date)
	if !ok {
		return nil, validator.ValidationErrors{{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		}}
	}

	records, err := s.repo.ListByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for %s: %w", date, err)
	}
	if records == nil {
		records = []attendance.AttendanceRecord{}
	}
	return records, nil
}

// Ping implements attendance.HealthChecker.
func (s *RepositoryStore) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// DryRunStore accepts every valid batch and writes nothing.
type DryRunStore struct{}

func (DryRunStore) BulkWrite(_ context.Context, req attendance.BulkWriteRequest) (attendance.BulkWriteResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.BulkWriteResult{}, err
	}
	return attendance.BulkWriteResult{Count: len(req.AttendanceMap)}, nil
}
