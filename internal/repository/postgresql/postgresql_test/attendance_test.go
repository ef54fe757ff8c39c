package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june3 = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestAttendanceRepository_BulkUpsert(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(setup.DB)

	ana := setup.InsertEmployee(t, "Ana", "Ops", "active")
	budi := setup.InsertEmployee(t, "Budi", "Ops", "active")

	records, err := repo.BulkUpsert(ctx, june3, map[int]attendance.Status{
		ana:  attendance.StatusPresent,
		budi: attendance.StatusAbsent,
	}, "week 23")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ana, records[0].EmployeeID)
	assert.NotNil(t, records[0].ID)
	assert.Equal(t, "2024-06-03", records[0].Date)

	// Second upload overwrites the same (employee, date).
	_, err = repo.BulkUpsert(ctx, june3, map[int]attendance.Status{ana: attendance.StatusHalfDay}, "")
	require.NoError(t, err)

	stored, err := repo.ListByDate(ctx, june3)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, attendance.StatusHalfDay, stored[0].Status)
	assert.Nil(t, stored[0].Remarks)
	assert.Equal(t, attendance.StatusAbsent, stored[1].Status)
	require.NotNil(t, stored[1].Remarks)
	assert.Equal(t, "week 23", *stored[1].Remarks)
}

func TestAttendanceRepository_UnknownEmployeeRollsBack(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(setup.DB)

	ana := setup.InsertEmployee(t, "Ana", "Ops", "active")

	_, err := repo.BulkUpsert(ctx, june3, map[int]attendance.Status{
		ana:  attendance.StatusPresent,
		9999: attendance.StatusPresent,
	}, "")

	var storeErr *attendance.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, 422, storeErr.StatusCode)

	stored, err := repo.ListByDate(ctx, june3)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.NoError(t, repo.Ping(ctx))
}

func TestEmployeeRepository_ListRoster(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewEmployeeRepository(setup.DB)

	setup.InsertEmployee(t, "Ana", "Ops", "active")
	setup.InsertEmployee(t, "Budi", "Finance", "active")
	setup.InsertEmployee(t, "Citra", "Ops", "resigned")

	roster, err := repo.ListRoster(ctx, employee.RosterFilter{})
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Ana", roster[0].Name)

	ops := "Ops"
	roster, err = repo.ListRoster(ctx, employee.RosterFilter{Department: &ops})
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Ops", roster[0].Department)
}

func TestUploadRunRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewUploadRunRepository(setup.DB)

	run := attendance.UploadRun{
		ID:          uuid.NewString(),
		FileName:    "week23.csv",
		Format:      "csv",
		Fingerprint: "abc",
		StartDate:   "2024-06-03",
		EndDate:     "2024-06-05",
		Status:      attendance.UploadQueued,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, run))

	dup, err := repo.FindCompletedByFingerprint(ctx, "abc", "2024-06-03", "2024-06-05")
	require.NoError(t, err)
	assert.Nil(t, dup)

	finished := time.Now().UTC()
	run.Status = attendance.UploadCompleted
	run.FinishedAt = &finished
	run.Outcome = &attendance.UploadOutcome{
		Success:      true,
		SuccessCount: 2,
		FailureCount: 1,
		Message:      "Processed attendance for 2 out of 3 days",
		DailyResults: []attendance.DayResult{
			{Date: "2024-06-03", Success: true, Count: 1, State: attendance.DaySucceeded},
			{Date: "2024-06-04", Message: "No data column found for this date", State: attendance.DayFailed},
			{Date: "2024-06-05", Success: true, Count: 1, State: attendance.DaySucceeded},
		},
	}
	require.NoError(t, repo.Finish(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.UploadCompleted, got.Status)
	assert.Equal(t, "2024-06-03", got.StartDate)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, run.Outcome.DailyResults, got.Outcome.DailyResults)
	assert.Equal(t, attendance.DayFailed, got.DayStates["2024-06-04"])

	dup, err = repo.FindCompletedByFingerprint(ctx, "abc", "2024-06-03", "2024-06-05")
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, run.ID, dup.ID)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, attendance.ErrUploadNotFound)
	assert.ErrorIs(t, repo.Finish(ctx, attendance.UploadRun{ID: uuid.NewString()}), attendance.ErrUploadNotFound)
}
