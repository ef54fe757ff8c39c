package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttendanceRepo struct {
	date     time.Time
	statuses map[int]attendance.Status
	remarks  string
	err      error

	listed  time.Time
	records []attendance.AttendanceRecord
}

func (f *fakeAttendanceRepo) BulkUpsert(_ context.Context, date time.Time, statuses map[int]attendance.Status, remarks string) ([]attendance.AttendanceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.date, f.statuses, f.remarks = date, statuses, remarks
	records := make([]attendance.AttendanceRecord, 0, len(statuses))
	for id, status := range statuses {
		records = append(records, attendance.AttendanceRecord{EmployeeID: id, Date: date.Format("2006-01-02"), Status: status})
	}
	return records, nil
}

func (f *fakeAttendanceRepo) ListByDate(_ context.Context, date time.Time) ([]attendance.AttendanceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listed = date
	return f.records, nil
}

func (f *fakeAttendanceRepo) Ping(context.Context) error { return f.err }

func TestRepositoryStore_BulkWrite(t *testing.T) {
	repo := &fakeAttendanceRepo{}
	store := NewRepositoryStore(repo)

	res, err := store.BulkWrite(context.Background(), attendance.BulkWriteRequest{
		AttendanceDate: "2024-06-03",
		AttendanceMap:  map[int]attendance.Status{7: attendance.StatusPresent, 8: attendance.StatusAbsent},
		Remarks:        "week 23",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), repo.date)
	assert.Equal(t, "week 23", repo.remarks)
}

func TestRepositoryStore_Validation(t *testing.T) {
	store := NewRepositoryStore(&fakeAttendanceRepo{})

	_, err := store.BulkWrite(context.Background(), attendance.BulkWriteRequest{AttendanceDate: "06/03/2024"})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := verrs.ToMap()
	assert.Contains(t, fields, "attendanceDate")
	assert.Contains(t, fields, "attendanceMap")
}

func TestRepositoryStore_RepositoryError(t *testing.T) {
	boom := errors.New("deadlock detected")
	store := NewRepositoryStore(&fakeAttendanceRepo{err: boom})

	_, err := store.BulkWrite(context.Background(), attendance.BulkWriteRequest{
		AttendanceDate: "2024-06-03",
		AttendanceMap:  map[int]attendance.Status{7: attendance.StatusPresent},
	})

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.Ping(context.Background()), boom)
}

func TestDryRunStore(t *testing.T) {
	res, err := DryRunStore{}.BulkWrite(context.Background(), attendance.BulkWriteRequest{
		AttendanceDate: "2024-06-03",
		AttendanceMap:  map[int]attendance.Status{7: attendance.StatusPresent},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestRepositoryStore_ListRecords(t *testing.T) {
	repo := &fakeAttendanceRepo{records: []attendance.AttendanceRecord{
		{EmployeeID: 7, Date: "2024-06-03", Status: attendance.StatusPresent},
	}}
	store := NewRepositoryStore(repo)

	records, err := store.ListRecords(context.Background(), "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, repo.records, records)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), repo.listed)

	repo.records = nil
	records, err = store.ListRecords(context.Background(), "2024-06-04")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	_, err = store.ListRecords(context.Background(), "06/03/2024")
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "date")

	boom := errors.New("connection reset")
	_, err = NewRepositoryStore(&fakeAttendanceRepo{err: boom}).ListRecords(context.Background(), "2024-06-03")
	assert.ErrorIs(t, err, boom)
}
