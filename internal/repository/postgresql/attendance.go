package postgresql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgForeignKeyViolation = "23503"

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// BulkUpsert implements attendance.AttendanceRepository.
func (a *attendanceRepository) BulkUpsert(ctx context.Context, date time.Time, statuses map[int]attendance.Status, remarks string) ([]attendance.AttendanceRecord, error) {
	query := `
		INSERT INTO attendance_records (employee_id, date, status, remarks)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_id, date) DO UPDATE
		SET status = EXCLUDED.status,
			remarks = EXCLUDED.remarks,
			updated_at = now()
		RETURNING id, employee_id, date, status, reason, remarks
	`

	// Fixed order keeps concurrent uploads from deadlocking on row locks.
	employeeIDs := make([]int, 0, len(statuses))
	for id := range statuses {
		employeeIDs = append(employeeIDs, id)
	}
	sort.Ints(employeeIDs)

	var remarksArg *string
	if remarks != "" {
		remarksArg = &remarks
	}

	records := make([]attendance.AttendanceRecord, 0, len(employeeIDs))
	err := WithTransaction(ctx, a.db, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, id := range employeeIDs {
			batch.Queue(query, id, date, statuses[id].String(), remarksArg)
		}

		results := tx.SendBatch(ctx, batch)
		for range employeeIDs {
			rec, err := scanAttendanceRecord(results.QueryRow())
			if err != nil {
				results.Close()
				return err
			}
			records = append(records, rec)
		}
		return results.Close()
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, &attendance.StoreError{
				StatusCode: http.StatusUnprocessableEntity,
				Message:    "attendance map references an unknown employee",
			}
		}
		return nil, fmt.Errorf("failed to upsert attendance records: %w", err)
	}

	return records, nil
}

// ListByDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.AttendanceRecord, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, employee_id, date, status, reason, remarks
		FROM attendance_records
		WHERE date = $1
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendanceRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, nil
}

// Ping implements attendance.AttendanceRepository.
func (a *attendanceRepository) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}

func scanAttendanceRecord(row pgx.Row) (attendance.AttendanceRecord, error) {
	var (
		rec    attendance.AttendanceRecord
		id     int
		date   time.Time
		status string
	)
	if err := row.Scan(&id, &rec.EmployeeID, &date, &status, &rec.Reason, &rec.Remarks); err != nil {
		return attendance.AttendanceRecord{}, err
	}

	parsed, err := attendance.ParseStatus(status)
	if err != nil {
		return attendance.AttendanceRecord{}, err
	}

	rec.ID = &id
	rec.Date = date.Format("2006-01-02")
	rec.Status = parsed
	return rec, nil
}
