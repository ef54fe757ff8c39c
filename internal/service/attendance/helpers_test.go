package attendance

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
)

// recordingStore captures every write and rejects the dates listed in reject.
type recordingStore struct {
	mu     sync.Mutex
	calls  []attendance.BulkWriteRequest
	reject map[string]error
	result func(req attendance.BulkWriteRequest) attendance.BulkWriteResult
}

func (s *recordingStore) BulkWrite(_ context.Context, req attendance.BulkWriteRequest) (attendance.BulkWriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if err, ok := s.reject[req.AttendanceDate]; ok {
		return attendance.BulkWriteResult{}, err
	}
	if s.result != nil {
		return s.result(req), nil
	}
	return attendance.BulkWriteResult{Count: len(req.AttendanceMap)}, nil
}

func (s *recordingStore) Calls() []attendance.BulkWriteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attendance.BulkWriteRequest(nil), s.calls...)
}

// gatedStore blocks every write until release is closed.
type gatedStore struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) BulkWrite(ctx context.Context, req attendance.BulkWriteRequest) (attendance.BulkWriteResult, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return attendance.BulkWriteResult{}, ctx.Err()
	}
	return attendance.BulkWriteResult{Count: len(req.AttendanceMap)}, nil
}

type staticRoster struct {
	entries []employee.RosterEntry
	filter  employee.RosterFilter
}

func (r *staticRoster) ListRoster(_ context.Context, filter employee.RosterFilter) ([]employee.RosterEntry, error) {
	r.filter = filter
	return r.entries, nil
}

// memoryRunRepo is an in-memory attendance.UploadRunRepository.
type memoryRunRepo struct {
	mu      sync.Mutex
	runs    map[string]attendance.UploadRun
	lookups int
}

func newMemoryRunRepo() *memoryRunRepo {
	return &memoryRunRepo{runs: make(map[string]attendance.UploadRun)}
}

func (r *memoryRunRepo) Create(_ context.Context, run attendance.UploadRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = copyRun(run)
	return nil
}

func (r *memoryRunRepo) Finish(_ context.Context, run attendance.UploadRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = copyRun(run)
	return nil
}

func (r *memoryRunRepo) GetByID(_ context.Context, id string) (attendance.UploadRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	run, ok := r.runs[id]
	if !ok {
		return attendance.UploadRun{}, attendance.ErrUploadNotFound
	}
	return copyRun(run), nil
}

func (r *memoryRunRepo) FindCompletedByFingerprint(_ context.Context, fingerprint, startDate, endDate string) (*attendance.UploadRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.Fingerprint == fingerprint && run.StartDate == startDate && run.EndDate == endDate &&
			run.Status == attendance.UploadCompleted && !run.DryRun {
			found := copyRun(run)
			return &found, nil
		}
	}
	return nil, nil
}

// captureReporter records every event in order.
type captureReporter struct {
	progress    []attendance.Progress
	transitions []string
	days        []attendance.DayResult
}

func (c *captureReporter) ReportProgress(p attendance.Progress) {
	c.progress = append(c.progress, p)
}

func (c *captureReporter) ReportTransition(date string, state attendance.DayState) {
	c.transitions = append(c.transitions, date+":"+string(state))
}

func (c *captureReporter) ReportDay(result attendance.DayResult) {
	c.days = append(c.days, result)
}

const weekHeader = "EmployeeId,Name,Department,Mon (06/03),Tue (06/04),Wed (06/05),Remarks\n"

func (r *memoryRunRepo) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}
