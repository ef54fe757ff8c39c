package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
)

// Registry holds live upload runs in memory. The run goroutine is the only
// writer of a run; readers always receive copies.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*registryEntry
}

type registryEntry struct {
	run    attendance.UploadRun
	cancel context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*registryEntry)}
}

// Add registers a run with the cancel function of its context.
func (r *Registry) Add(run attendance.UploadRun, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = &registryEntry{run: copyRun(run), cancel: cancel}
}

func (r *Registry) Get(id string) (attendance.UploadRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.runs[id]
	if !ok {
		return attendance.UploadRun{}, false
	}
	return copyRun(e.run), true
}

// List returns every run, newest first.
func (r *Registry) List() []attendance.UploadRun {
	r.mu.RLock()
	runs := make([]attendance.UploadRun, 0, len(r.runs))
	for _, e := range r.runs {
		runs = append(runs, copyRun(e.run))
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// Update applies fn to the stored run under the write lock.
func (r *Registry) Update(id string, fn func(run *attendance.UploadRun)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.runs[id]
	if !ok {
		return false
	}
	fn(&e.run)
	return true
}

// Cancel requests cancellation of an unfinished run.
func (r *Registry) Cancel(id string) (attendance.UploadRun, error) {
	r.mu.RLock()
	e, ok := r.runs[id]
	if !ok {
		r.mu.RUnlock()
		return attendance.UploadRun{}, attendance.ErrUploadNotFound
	}
	if e.run.Status.Finished() {
		r.mu.RUnlock()
		return attendance.UploadRun{}, attendance.ErrUploadAlreadyStopped
	}
	cancel := e.cancel
	run := copyRun(e.run)
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	return run, nil
}

// CancelAll cancels every unfinished run.
func (r *Registry) CancelAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.runs {
		if !e.run.Status.Finished() && e.cancel != nil {
			e.cancel()
		}
	}
}

// PurgeFinished drops runs that finished before the cutoff and returns how many were removed.
func (r *Registry) PurgeFinished(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	purged := 0
	for id, e := range r.runs {
		if !e.run.Status.Finished() || e.run.FinishedAt == nil {
			continue
		}
		if e.run.FinishedAt.Before(cutoff) {
			delete(r.runs, id)
			purged++
		}
	}
	return purged
}

// Reporter returns a Reporter that mirrors pipeline events into the stored run.
func (r *Registry) Reporter(id string) Reporter {
	return registryReporter{registry: r, id: id}
}

type registryReporter struct {
	registry *Registry
	id       string
}

func (rr registryReporter) ReportProgress(p attendance.Progress) {
	rr.registry.Update(rr.id, func(run *attendance.UploadRun) {
		run.Progress = p
	})
}

func (rr registryReporter) ReportTransition(date string, state attendance.DayState) {
	rr.registry.Update(rr.id, func(run *attendance.UploadRun) {
		setDayState(run, date, state)
	})
}

func (rr registryReporter) ReportDay(result attendance.DayResult) {
	rr.registry.Update(rr.id, func(run *attendance.UploadRun) {
		setDayState(run, result.Date, result.State)
	})
}

func setDayState(run *attendance.UploadRun, date string, state attendance.DayState) {
	if run.DayStates == nil {
		run.DayStates = make(map[string]attendance.DayState)
	}
	run.DayStates[date] = state
}

func copyRun(run attendance.UploadRun) attendance.UploadRun {
	out := run
	if run.DayStates != nil {
		out.DayStates = make(map[string]attendance.DayState, len(run.DayStates))
		for k, v := range run.DayStates {
			out.DayStates[k] = v
		}
	}
	if run.Outcome != nil {
		outcome := *run.Outcome
		outcome.DailyResults = append([]attendance.DayResult(nil), run.Outcome.DailyResults...)
		out.Outcome = &outcome
	}
	return out
}
