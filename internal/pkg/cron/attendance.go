package cron

import (
	"context"
	"log/slog"
	"time"
)

// StoreHealthChecker records one reachability observation of the attendance store.
type StoreHealthChecker interface {
	Check(ctx context.Context) error
}

// UploadPurger drops finished upload runs older than a retention window.
type UploadPurger interface {
	PurgeFinished(retention time.Duration) int
}

type AttendanceJobs struct {
	health         StoreHealthChecker
	uploads        UploadPurger
	healthInterval time.Duration
	retention      time.Duration
}

func NewAttendanceJobs(health StoreHealthChecker, uploads UploadPurger, healthInterval, retention time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		health:         health,
		uploads:        uploads,
		healthInterval: healthInterval,
		retention:      retention,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	if j.health != nil {
		scheduler.AddJob("attendance_store_health", j.healthInterval, j.CheckStoreHealth)
	}
	if j.uploads != nil && j.retention > 0 {
		// Purging more often than the retention window buys nothing.
		interval := j.retention / 4
		if interval < time.Minute {
			interval = time.Minute
		}
		scheduler.AddJob("purge_finished_uploads", interval, j.PurgeFinishedUploads)
	}
}

// CheckStoreHealth pings the store. Failures are recorded by the tracker and
// are not job errors.
func (j *AttendanceJobs) CheckStoreHealth(ctx context.Context) error {
	_ = j.health.Check(ctx)
	return nil
}

func (j *AttendanceJobs) PurgeFinishedUploads(ctx context.Context) error {
	if purged := j.uploads.PurgeFinished(j.retention); purged > 0 {
		slog.Info("Cron: Purged finished uploads", "count", purged, "retention", j.retention)
	}
	return nil
}
