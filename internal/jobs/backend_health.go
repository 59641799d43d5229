// File: internal/jobs/backend_health.go
package jobs

import (
	"context"
	"strings"
	"sync"
	"time"

	"satonic/internal/backend"
	"satonic/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HealthChecker is the part of the backend client the health job needs.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*backend.HealthResponse, error)
}

var healthyStatus = map[string]bool{"": true, "ok": true, "up": true, "healthy": true}

// BackendStatus is the last observed availability of the backend API.
type BackendStatus struct {
	BackendAvailable bool      `json:"backend_available"`
	CheckedAt        time.Time `json:"checked_at"`
	Error            string    `json:"error,omitempty"`
}

// BackendHealthJob polls the backend health endpoint and remembers the result.
type BackendHealthJob struct {
	checker       HealthChecker
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
	now           func() time.Time

	mu     sync.RWMutex
	status BackendStatus
}

func NewBackendHealthJob(checker HealthChecker, logger *zap.Logger, cfg *config.Config) *BackendHealthJob {
	return &BackendHealthJob{
		checker: checker,
		logger:  logger.Named("BackendHealthJob"),
		cfg:     cfg,
		cronScheduler: cron.New(
			cron.WithLogger(NewCronLogger(logger.Named("cron"))),
			cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
		),
		now: time.Now,
	}
}

// SetupAndStart runs one check immediately, then follows BACKEND_HEALTH_JOB_SCHEDULE.
func (j *BackendHealthJob) SetupAndStart() error {
	spec := j.cfg.BackendHealthJobSchedule
	if spec == "" {
		j.logger.Warn("Backend health job schedule not defined (BACKEND_HEALTH_JOB_SCHEDULE). Job will not run.")
		return nil
	}
	if _, err := j.cronScheduler.AddFunc(spec, j.runJob); err != nil {
		j.logger.Error("Failed to schedule backend health job", zap.String("spec", spec), zap.Error(err))
		return err
	}
	go j.runJob()
	j.cronScheduler.Start()
	j.logger.Info("Backend health job scheduled", zap.String("spec", spec))
	return nil
}

func (j *BackendHealthJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	j.Check(ctx)
}

// Check probes the backend once and records the outcome.
func (j *BackendHealthJob) Check(ctx context.Context) BackendStatus {
	st := BackendStatus{CheckedAt: j.now().UTC()}
	res, err := j.checker.HealthCheck(ctx)
	switch {
	case err != nil:
		st.Error = err.Error()
	case res != nil && !healthyStatus[strings.ToLower(res.Status)]:
		st.Error = "backend reported status " + res.Status
	default:
		st.BackendAvailable = true
	}

	j.mu.Lock()
	prev := j.status
	j.status = st
	j.mu.Unlock()

	if prev.BackendAvailable != st.BackendAvailable || prev.CheckedAt.IsZero() {
		if st.BackendAvailable {
			j.logger.Info("Backend API reachable")
		} else {
			j.logger.Warn("Backend API unavailable", zap.String("error", st.Error))
		}
	}
	return st
}

// Status returns the most recent check. CheckedAt is zero before the first one.
func (j *BackendHealthJob) Status() BackendStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *BackendHealthJob) Stop() {
	stopScheduler(j.cronScheduler, j.logger)
}
