// File: internal/jobs/auction_expiry.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"satonic/internal/config"
	"satonic/internal/listing"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AuctionExpiryJob closes listings whose end time has passed.
type AuctionExpiryJob struct {
	listingService listing.Service
	logger         *zap.Logger
	cfg            *config.Config
	cronScheduler  *cron.Cron
}

func NewAuctionExpiryJob(
	listingService listing.Service,
	logger *zap.Logger,
	cfg *config.Config,
) *AuctionExpiryJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)
	return &AuctionExpiryJob{
		listingService: listingService,
		logger:         logger.Named("AuctionExpiryJob"),
		cfg:            cfg,
		cronScheduler:  scheduler,
	}
}

// SetupAndStart schedules the job on AUCTION_EXPIRY_JOB_SCHEDULE.
func (j *AuctionExpiryJob) SetupAndStart() error {
	spec := j.cfg.AuctionExpiryJobSchedule
	if spec == "" {
		j.logger.Warn("Auction expiry job schedule not defined (AUCTION_EXPIRY_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(spec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule auction expiry job", zap.String("spec", spec), zap.Error(err))
		return err
	}

	j.logger.Info("Auction expiry job scheduled", zap.String("spec", spec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *AuctionExpiryJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("Auction expiry job run failed", zap.Error(err))
	}
}

// Run performs one expiry pass.
func (j *AuctionExpiryJob) Run(ctx context.Context) (int, error) {
	j.logger.Debug("Starting auction expiry job run")
	ended, err := j.listingService.ExpireListings(ctx)
	if err != nil {
		return 0, err
	}
	if ended > 0 {
		j.logger.Info("Auction expiry job run completed", zap.Int("auctions_ended", ended))
	}
	return ended, nil
}

// Stop waits up to 10s for a running pass to finish.
func (j *AuctionExpiryJob) Stop() {
	stopScheduler(j.cronScheduler, j.logger)
}

func stopScheduler(c *cron.Cron, logger *zap.Logger) {
	if c == nil {
		return
	}
	logger.Info("Stopping job scheduler...")
	select {
	case <-c.Stop().Done():
		logger.Info("Job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		logger.Warn("Job scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	zl *zap.Logger
}

func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info is routine scheduler chatter, logged at debug.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
