package cron

import (
	"context"
	"fmt"

	"github.com/swiftdrop/settlement-backend/internal/payouts"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

// payoutProcessor is the slice of the payout engine the sweep job drives.
type payoutProcessor interface {
	ProcessDue(ctx context.Context) (payouts.Summary, error)
}

// PayoutSweepJob pushes due payouts through the transfer gateway each cycle.
type PayoutSweepJob struct {
	processor payoutProcessor
	logg      *logger.Logger
}

// NewPayoutSweepJob builds the sweep job.
func NewPayoutSweepJob(processor payoutProcessor, logg *logger.Logger) (*PayoutSweepJob, error) {
	if processor == nil {
		return nil, fmt.Errorf("payout processor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PayoutSweepJob{processor: processor, logg: logg}, nil
}

// Name implements Job.
func (j *PayoutSweepJob) Name() string {
	return "payout_sweep"
}

// Run implements Job. Per-payout failures are already aggregated by the
// processor; only retryable infrastructure errors fail the cycle so the
// worker's failure counter stays meaningful.
func (j *PayoutSweepJob) Run(ctx context.Context) error {
	summary, err := j.processor.ProcessDue(ctx)
	if err != nil {
		if pkgerrors.IsRetryable(err) {
			return err
		}
		j.logg.Warn(ctx, fmt.Sprintf("sweep finished with payout errors: %v", err))
	}
	if summary.Due == 0 && summary.Retried == 0 {
		j.logg.Info(ctx, "no payouts due")
	}
	return nil
}
