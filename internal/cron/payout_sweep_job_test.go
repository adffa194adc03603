package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/swiftdrop/settlement-backend/internal/payouts"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
)

type stubProcessor struct {
	summary payouts.Summary
	err     error
	runs    int
}

func (s *stubProcessor) ProcessDue(ctx context.Context) (payouts.Summary, error) {
	s.runs++
	return s.summary, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestPayoutSweepJobRuns(t *testing.T) {
	processor := &stubProcessor{summary: payouts.Summary{Due: 2, Completed: 2}}
	job, err := NewPayoutSweepJob(processor, testLogger())
	if err != nil {
		t.Fatalf("job constructor failed: %v", err)
	}
	if job.Name() != "payout_sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if processor.runs != 1 {
		t.Fatalf("processor runs: want 1, got %d", processor.runs)
	}
}

func TestPayoutSweepJobSwallowsPerPayoutErrors(t *testing.T) {
	processor := &stubProcessor{err: errors.New("payout abc: gateway declined")}
	job, _ := NewPayoutSweepJob(processor, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("per-payout errors must not fail the cycle: %v", err)
	}
}

func TestPayoutSweepJobSurfacesRetryableErrors(t *testing.T) {
	processor := &stubProcessor{
		err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable"),
	}
	job, _ := NewPayoutSweepJob(processor, testLogger())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("retryable infrastructure errors must fail the cycle")
	}
}
