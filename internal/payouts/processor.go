package payouts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/internal/commissions"
	"github.com/swiftdrop/settlement-backend/pkg/config"
	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
	"github.com/swiftdrop/settlement-backend/pkg/logger"
	"github.com/swiftdrop/settlement-backend/pkg/metrics"
	"github.com/swiftdrop/settlement-backend/pkg/transfer"
)

// staleProcessingAge is how long a payout may sit in processing before the
// sweep re-drives it. The gateway keys on payout id, so a retry after a crash
// or a transport error cannot double-transfer.
const staleProcessingAge = 30 * time.Minute

// currency is fixed platform-wide; payouts settle in USD cents.
const currency = "usd"

// Summary reports one sweep run.
type Summary struct {
	Due       int
	Retried   int
	Completed int
	Failed    int
	Skipped   int
}

// Processor drives due payouts through the transfer gateway.
type Processor struct {
	repo        Repository
	commissions commissions.Repository
	gateway     transfer.Gateway
	tx          txRunner
	cfg         config.SweepConfig
	metrics     *metrics.SweepMetrics
	log         *logger.Logger
	now         func() time.Time
}

// NewProcessor builds a payout processor with the required dependencies.
func NewProcessor(
	repo Repository,
	commissionRepo commissions.Repository,
	gateway transfer.Gateway,
	tx txRunner,
	cfg config.SweepConfig,
	sweepMetrics *metrics.SweepMetrics,
	log *logger.Logger,
) (*Processor, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if commissionRepo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("transfer gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Processor{
		repo:        repo,
		commissions: commissionRepo,
		gateway:     gateway,
		tx:          tx,
		cfg:         cfg,
		metrics:     sweepMetrics,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// ProcessDue sweeps pending payouts whose scheduled time has passed, plus
// processing payouts stuck long enough to retry. Individual payout errors are
// aggregated; one bad payout never stops the batch.
func (p *Processor) ProcessDue(ctx context.Context) (Summary, error) {
	started := p.now()
	summary := Summary{}
	var errs error

	due, err := p.repo.FindDue(ctx, p.now(), p.cfg.BatchSize)
	if err != nil {
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find due payouts")
	}
	summary.Due = len(due)

	for i := range due {
		if err := p.drive(ctx, &due[i], &summary, false); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payout %s: %w", due[i].ID, err))
		}
	}

	stale, err := p.repo.FindStaleProcessing(ctx, p.now().Add(-staleProcessingAge), p.cfg.BatchSize)
	if err != nil {
		return summary, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale payouts"))
	}
	summary.Retried = len(stale)

	for i := range stale {
		if err := p.drive(ctx, &stale[i], &summary, true); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payout %s retry: %w", stale[i].ID, err))
		}
	}

	p.metrics.ObserveDuration("payout_sweep", p.now().Sub(started))
	lctx := p.log.WithFields(ctx, map[string]any{
		"due": summary.Due, "retried": summary.Retried,
		"completed": summary.Completed, "failed": summary.Failed, "skipped": summary.Skipped,
	})
	p.log.Info(lctx, "payout sweep finished")
	return summary, errs
}

func (p *Processor) drive(ctx context.Context, payout *models.Payout, summary *Summary, retry bool) error {
	lctx := p.log.WithPayoutID(ctx, payout.ID.String())

	if !retry {
		claimed, err := p.repo.MarkProcessing(ctx, payout.ID, p.now())
		if err != nil {
			return fmt.Errorf("mark processing: %w", err)
		}
		if !claimed {
			// Another sweep got here first.
			summary.Skipped++
			p.metrics.IncSkipped()
			return nil
		}
	}

	outcome, err := p.gateway.Initiate(ctx, transfer.Request{
		PayoutID:      payout.ID,
		PayeeID:       payout.PayeeID,
		DestinationID: payout.DestinationID,
		AmountCents:   payout.NetCents,
		Currency:      currency,
	})
	if err != nil {
		// Transport failure: leave the payout in processing so the stale
		// sweep retries it against the idempotent gateway.
		p.log.Warn(lctx, fmt.Sprintf("transfer gateway unreachable: %v", err))
		return pkgerrors.Wrap(pkgerrors.CodeTransferFailed, err, "initiate transfer")
	}

	if outcome.Accepted {
		return p.settle(lctx, payout, outcome.Reference, summary)
	}
	return p.fail(lctx, payout, outcome.FailureReason, summary)
}

// settle flips the payout to completed and marks its commissions paid in one
// transaction, so money state never half-commits.
func (p *Processor) settle(ctx context.Context, payout *models.Payout, reference string, summary *Summary) error {
	completedAt := p.now()
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := p.repo.WithTx(tx).MarkCompleted(ctx, payout.ID, reference, completedAt)
		if err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		if !changed {
			return fmt.Errorf("payout no longer processing, refusing to settle")
		}
		if err := p.commissions.WithTx(tx).MarkPaidForPayout(ctx, payout.ID, completedAt); err != nil {
			return fmt.Errorf("mark commissions paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	summary.Completed++
	p.metrics.IncCompleted()
	p.log.Info(ctx, fmt.Sprintf("payout completed, reference %s", reference))
	return nil
}

// fail records the gateway's rejection and releases the claimed commissions so
// they can be withdrawn again.
func (p *Processor) fail(ctx context.Context, payout *models.Payout, reason string, summary *Summary) error {
	if reason == "" {
		reason = "transfer declined"
	}
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := p.repo.WithTx(tx).MarkFailed(ctx, payout.ID, reason)
		if err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		if !changed {
			return fmt.Errorf("payout no longer processing, refusing to fail")
		}
		if err := p.commissions.WithTx(tx).ReleaseForPayout(ctx, payout.ID); err != nil {
			return fmt.Errorf("release commissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	summary.Failed++
	p.metrics.IncFailed()
	p.log.Warn(ctx, fmt.Sprintf("payout failed: %s", reason))
	return nil
}
