package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/venuehq/venuehq-backend/pkg/logger"
)

type eventPruner interface {
	PruneTerminalEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// PaymentEventRetentionJobParams configure the event log pruning job.
type PaymentEventRetentionJobParams struct {
	Logger    *logger.Logger
	Payments  eventPruner
	Retention time.Duration
}

// NewPaymentEventRetentionJob builds the job that prunes terminal payment
// event rows past the retention window.
func NewPaymentEventRetentionJob(params PaymentEventRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("retention window must be positive")
	}
	return &paymentEventRetentionJob{
		logg:      params.Logger,
		payments:  params.Payments,
		retention: params.Retention,
	}, nil
}

type paymentEventRetentionJob struct {
	logg      *logger.Logger
	payments  eventPruner
	retention time.Duration
}

func (j *paymentEventRetentionJob) Name() string { return "payment-event-retention" }

func (j *paymentEventRetentionJob) Run(ctx context.Context) error {
	pruned, err := j.payments.PruneTerminalEvents(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("prune payment events: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "pruned", pruned), "payment event retention sweep complete")
	return nil
}
