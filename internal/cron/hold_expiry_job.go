package cron

import (
	"context"
	"fmt"

	"github.com/venuehq/venuehq-backend/pkg/logger"
)

type holdExpirer interface {
	ExpireStaleHolds(ctx context.Context) (int64, error)
}

// HoldExpiryJobParams configure the stale hold sweep.
type HoldExpiryJobParams struct {
	Logger   *logger.Logger
	Bookings holdExpirer
}

// NewHoldExpiryJob builds the job that releases booking holds whose TTL has
// passed. The hold path also treats lapsed holds as free, so this sweep is
// cleanup, not the correctness boundary.
func NewHoldExpiryJob(params HoldExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking service required")
	}
	return &holdExpiryJob{logg: params.Logger, bookings: params.Bookings}, nil
}

type holdExpiryJob struct {
	logg     *logger.Logger
	bookings holdExpirer
}

func (j *holdExpiryJob) Name() string { return "booking-hold-expiry" }

func (j *holdExpiryJob) Run(ctx context.Context) error {
	released, err := j.bookings.ExpireStaleHolds(ctx)
	if err != nil {
		return fmt.Errorf("expire stale holds: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "released", released), "hold expiry sweep complete")
	return nil
}
