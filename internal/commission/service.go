package commission

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/enums"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
)

// Service records the platform's cut at settlement time. Records are
// append-only; a correction is a new adjustment row, never an update.
type Service interface {
	Settle(ctx context.Context, tx *gorm.DB, input SettleInput) (*models.CommissionRecord, error)
	ListForBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]models.CommissionRecord, error)
}

// SettleInput carries the immutable data a settlement requires.
type SettleInput struct {
	TenantID    uuid.UUID
	BookingID   uuid.UUID
	GrossCents  int64
	RatePercent decimal.Decimal
}

type service struct {
	repo Repository
}

// NewService wires a commission service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Settle(ctx context.Context, tx *gorm.DB, input SettleInput) (*models.CommissionRecord, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}

	breakdown, err := Compute(input.GrossCents, input.RatePercent)
	if err != nil {
		return nil, err
	}

	record := &models.CommissionRecord{
		TenantID:        input.TenantID,
		BookingID:       input.BookingID,
		Kind:            enums.CommissionRecordKindSettlement,
		GrossCents:      breakdown.GrossCents,
		CommissionCents: breakdown.CommissionCents,
		NetCents:        breakdown.NetCents,
		RatePercent:     breakdown.RatePercent,
	}

	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist commission record")
	}
	return record, nil
}

func (s *service) ListForBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]models.CommissionRecord, error) {
	if tenantID == uuid.Nil || bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and booking id are required")
	}
	return s.repo.ListByBookingID(ctx, tenantID, bookingID)
}
