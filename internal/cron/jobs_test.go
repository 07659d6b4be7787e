package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeHoldExpirer struct {
	released int64
	err      error
	calls    int
}

func (f *fakeHoldExpirer) ExpireStaleHolds(context.Context) (int64, error) {
	f.calls++
	return f.released, f.err
}

type fakeEventPruner struct {
	pruned    int64
	err       error
	retention time.Duration
}

func (f *fakeEventPruner) PruneTerminalEvents(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return f.pruned, f.err
}

func TestHoldExpiryJob(t *testing.T) {
	expirer := &fakeHoldExpirer{released: 3}
	job, err := NewHoldExpiryJob(HoldExpiryJobParams{Logger: testLogger(), Bookings: expirer})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "booking-hold-expiry" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected one sweep, got %d", expirer.calls)
	}

	expirer.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep failure to surface")
	}
}

func TestPaymentEventRetentionJob(t *testing.T) {
	pruner := &fakeEventPruner{pruned: 7}
	job, err := NewPaymentEventRetentionJob(PaymentEventRetentionJobParams{
		Logger:    testLogger(),
		Payments:  pruner,
		Retention: 90 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pruner.retention != 90*24*time.Hour {
		t.Fatalf("retention not passed through, got %s", pruner.retention)
	}

	if _, err := NewPaymentEventRetentionJob(PaymentEventRetentionJobParams{
		Logger:   testLogger(),
		Payments: pruner,
	}); err == nil {
		t.Fatal("zero retention must be rejected")
	}
}
