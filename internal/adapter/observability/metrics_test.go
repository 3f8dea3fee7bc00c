package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCommand_SuccessAndFailure(t *testing.T) {
	RecordCommand("create_order_test", 10*time.Millisecond, nil, "")
	RecordCommand("create_order_test", 5*time.Millisecond, errors.New("boom"), "validation")

	if got := testutil.ToFloat64(CommandsTotal.WithLabelValues("create_order_test", "success")); got != 1 {
		t.Fatalf("expected 1 success sample, got %v", got)
	}
	if got := testutil.ToFloat64(CommandsTotal.WithLabelValues("create_order_test", "failure")); got != 1 {
		t.Fatalf("expected 1 failure sample, got %v", got)
	}
	if got := testutil.ToFloat64(CommandFailuresTotal.WithLabelValues("create_order_test", "validation")); got != 1 {
		t.Fatalf("expected 1 validation-reason failure, got %v", got)
	}
}

func TestOutboxMetricsHelpers(t *testing.T) {
	RecordOutboxDelivered("Order.Created.test")
	RecordOutboxRetry("Order.Created.test")
	RecordOutboxDeadLettered("Order.Created.test")
	SetOutboxPending(3)

	if got := testutil.ToFloat64(OutboxDeliveredTotal.WithLabelValues("Order.Created.test")); got != 1 {
		t.Fatalf("expected 1 delivered sample, got %v", got)
	}
	if got := testutil.ToFloat64(OutboxPendingGauge); got != 3 {
		t.Fatalf("expected pending gauge 3, got %v", got)
	}
}
