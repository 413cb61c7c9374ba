package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Gunvolt24/book_orders/pkg/metrics"
)

func TestMustRegister_IsIdempotent(t *testing.T) {
	// Должно выполняться без паники даже при повторном вызове.
	metrics.MustRegister()
	metrics.MustRegister()
}

func TestKafkaCounters_Inc(t *testing.T) {
	metrics.MustRegister()

	beforeConsumed := testutil.ToFloat64(metrics.KafkaMessagesConsumed.WithLabelValues("order-requests"))
	beforeFailed := testutil.ToFloat64(metrics.KafkaMessagesFailed.WithLabelValues("order-requests"))

	metrics.KafkaMessagesConsumed.WithLabelValues("order-requests").Inc()
	metrics.KafkaMessagesFailed.WithLabelValues("order-requests").Inc()

	if got := testutil.ToFloat64(metrics.KafkaMessagesConsumed.WithLabelValues("order-requests")); got != beforeConsumed+1 {
		t.Fatalf("KafkaMessagesConsumed: got=%v want=%v", got, beforeConsumed+1)
	}
	if got := testutil.ToFloat64(metrics.KafkaMessagesFailed.WithLabelValues("order-requests")); got != beforeFailed+1 {
		t.Fatalf("KafkaMessagesFailed: got=%v want=%v", got, beforeFailed+1)
	}
}

func TestCatalogRequests_ByResult(t *testing.T) {
	metrics.MustRegister()

	present := metrics.CatalogRequests.WithLabelValues("GET", "present")
	exhausted := metrics.CatalogRequests.WithLabelValues("GET", "exhausted")
	presentBefore := testutil.ToFloat64(present)
	exhaustedBefore := testutil.ToFloat64(exhausted)

	present.Inc()
	present.Inc()

	if got := testutil.ToFloat64(present); got != presentBefore+2 {
		t.Fatalf("present: got=%v want=%v", got, presentBefore+2)
	}
	if got := testutil.ToFloat64(exhausted); got != exhaustedBefore {
		t.Fatalf("exhausted must not change: got=%v want=%v", got, exhaustedBefore)
	}
}

func TestCacheSize_GaugeSet(t *testing.T) {
	metrics.MustRegister()

	cur := testutil.ToFloat64(metrics.CacheSize)

	metrics.CacheSize.Set(cur + 5)
	if got := testutil.ToFloat64(metrics.CacheSize); got != cur+5 {
		t.Fatalf("CacheSize after +5: got=%v want=%v", got, cur+5)
	}

	metrics.CacheSize.Set(cur) // вернуть как было
	if got := testutil.ToFloat64(metrics.CacheSize); got != cur {
		t.Fatalf("CacheSize restore: got=%v want=%v", got, cur)
	}
}
