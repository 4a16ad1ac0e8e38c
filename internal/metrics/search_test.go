package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSearchOp(t *testing.T) {
	RegisterSearchMetrics()
	RegisterSearchMetrics()

	okBefore := testutil.ToFloat64(SearchOpsTotal.WithLabelValues("test_op", "ok"))
	errBefore := testutil.ToFloat64(SearchOpsTotal.WithLabelValues("test_op", "error"))

	ObserveSearchOp("test_op", time.Now(), nil)
	ObserveSearchOp("test_op", time.Now(), errors.New("boom"))
	ObserveSearchOp("test_op", time.Now(), nil)

	if got := testutil.ToFloat64(SearchOpsTotal.WithLabelValues("test_op", "ok")) - okBefore; got != 2 {
		t.Errorf("ok ops = %f, want 2", got)
	}
	if got := testutil.ToFloat64(SearchOpsTotal.WithLabelValues("test_op", "error")) - errBefore; got != 1 {
		t.Errorf("error ops = %f, want 1", got)
	}
	if testutil.CollectAndCount(SearchOpDuration, "zelastic_search_op_duration_seconds") == 0 {
		t.Error("expected duration observations")
	}
}
