package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	ok := OperationsTotal.WithLabelValues("observe-test", "ok")
	failed := OperationsTotal.WithLabelValues("observe-test", "error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	Observe("observe-test", time.Now(), nil)
	Observe("observe-test", time.Now(), errors.New("boom"))
	Observe("observe-test", time.Now(), nil)

	if got := testutil.ToFloat64(ok) - beforeOK; got != 2 {
		t.Errorf("Expected 2 successful operations, got %v", got)
	}
	if got := testutil.ToFloat64(failed) - beforeFailed; got != 1 {
		t.Errorf("Expected 1 failed operation, got %v", got)
	}
}
