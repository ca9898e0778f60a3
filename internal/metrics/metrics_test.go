package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStatusIsOneHot(t *testing.T) {
	RecordStatus("connected")
	if got := testutil.ToFloat64(SessionStatus.WithLabelValues("connected")); got != 1 {
		t.Errorf("connected gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SessionStatus.WithLabelValues("connecting")); got != 0 {
		t.Errorf("connecting gauge = %v, want 0", got)
	}

	RecordStatus("error")
	if got := testutil.ToFloat64(SessionStatus.WithLabelValues("connected")); got != 0 {
		t.Errorf("connected gauge after error = %v, want 0", got)
	}
	if got := testutil.ToFloat64(SessionStatus.WithLabelValues("error")); got != 1 {
		t.Errorf("error gauge = %v, want 1", got)
	}
}

func TestRecordAck(t *testing.T) {
	before := testutil.ToFloat64(ClipboardAcks.WithLabelValues("success"))
	RecordAck(true)
	RecordAck(false)
	if got := testutil.ToFloat64(ClipboardAcks.WithLabelValues("success")); got != before+1 {
		t.Errorf("success acks = %v, want %v", got, before+1)
	}
}
