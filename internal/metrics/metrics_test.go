package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAppend(t *testing.T) {
	m := New()
	m.RecordAppend(2)
	m.RecordAppend(3)

	if got := testutil.ToFloat64(m.appendsTotal); got != 2 {
		t.Errorf("appends: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.chainLength); got != 3 {
		t.Errorf("chain length: got %v, want 3", got)
	}
}

func TestRecordVerification(t *testing.T) {
	m := New()
	m.RecordVerification(true, time.Millisecond)
	m.RecordVerification(false, time.Millisecond)
	m.RecordVerification(false, time.Millisecond)

	if got := testutil.ToFloat64(m.verificationsTotal.WithLabelValues("valid")); got != 1 {
		t.Errorf("valid: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.verificationsTotal.WithLabelValues("invalid")); got != 2 {
		t.Errorf("invalid: got %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.verifyDuration); n != 1 {
		t.Errorf("expected 1 histogram series, got %d", n)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordTamper()

	if got := testutil.ToFloat64(b.tamperedBlocksTotal); got != 0 {
		t.Errorf("second instance saw %v tampers", got)
	}
}

func TestWriteText(t *testing.T) {
	m := New()
	m.RecordAppend(2)
	m.RecordVerification(true, time.Microsecond)

	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"minichain_appends_total 1",
		"minichain_chain_length 2",
		`minichain_verifications_total{result="valid"} 1`,
		"# TYPE minichain_verify_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
