package monitor_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmerrifield20/minichain/internal/chain"
	"github.com/jmerrifield20/minichain/internal/metrics"
	"github.com/jmerrifield20/minichain/internal/monitor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newBlock(t *testing.T, index int, payload any) *chain.Block {
	t.Helper()
	b, err := chain.NewBlock(index, "T", payload)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestAppend_returnsPosition(t *testing.T) {
	mon := monitor.New(chain.New(), nil, zap.NewNop())

	if pos := mon.Append(newBlock(t, 1, "a")); pos != 1 {
		t.Errorf("first append: got position %d, want 1", pos)
	}
	if pos := mon.Append(newBlock(t, 7, "b")); pos != 2 {
		t.Errorf("second append: got position %d, want 2", pos)
	}
	if mon.Len() != 3 {
		t.Errorf("Len: got %d, want 3", mon.Len())
	}
	if mon.ID() == uuid.Nil {
		t.Error("monitor has no id")
	}
}

func TestVerify_logsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mon := monitor.New(chain.New(), metrics.New(), zap.New(core))
	mon.Append(newBlock(t, 1, "a"))
	mon.Append(newBlock(t, 2, "b"))

	if res := mon.Verify(); !res.Valid {
		t.Fatalf("expected valid ledger, got %s", res)
	}

	err := mon.Tamper(1, func(c *chain.Corruption) error {
		return c.SetPayload("forged")
	})
	if err != nil {
		t.Fatal(err)
	}

	res := mon.Verify()
	if res.Valid || res.Position != 1 {
		t.Fatalf("expected failure at position 1, got %s", res)
	}

	failed := logs.FilterMessage("ledger integrity check failed").All()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failure log, got %d", len(failed))
	}
	fields := failed[0].ContextMap()
	if fields["ledger_id"] != mon.ID().String() {
		t.Errorf("ledger_id: got %v, want %s", fields["ledger_id"], mon.ID())
	}
	if fields["reason"] != string(chain.ReasonDigestMismatch) {
		t.Errorf("reason: got %v", fields["reason"])
	}
	if logs.FilterMessage("block tampered").Len() != 1 {
		t.Error("tamper was not logged")
	}
}

func TestTamper_errors(t *testing.T) {
	mon := monitor.New(chain.New(), nil, zap.NewNop())

	if err := mon.Tamper(5, func(*chain.Corruption) error { return nil }); !errors.Is(err, chain.ErrPosition) {
		t.Errorf("expected ErrPosition, got %v", err)
	}

	boom := errors.New("boom")
	if err := mon.Tamper(0, func(*chain.Corruption) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected wrapped callback error, got %v", err)
	}
}

func TestSnapshot_consistentUnderConcurrency(t *testing.T) {
	mon := monitor.New(chain.New(), metrics.New(), zap.NewNop())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				b, err := chain.NewBlock(w*100+i, "T", i)
				if err != nil {
					t.Error(err)
					return
				}
				mon.Append(b)
				if res := mon.Verify(); !res.Valid {
					t.Errorf("concurrent verify saw %s", res)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	snap := mon.Snapshot()
	if len(snap.Chain) != 101 {
		t.Fatalf("expected 101 blocks, got %d", len(snap.Chain))
	}
	for i := 1; i < len(snap.Chain); i++ {
		if snap.Chain[i].PreviousDigest != snap.Chain[i-1].Digest {
			t.Fatalf("link broken at %d", i)
		}
	}
}
