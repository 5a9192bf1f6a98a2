package demo_test

import (
	"errors"
	"testing"

	"github.com/jmerrifield20/minichain/internal/chain"
	"github.com/jmerrifield20/minichain/internal/demo"
	"github.com/jmerrifield20/minichain/internal/monitor"
	"go.uber.org/zap"
)

func newMonitor() *monitor.Monitor {
	return monitor.New(chain.New(), nil, zap.NewNop())
}

func TestRun_defaultConfig(t *testing.T) {
	r, err := demo.Run(newMonitor(), demo.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if len(r.Before.Chain) != 4 { // genesis + 3 samples
		t.Fatalf("expected 4 blocks, got %d", len(r.Before.Chain))
	}
	if !r.ValidBefore.Valid {
		t.Errorf("expected valid ledger before tampering, got %s", r.ValidBefore)
	}
	if r.ValidAfter.Valid {
		t.Fatal("resealed block 1 still has a successor; tampering must be detected")
	}
	if r.ValidAfter.Position != 2 || r.ValidAfter.Reason != chain.ReasonBrokenLink {
		t.Errorf("ValidAfter: got %+v, want broken link at 2", r.ValidAfter)
	}
	if r.NewDigest == r.Before.Chain[1].Digest {
		t.Error("reseal did not change the digest")
	}
	if r.After.Chain[1].Digest != r.NewDigest {
		t.Error("after snapshot does not show the new digest")
	}
	if string(r.After.Chain[1].Payload) != `{"block1":"Alice paid Bob 55$"}` {
		t.Errorf("tampered payload: got %s", r.After.Chain[1].Payload)
	}
}

func TestRun_withoutReseal(t *testing.T) {
	cfg := demo.DefaultConfig()
	cfg.Reseal = false

	r, err := demo.Run(newMonitor(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if r.ValidAfter.Valid || r.ValidAfter.Reason != chain.ReasonDigestMismatch || r.ValidAfter.Position != 1 {
		t.Errorf("ValidAfter: got %+v, want digest mismatch at 1", r.ValidAfter)
	}
	if r.NewDigest != r.Before.Chain[1].Digest {
		t.Error("digest changed without reseal")
	}
}

func TestRun_resealedTailGoesUnnoticed(t *testing.T) {
	cfg := demo.DefaultConfig()
	cfg.Position = len(demo.Samples)

	r, err := demo.Run(newMonitor(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !r.ValidAfter.Valid {
		t.Errorf("a resealed tail cannot be detected by chain validation, got %s", r.ValidAfter)
	}
}

func TestRun_badPosition(t *testing.T) {
	cfg := demo.DefaultConfig()
	cfg.Position = 42

	if _, err := demo.Run(newMonitor(), cfg); !errors.Is(err, chain.ErrPosition) {
		t.Errorf("expected ErrPosition, got %v", err)
	}
}
