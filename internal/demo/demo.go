// Package demo builds a sample ledger, tampers with one block and reports
// what validation sees before and after.
package demo

import (
	"fmt"

	"github.com/jmerrifield20/minichain/internal/chain"
	"github.com/jmerrifield20/minichain/internal/monitor"
)

// Sample is a block to append during the demonstration.
type Sample struct {
	Index     int
	Timestamp string
	Payload   any
}

// Samples are appended in order after genesis.
var Samples = []Sample{
	{Index: 1, Timestamp: "2025-02-10T00:00:00Z", Payload: map[string]string{"block1": "Alice paid Bob 100$"}},
	{Index: 2, Timestamp: "2025-02-10T14:00:00Z", Payload: map[string]string{"block2": "Bob paid Charlie 100$"}},
	{Index: 3, Timestamp: "2025-02-11T01:00:00.000Z", Payload: map[string]string{"block2": "Bob paid Jack 50$"}},
}

// Config selects the block to tamper with and how.
type Config struct {
	Position int
	Payload  any
	// Reseal recomputes the tampered block's digest, as an attacker covering
	// their tracks would.
	Reseal bool
}

// DefaultConfig rewrites the first payment and reseals the block.
func DefaultConfig() Config {
	return Config{
		Position: 1,
		Payload:  map[string]string{"block1": "Alice paid Bob 55$"},
		Reseal:   true,
	}
}

// Report is the outcome of a run.
type Report struct {
	Before      chain.Snapshot `json:"before"`
	ValidBefore chain.Result   `json:"validBefore"`
	Tampered    int            `json:"tampered"`
	NewDigest   string         `json:"newDigest"`
	After       chain.Snapshot `json:"after"`
	ValidAfter  chain.Result   `json:"validAfter"`
}

// Run appends Samples to mon, verifies, applies cfg and verifies again.
func Run(mon *monitor.Monitor, cfg Config) (*Report, error) {
	for _, s := range Samples {
		b, err := chain.NewBlock(s.Index, s.Timestamp, s.Payload)
		if err != nil {
			return nil, fmt.Errorf("sample block %d: %w", s.Index, err)
		}
		mon.Append(b)
	}

	r := &Report{
		Before:      mon.Snapshot(),
		ValidBefore: mon.Verify(),
		Tampered:    cfg.Position,
	}

	err := mon.Tamper(cfg.Position, func(c *chain.Corruption) error {
		if err := c.SetPayload(cfg.Payload); err != nil {
			return err
		}
		if cfg.Reseal {
			c.Reseal()
		}
		r.NewDigest = c.Block().Digest()
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.After = mon.Snapshot()
	r.ValidAfter = mon.Verify()
	return r, nil
}
