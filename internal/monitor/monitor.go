// Package monitor serialises access to a chain.Ledger shared between callers
// and records what happens to it in logs and metrics.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/minichain/internal/chain"
	"github.com/jmerrifield20/minichain/internal/metrics"
	"go.uber.org/zap"
)

// Monitor guards a ledger with a single mutex, so an append can never be
// observed half-done by a concurrent verification.
type Monitor struct {
	mu      sync.Mutex
	id      uuid.UUID
	ledger  *chain.Ledger
	metrics *metrics.Metrics // nil = no metrics
	logger  *zap.Logger
}

// New wraps l. m may be nil to disable metrics.
func New(l *chain.Ledger, m *metrics.Metrics, logger *zap.Logger) *Monitor {
	mon := &Monitor{
		id:      uuid.New(),
		ledger:  l,
		metrics: m,
		logger:  logger,
	}
	mon.logger = logger.With(zap.String("ledger_id", mon.id.String()))
	if m != nil {
		m.SetLength(l.Len())
	}
	mon.logger.Debug("ledger opened",
		zap.String("algorithm", string(l.Algorithm())),
		zap.String("genesis", l.Tail().Digest()),
	)
	return mon
}

// ID returns the identifier attached to every log line of this monitor.
func (m *Monitor) ID() uuid.UUID { return m.id }

// Append links b to the ledger and returns the position it was stored at.
func (m *Monitor) Append(b *chain.Block) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.ledger.Append(b)
	pos := m.ledger.Len() - 1
	if m.metrics != nil {
		m.metrics.RecordAppend(m.ledger.Len())
	}

	m.logger.Debug("block appended",
		zap.Int("position", pos),
		zap.Int("index", stored.Index()),
		zap.String("digest", stored.Digest()),
	)
	return pos
}

// Verify walks the whole chain. An invalid chain is logged at warn level.
func (m *Monitor) Verify() chain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	res := m.ledger.Check()
	elapsed := time.Since(start)
	if m.metrics != nil {
		m.metrics.RecordVerification(res.Valid, elapsed)
	}

	if !res.Valid {
		m.logger.Warn("ledger integrity check failed",
			zap.Int("position", res.Position),
			zap.String("reason", string(res.Reason)),
		)
		return res
	}
	m.logger.Debug("ledger verified",
		zap.Int("blocks", m.ledger.Len()),
		zap.String("tail", m.ledger.Tail().Digest()),
		zap.Duration("elapsed", elapsed),
	)
	return res
}

// Snapshot returns a consistent copy of the ledger.
func (m *Monitor) Snapshot() chain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Snapshot()
}

// Len returns the number of blocks, genesis included.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Len()
}

// Tamper runs fn against a Corruption of the block at pos while holding the
// lock. It is meant for demonstrations and tests only.
func (m *Monitor) Tamper(pos int, fn func(c *chain.Corruption) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := chain.Corrupt(m.ledger, pos)
	if err != nil {
		return fmt.Errorf("tamper: %w", err)
	}
	if err := fn(c); err != nil {
		return fmt.Errorf("tamper block %d: %w", pos, err)
	}
	if m.metrics != nil {
		m.metrics.RecordTamper()
	}

	m.logger.Warn("block tampered",
		zap.Int("position", pos),
		zap.String("digest", c.Block().Digest()),
		zap.Bool("sealed", c.Block().Sealed()),
	)
	return nil
}
