package chain

import "encoding/json"

// BlockView is the read-only projection of a single block.
type BlockView struct {
	Index          int             `json:"index"`
	Timestamp      string          `json:"timestamp"`
	Payload        json.RawMessage `json:"payload"`
	PreviousDigest string          `json:"previousDigest"`
	Digest         string          `json:"digest"`
}

// Snapshot is a serialisable copy of a ledger for diagnostics. It carries no
// compatibility guarantees.
type Snapshot struct {
	Algorithm Algorithm   `json:"algorithm"`
	Chain     []BlockView `json:"chain"`
}

// View projects b.
func (b *Block) View() BlockView {
	return BlockView{
		Index:          b.index,
		Timestamp:      b.timestamp,
		Payload:        b.Payload(),
		PreviousDigest: b.previousDigest,
		Digest:         b.digest,
	}
}

// Snapshot projects every block of the ledger in chain order.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{
		Algorithm: l.algo,
		Chain:     make([]BlockView, 0, len(l.blocks)),
	}
	for _, b := range l.blocks {
		s.Chain = append(s.Chain, b.View())
	}
	return s
}
