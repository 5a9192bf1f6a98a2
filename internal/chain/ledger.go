package chain

import (
	"errors"
	"fmt"
)

// Genesis block field values. The genesis digest is computed from these like
// any other block; only the field values are special.
const (
	GenesisTimestamp = "2/8/2025"
	GenesisPayload   = "Genesis Block"
)

// ErrPosition is returned when a sequence position is outside the ledger.
var ErrPosition = errors.New("position out of range")

// Reason describes why a chain failed validation.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonDigestMismatch Reason = "digest mismatch"
	ReasonBrokenLink     Reason = "broken link"
)

// Result is the outcome of a validation walk. Position and Reason describe
// the first failing block and are zero when Valid is true.
type Result struct {
	Valid    bool   `json:"valid"`
	Position int    `json:"position,omitempty"`
	Reason   Reason `json:"reason,omitempty"`
}

func (r Result) String() string {
	if r.Valid {
		return "valid"
	}
	return fmt.Sprintf("invalid: %s at position %d", r.Reason, r.Position)
}

// Ledger is an ordered sequence of blocks rooted at a genesis block.
// Blocks are never reordered or removed.
type Ledger struct {
	algo   Algorithm
	blocks []*Block
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAlgorithm selects the digest algorithm used for genesis and for every
// appended block.
func WithAlgorithm(a Algorithm) Option {
	return func(l *Ledger) { l.algo = a }
}

// New creates a Ledger holding only the genesis block.
func New(opts ...Option) *Ledger {
	l := &Ledger{algo: DefaultAlgorithm}
	for _, opt := range opts {
		opt(l)
	}
	l.blocks = append(l.blocks, genesis(l.algo))
	return l
}

func genesis(algo Algorithm) *Block {
	payload, _ := canonicalize(GenesisPayload) // a plain string always encodes
	b := &Block{
		index:          0,
		timestamp:      GenesisTimestamp,
		payload:        payload,
		previousDigest: NoPredecessor,
		algo:           algo,
	}
	b.owned = true
	b.seal()
	return b
}

// Algorithm returns the digest algorithm of the ledger.
func (l *Ledger) Algorithm() Algorithm { return l.algo }

// Len returns the number of blocks, genesis included.
func (l *Ledger) Len() int { return len(l.blocks) }

// Tail returns the most recently appended block.
func (l *Ledger) Tail() *Block {
	return l.blocks[len(l.blocks)-1]
}

// Block returns the block at sequence position pos.
func (l *Ledger) Block(pos int) (*Block, error) {
	if pos < 0 || pos >= len(l.blocks) {
		return nil, fmt.Errorf("block %d: %w", pos, ErrPosition)
	}
	return l.blocks[pos], nil
}

// Blocks returns the blocks in chain order. The slice is a copy; the blocks
// are shared with the ledger.
func (l *Ledger) Blocks() []*Block {
	return append([]*Block(nil), l.blocks...)
}

// Append links a copy of b to the current tail, adds the copy to the ledger
// and returns it. Whatever previous digest and digest b carried are
// overwritten. The index is not checked against the sequence.
//
// The linked previous digest and digest are also written back to b, unless b
// is itself held by a ledger (for example the value returned by Tail), which
// is left untouched.
func (l *Ledger) Append(b *Block) *Block {
	nb := *b
	nb.algo = l.algo
	nb.previousDigest = l.Tail().digest
	nb.owned = true
	nb.seal()
	l.blocks = append(l.blocks, &nb)

	if !b.owned {
		b.algo, b.previousDigest, b.digest = nb.algo, nb.previousDigest, nb.digest
	}
	return &nb
}

// IsValid reports whether every block after genesis carries its own digest
// and links to its predecessor's digest.
func (l *Ledger) IsValid() bool {
	return l.Check().Valid
}

// Check walks the chain from position 1 and reports the first block whose
// stored digest differs from its recomputed digest, or whose previous digest
// differs from its predecessor's stored digest. The genesis block is not
// checked.
func (l *Ledger) Check() Result {
	for i := 1; i < len(l.blocks); i++ {
		curr, prev := l.blocks[i], l.blocks[i-1]
		if curr.digest != curr.ComputeDigest() {
			return Result{Position: i, Reason: ReasonDigestMismatch}
		}
		if curr.previousDigest != prev.digest {
			return Result{Position: i, Reason: ReasonBrokenLink}
		}
	}
	return Result{Valid: true}
}
