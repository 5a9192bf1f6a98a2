package chain

import "fmt"

// Corruption gives raw write access to one block of a ledger. It exists to
// simulate an attacker in tests and demonstrations and must not be used to
// edit a ledger in normal operation: none of its setters keep the chain
// consistent.
type Corruption struct {
	pos   int
	block *Block
}

// Corrupt returns a Corruption for the block at sequence position pos.
func Corrupt(l *Ledger, pos int) (*Corruption, error) {
	b, err := l.Block(pos)
	if err != nil {
		return nil, err
	}
	return &Corruption{pos: pos, block: b}, nil
}

// Position returns the sequence position of the corrupted block.
func (c *Corruption) Position() int { return c.pos }

// Block returns the corrupted block.
func (c *Corruption) Block() *Block { return c.block }

// SetPayload replaces the payload and leaves the stored digest untouched.
func (c *Corruption) SetPayload(payload any) error {
	data, err := canonicalize(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	c.block.payload = data
	return nil
}

// SetIndex overwrites the index without resealing.
func (c *Corruption) SetIndex(index int) { c.block.index = index }

// SetTimestamp overwrites the timestamp without resealing.
func (c *Corruption) SetTimestamp(ts string) { c.block.timestamp = ts }

// SetPreviousDigest re-points the block at a different predecessor digest.
func (c *Corruption) SetPreviousDigest(d string) { c.block.previousDigest = d }

// SetDigest overwrites the stored digest.
func (c *Corruption) SetDigest(d string) { c.block.digest = d }

// Reseal recomputes the digest from the current fields, stores it and
// returns it. Successors are not relinked.
func (c *Corruption) Reseal() string { return c.block.seal() }
