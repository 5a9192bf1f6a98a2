// Package chain implements a hash-linked, append-only ledger of blocks.
//
// Every block stores the digest of its predecessor and a digest over its own
// index, previous digest, timestamp and canonical payload. Walking the chain
// and recomputing those digests detects tampering with any past block.
//
// Two coverage boundaries are kept on purpose and documented rather than fixed:
//   - The genesis block is a trust anchor. Validation starts at position 1 and
//     never recomputes the genesis digest.
//   - The tail block has no successor whose link could expose it, so a tail
//     whose payload is rewritten and whose digest is recomputed still validates.
//     Detecting that requires a checkpoint of the last known good digest held
//     outside the chain.
//
// A Ledger is not safe for concurrent use. Callers sharing one must serialise
// Append and validation themselves; see the monitor package.
package chain
