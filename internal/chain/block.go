package chain

import (
	"bytes"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned for payloads holding strings that are not valid
// UTF-8. The JSON encoder would silently replace such bytes, so two distinct
// payloads could otherwise share a digest.
var ErrInvalidUTF8 = errors.New("payload string is not valid UTF-8")

// NoPredecessor is the previous digest carried by a block that has not been
// linked to anything, including the genesis block.
const NoPredecessor = "0"

// Block is one entry in the ledger. Its fields are only readable through
// accessors; Append and the Corrupt helper are the only writers.
type Block struct {
	index          int
	timestamp      string
	payload        []byte // canonical JSON
	previousDigest string
	digest         string
	algo           Algorithm
	owned          bool // stored in a ledger
}

// NewBlock constructs an unlinked block and computes its digest with
// DefaultAlgorithm. No argument is validated: duplicate or out-of-order
// indices and any timestamp text are accepted. The only error is a payload
// that cannot be encoded as JSON or that holds invalid UTF-8.
func NewBlock(index int, timestamp string, payload any) (*Block, error) {
	data, err := canonicalize(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	b := &Block{
		index:          index,
		timestamp:      timestamp,
		payload:        data,
		previousDigest: NoPredecessor,
		algo:           DefaultAlgorithm,
	}
	b.digest = b.ComputeDigest()
	return b, nil
}

// ComputeDigest returns the hex digest of
// index ++ previousDigest ++ timestamp ++ payload, concatenated without
// separators. It reads the current fields and never mutates the block.
func (b *Block) ComputeDigest() string {
	h := b.algo.newHash()
	fmt.Fprintf(h, "%d%s%s", b.index, b.previousDigest, b.timestamp)
	h.Write(b.payload)
	return hex.EncodeToString(h.Sum(nil))
}

// DigestOf computes the digest a block with the given fields would carry,
// without constructing or linking one.
func DigestOf(algo Algorithm, index int, previousDigest, timestamp string, payload any) (string, error) {
	data, err := canonicalize(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	b := Block{index: index, timestamp: timestamp, payload: data, previousDigest: previousDigest, algo: algo}
	return b.ComputeDigest(), nil
}

// Index returns the caller-assigned index.
func (b *Block) Index() int { return b.index }

// Timestamp returns the timestamp text hashed into the digest.
func (b *Block) Timestamp() string { return b.timestamp }

// PreviousDigest returns the digest of the predecessor this block links to.
func (b *Block) PreviousDigest() string { return b.previousDigest }

// Digest returns the stored digest, which is not recomputed.
func (b *Block) Digest() string { return b.digest }

// Algorithm returns the algorithm the digest is computed with.
func (b *Block) Algorithm() Algorithm { return b.algo }

// Payload returns a copy of the canonical JSON encoding of the payload.
func (b *Block) Payload() json.RawMessage {
	return append(json.RawMessage(nil), b.payload...)
}

// Sealed reports whether the stored digest matches the current fields.
func (b *Block) Sealed() bool {
	return b.digest == b.ComputeDigest()
}

// seal recomputes and stores the digest.
func (b *Block) seal() string {
	b.digest = b.ComputeDigest()
	return b.digest
}

// canonicalize encodes v as compact JSON with sorted map keys, without HTML
// escaping and with U+2028 and U+2029 written raw, so equal payloads always
// produce identical bytes. Strings must be valid UTF-8.
func canonicalize(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode rejects cyclic values, so the walk below terminates.
	if err := checkUTF8(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// checkUTF8 walks the parts of v the JSON encoder would emit and rejects
// strings and map keys that are not valid UTF-8. Values that marshal
// themselves are emitted as they choose and are not inspected.
func checkUTF8(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}
	t := v.Type()
	if t.Kind() != reflect.Interface && marshalsItself(v) {
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("%w: %q", ErrInvalidUTF8, v.String())
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkUTF8(v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return nil // base64
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			// String-kinded keys are emitted as is, even when they
			// implement TextMarshaler.
			if k := iter.Key(); k.Kind() == reflect.String && !utf8.ValidString(k.String()) {
				return fmt.Errorf("%w: key %q", ErrInvalidUTF8, k.String())
			}
			if err := checkUTF8(iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if (!f.IsExported() && !f.Anonymous) || f.Tag.Get("json") == "-" {
				continue
			}
			if err := checkUTF8(v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// marshalsItself reports whether the encoder hands v to its own MarshalJSON
// or MarshalText. Pointer-receiver methods only apply to addressable values.
func marshalsItself(v reflect.Value) bool {
	t := v.Type()
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	if !v.CanAddr() {
		return false
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonMarshalerType) || pt.Implements(textMarshalerType)
}

// unescapeLineSeparators rewrites the \u2028 and \u2029 escapes the encoder
// always emits into the raw characters. Every backslash in encoded JSON
// starts an escape, so escapes are skipped in pairs to leave an escaped
// backslash followed by "u2028" alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if i+5 < len(data) && data[i+1] == 'u' {
			switch string(data[i+2 : i+6]) {
			case "2028":
				out = utf8.AppendRune(out, '\u2028')
				i += 5
				continue
			case "2029":
				out = utf8.AppendRune(out, '\u2029')
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
