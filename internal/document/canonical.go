package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalHash computes the dedup hash for one event. The raw event
// JSON is decoded into a generic value and re-marshaled, which sorts
// object keys and drops insignificant whitespace, then hashed with
// SHA-256 and hex encoded.
//
// Any change to this canonicalization invalidates every hash already
// stored in the event hash ledger.
func CanonicalHash(raw []byte) (string, error) {
	canon, err := canonicalize(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize produces the stable serialization of an event. UseNumber
// keeps numeric literals as written instead of round-tripping through
// float64.
func canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to canonicalize event: %w", err)
	}

	canon, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to re-marshal event: %w", err)
	}
	return canon, nil
}
