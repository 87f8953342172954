// Package cachekey derives stable content hashes identifying semantically
// identical external calls. Values are reduced to a canonical JSON form
// (object keys sorted recursively, array order preserved) before hashing,
// so field-order differences never change the key. Digests are BLAKE3,
// rendered as fixed-length hex.
package cachekey

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Canonical returns the canonical JSON encoding of v: the value is
// round-tripped through generic JSON decoding, which sorts object keys
// recursively on re-encoding. Semantically relevant fields only belong
// here; never feed timestamps or attempt counters into a key.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// Sum returns the hex BLAKE3 digest of v's canonical form. Identical
// logical inputs always produce the same key; any change to a semantically
// relevant field produces a different key with overwhelming probability.
func Sum(v any) (string, error) {
	c, err := Canonical(v)
	if err != nil {
		return "", err
	}
	digest := blake3.Sum256(c)
	return hex.EncodeToString(digest[:]), nil
}

// SumBytes returns the hex BLAKE3 digest of raw content. Artifacts are
// hashed individually with SumBytes and only their digests participate in
// a call's key, so large identical blobs are recognized without re-hashing
// downstream.
func SumBytes(b []byte) string {
	digest := blake3.Sum256(b)
	return hex.EncodeToString(digest[:])
}
