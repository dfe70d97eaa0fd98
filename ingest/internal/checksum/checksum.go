// Package checksum computes the content-addressed fingerprints used for
// change detection and sensitive-field hashing.
//
// A record's checksum is the SHA-256 of its canonical JSON form: object
// keys sorted, no insignificant whitespace, no HTML escaping. Two field
// maps with equal contents hash identically regardless of how they were
// built.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Size is the length of a hex-encoded checksum.
const Size = sha256.Size * 2

// Canonical returns the canonical JSON encoding of v. Maps are emitted
// with sorted keys at every depth.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Of returns the hex SHA-256 of the canonical encoding of fields.
func Of(fields map[string]any) (string, error) {
	data, err := Canonical(fields)
	if err != nil {
		return "", err
	}
	return Bytes(data), nil
}

// String returns the hex SHA-256 of the UTF-8 bytes of s. Used to store
// fingerprints of sensitive values instead of the values themselves.
func String(s string) string {
	return Bytes([]byte(s))
}

// Bytes returns the hex SHA-256 of data.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
