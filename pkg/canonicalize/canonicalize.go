// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// serialization and the SHA-256 hash chaining used to link events and
// receipts into append-only, tamper-evident logs.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/gowebpki/jcs"
)

// Canonical returns the canonical JSON representation of v.
//
// Map keys are sorted lexicographically, formatting is byte-stable, and the
// output is pure ASCII, so two values with identical logical content
// canonicalize identically regardless of insertion order.
func Canonical(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
	}
	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: transform failed: %w", err)
	}
	return asciiEscape(out), nil
}

// asciiEscape rewrites the non-ASCII runes RFC 8785 leaves as raw UTF-8 into
// \u escapes. Non-ASCII bytes can only occur inside string literals, so the
// rune-wise rewrite cannot alter JSON structure.
func asciiEscape(data []byte) []byte {
	ascii := true
	for _, b := range data {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return data
	}
	var buf bytes.Buffer
	buf.Grow(len(data))
	for _, r := range string(data) {
		switch {
		case r < 0x80:
			buf.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&buf, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&buf, `\u%04x`, r)
		}
	}
	return buf.Bytes()
}

// CanonicalString returns the canonical form as a string.
func CanonicalString(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HashBytes computes the SHA-256 digest of raw bytes as lowercase hex.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalHash returns the SHA-256 hex digest of the canonical form of v.
func CanonicalHash(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashChain computes the chained hash of a payload: SHA-256 over the
// canonical JSON of {prev_hash, payload}. An empty prev is encoded as null
// so the genesis entry hashes differently from one chained to "".
func HashChain(payload map[string]any, prev string) (string, error) {
	var prevValue any
	if prev != "" {
		prevValue = prev
	}
	material := map[string]any{
		"prev_hash": prevValue,
		"payload":   payload,
	}
	return CanonicalHash(material)
}

// StripHashFields returns a shallow copy of entry without the named keys.
// Hash fields must be excluded from their own hash input; stripping them
// also makes re-application idempotent and prevents replayed entries from
// smuggling in a pre-computed chain position.
func StripHashFields(entry map[string]any, keys ...string) map[string]any {
	payload := make(map[string]any, len(entry))
	for k, v := range entry {
		payload[k] = v
	}
	for _, k := range keys {
		delete(payload, k)
	}
	return payload
}

// EventTimeUTC maps a non-negative logical clock value (seconds) onto an
// RFC-3339 UTC timestamp relative to a fixed base time, so receipts are
// reproducible independent of wall-clock time.
func EventTimeUTC(baseTimeUTC string, eventTime int) (string, error) {
	base, err := time.Parse(time.RFC3339, baseTimeUTC)
	if err != nil {
		return "", fmt.Errorf("canonicalize: bad base time %q: %w", baseTimeUTC, err)
	}
	return base.Add(time.Duration(eventTime) * time.Second).UTC().Format(time.RFC3339), nil
}
