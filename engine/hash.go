// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// CanonicalJSON serializes v into the canonical form §6 requires: keys
// sorted at every level, no insignificant whitespace, ASCII-only escaping.
// encoding/json already produces compact output and sorts
// map[string]interface{} keys, but leaves non-ASCII characters as UTF-8, so
// asciiEscape rewrites them as \uXXXX escapes; canonicalize walks the decoded value tree so
// the same guarantee holds for structs (whose field order would otherwise
// leak through) by round-tripping through a generic representation.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf strings.Builder
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func writeCanonical(buf *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(asciiEscape(keyBytes))
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(asciiEscape(encoded))
	}
	return nil
}

// asciiEscape replaces any non-ASCII byte sequence json.Marshal left as
// literal UTF-8 with its \uXXXX escape, per §6's ASCII-only requirement.
func asciiEscape(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, r := range string(b) {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		out = append(out, []byte(escapeRune(r))...)
	}
	return out
}

func escapeRune(r rune) string {
	if r > 0xFFFF {
		r1, r2 := utf16Surrogates(r)
		return hex4(r1) + hex4(r2)
	}
	return hex4(uint16(r))
}

func utf16Surrogates(r rune) (uint16, uint16) {
	r -= 0x10000
	hi := uint16(0xD800 + (r >> 10))
	lo := uint16(0xDC00 + (r & 0x3FF))
	return hi, lo
}

func hex4(v uint16) string {
	const digits = "0123456789abcdef"
	return `\u` + string([]byte{
		digits[(v>>12)&0xF],
		digits[(v>>8)&0xF],
		digits[(v>>4)&0xF],
		digits[v&0xF],
	})
}

// ReplayHash returns the lowercase hex SHA-256 of events' canonical JSON
// serialization (§6, §8.8).
func ReplayHash(events []Event) (string, error) {
	canonical, err := CanonicalJSON(events)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
