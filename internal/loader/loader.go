// Package loader reads a program image from disk, either as a raw flat
// binary or as a textual hex dump (the format spec.md's end-to-end
// scenarios are written in), and returns the decoded bytes ready to hand
// to a VM's ExecuteBytes.
package loader

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads path. If every non-whitespace byte in the file is a hex
// digit, it is decoded as hex; otherwise the raw bytes are returned
// unchanged as a flat binary image.
func LoadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return Load(raw)
}

// Load applies the same hex-or-raw detection as LoadFile to an in-memory
// buffer.
func Load(raw []byte) ([]byte, error) {
	if looksLikeHex(raw) {
		return DecodeHex(string(raw))
	}
	return raw, nil
}

// DecodeHex strips whitespace from s and decodes it as a hex string, the
// "B804000000 BB01000000 ..." form spec.md's end-to-end scenarios use.
func DecodeHex(s string) ([]byte, error) {
	stripped := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			return -1
		}
		return r
	}, s)
	b, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("loader: invalid hex image: %w", err)
	}
	return b, nil
}

func looksLikeHex(raw []byte) bool {
	seen := false
	for _, b := range raw {
		switch {
		case b == ' ' || b == '\n' || b == '\t' || b == '\r':
			continue
		case b >= '0' && b <= '9', b >= 'a' && b <= 'f', b >= 'A' && b <= 'F':
			seen = true
			continue
		default:
			return false
		}
	}
	return seen
}
