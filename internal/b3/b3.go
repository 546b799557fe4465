// Package b3 computes blake3 content hashes and configuration fingerprints.
package b3

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"lukechampine.com/blake3"
)

// HashReader returns the hex blake3-256 digest of everything read from r.
func HashReader(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint hashes the JSON encoding of each part, length-prefixed so that
// distinct part lists never collide by concatenation.
func Fingerprint(parts ...any) (string, error) {
	h := blake3.New(32, nil)
	for i, p := range parts {
		data, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("fingerprint part %d: %w", i, err)
		}
		fmt.Fprintf(h, "%d:", len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
