package api

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// fingerprintSize bounds how much of an upload is hashed.
const fingerprintSize = 1024 * 1024

// fingerprint is an io.Writer that hashes the first fingerprintSize bytes
// written to it and discards everything.
type fingerprint struct {
	h hash.Hash
	n int64
}

func newFingerprint() *fingerprint {
	return &fingerprint{h: sha256.New()}
}

func (f *fingerprint) Write(p []byte) (int, error) {
	if remaining := fingerprintSize - f.n; remaining > 0 {
		chunk := p
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		f.h.Write(chunk)
		f.n += int64(len(chunk))
	}
	return len(p), nil
}

func (f *fingerprint) Sum() string {
	return hex.EncodeToString(f.h.Sum(nil))
}
