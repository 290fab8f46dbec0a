package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSession is the domain-separation prefix for session content hashes.
// The version suffix leaves room for a future hashing scheme migration.
const DomainSession = "squint/session/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte prevents a boundary
// ambiguity between the domain string and the data that follows it.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SessionHash computes a content-addressed hash for a compile session,
// keyed on the exact source bytes plus the strict-overlays flag (since that
// flag can change whether compilation succeeds). internal/session uses this
// as the primary key so that recompiling identical source under identical
// flags reuses the same session row instead of growing the store unbounded.
func SessionHash(source string, strictOverlays bool) (string, error) {
	obj := map[string]any{
		"source": source,
		"strict": strictOverlays,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SessionHash: %w", err)
	}
	return hashWithDomain(DomainSession, canonical), nil
}

// MustSessionHash is like SessionHash but panics on error. Use only in
// tests or where the inputs are known to be valid strings.
func MustSessionHash(source string, strictOverlays bool) string {
	hash, err := SessionHash(source, strictOverlays)
	if err != nil {
		panic(err)
	}
	return hash
}
