// Package namehash derives the deterministic, content-addressed names used
// for static-config files and shared-memory segments, so two independent
// processes compute the identical name from the same inputs without any
// coordination.
package namehash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Of hashes an ordered tuple of strings into a fixed-width hex name. Each
// part is length-prefixed before hashing so ("ab","c") and ("a","bc")
// never collide.
func Of(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s|", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
