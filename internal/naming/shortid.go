package naming

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const base32Lower = "abcdefghijklmnopqrstuvwxyz234567"

// NewShortID returns an 8-character lowercase base32 encoding of 40 random
// bits, used as the stack-name suffix.
func NewShortID() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = base32Lower[v&31]
		v >>= 5
	}
	return string(out), nil
}

// StackName assembles the deterministic stack name for a cluster,
// "<cluster-name>-<shortid>".
func StackName(clusterName, shortID string) string {
	return clusterName + "-" + shortID
}

// IsShortID reports whether s looks like a NewShortID product.
func IsShortID(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base32Lower, r) {
			return false
		}
	}
	return true
}
