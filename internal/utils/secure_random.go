package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferenceNumber returns a human-readable withdrawal reference such as
// WD-1767225600000-K3Q9ZB: the prefix, the unix time in milliseconds and six random characters.
func GenerateReferenceNumber(prefix string, now time.Time) (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), string(suffix)), nil
}
