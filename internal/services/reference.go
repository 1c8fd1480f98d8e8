package services

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Crockford base32 without I, L, O and U.
const referenceAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	referenceSuffixLength = 6
	referenceAttempts     = 3
)

// NewReferenceNumber returns ETA-YYYYMMDD-XXXXXX for the UTC date of now.
func NewReferenceNumber(now time.Time) (string, error) {
	buf := make([]byte, referenceSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reference number: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("ETA-%s-%s", now.UTC().Format("20060102"), buf), nil
}
