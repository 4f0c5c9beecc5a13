package localstate

import (
	"context"
	"math/rand/v2"
	"strings"
)

// FingerprintKey is where the visitor fingerprint is kept.
const FingerprintKey = "visitor_fingerprint"

const (
	fingerprintPrefix = "fp_"
	fingerprintLen    = 10
	base36            = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Fingerprint returns the visitor fingerprint, generating and persisting one on first use.
//
// The token only de-duplicates anonymous likes. It is not a credential and
// collisions are tolerated.
func Fingerprint(ctx context.Context, s Store) (string, error) {
	fp, ok, err := s.Get(ctx, FingerprintKey)
	if err != nil {
		return "", err
	}
	if ok && fp != "" {
		return fp, nil
	}

	fp = NewFingerprint()
	if err := s.Set(ctx, FingerprintKey, fp); err != nil {
		return "", err
	}
	return fp, nil
}

// NewFingerprint returns a fresh pseudo-random token such as "fp_k3j9x0a1bz".
func NewFingerprint() string {
	var b strings.Builder
	b.Grow(len(fingerprintPrefix) + fingerprintLen)
	b.WriteString(fingerprintPrefix)
	for i := 0; i < fingerprintLen; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
