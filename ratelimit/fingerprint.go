package ratelimit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrFingerprintUnavailable is returned when a payload cannot be reduced to a stable digest
var ErrFingerprintUnavailable = errors.New("fingerprint unavailable")

// Fingerprint returns a digest of v that ignores object key order at every depth.
// Array order and number spelling are significant.
func Fingerprint(v any) (string, error) {
	if v == nil {
		return "", ErrFingerprintUnavailable
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFingerprintUnavailable, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFingerprintUnavailable, err)
	}
	// encoding/json writes map keys sorted
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFingerprintUnavailable, err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
