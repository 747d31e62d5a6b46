// Package attest produces the per-party authentication tokens attached to
// a trade. The token is a keyed hash of the trade payload and the party's
// secret, not a public-key signature: it is verifiable only by a holder of
// the same secret (or the backend, if the secret's hash was registered).
// The scheme is isolated behind Signer so it can be swapped for asymmetric
// signing without touching callers.
package attest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trovapay/trova/internal/domain"
)

// SecretBiometric is the sentinel secret used when a party authenticated
// with a biometric prompt. Biometric assertions carry no recoverable
// secret, so tokens produced this way are weaker proofs than PIN-backed
// ones.
const SecretBiometric = "biometric"

// Payload is the signed portion of a trade. Field order is fixed so the
// same logical payload always serializes, and therefore signs, identically.
type Payload struct {
	Items     []domain.TradeItem `json:"items"`
	Timestamp int64              `json:"timestamp"`
}

// Signer binds a trade payload to a party's secret.
type Signer interface {
	Sign(payload Payload, secret string) (string, error)
}

// Service is the keyed-hash Signer implementation.
type Service struct{}

// NewService creates the attestation service.
func NewService() *Service {
	return &Service{}
}

// Sign serializes the payload deterministically and hashes it together
// with the secret. Identical inputs always yield identical tokens.
func (s *Service) Sign(payload Payload, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal attestation payload")
	}

	h := sha256.New()
	if _, err := h.Write(serialized); err != nil {
		return "", errors.Wrap(err, "hash attestation payload")
	}
	if _, err := h.Write([]byte(":" + secret)); err != nil {
		return "", errors.Wrap(err, "hash attestation secret")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashPIN hashes a party's PIN for registration with the backend.
func HashPIN(pin string) (string, error) {
	if len(pin) < 4 {
		return "", errors.New("pin must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash pin")
	}
	return string(hash), nil
}

// VerifyPIN checks a PIN against its registered hash.
func VerifyPIN(hash, pin string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return errors.Wrap(err, "pin mismatch")
	}
	return nil
}
