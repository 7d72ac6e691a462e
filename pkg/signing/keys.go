// Package signing provides the cryptographic operations behind fairtool's
// attestations: Ed25519 key management and detached signatures over the
// RFC 8785 (JCS) canonical form of JSON documents.
//
// Canonicalizing before signing means a seal or catalog re-serialized with
// different key order or whitespace still verifies, while any semantic
// change breaks the signature.
package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// AlgorithmEd25519 identifies the only signature algorithm in use.
const AlgorithmEd25519 = "ed25519"

var (
	// ErrInvalidSignature is returned when cryptographic verification fails.
	ErrInvalidSignature = errors.New("invalid signature: cryptographic verification failed")

	// ErrInvalidKeyLength is returned for keys of the wrong size.
	ErrInvalidKeyLength = errors.New("invalid key length")
)

// PublicKey is an Ed25519 public key used to verify fairtool signatures.
// Keys are referenced by their SHA-256 fingerprint for readable identity.
type PublicKey struct {
	// Algorithm identifies the key algorithm, always "ed25519"
	Algorithm string

	// KeyBytes is the raw 32-byte Ed25519 public key
	KeyBytes []byte
}

// NewPublicKey wraps raw Ed25519 public key bytes, validating their length.
func NewPublicKey(keyBytes []byte) (PublicKey, error) {
	if len(keyBytes) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidKeyLength, ed25519.PublicKeySize, len(keyBytes))
	}
	kb := make([]byte, ed25519.PublicKeySize)
	copy(kb, keyBytes)
	return PublicKey{Algorithm: AlgorithmEd25519, KeyBytes: kb}, nil
}

// ParsePublicKey decodes a hex-encoded Ed25519 public key.
func ParsePublicKey(hexKey string) (PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to decode public key hex: %w", err)
	}
	return NewPublicKey(raw)
}

// Fingerprint returns the hex-encoded SHA-256 digest of the raw key bytes.
func (pk PublicKey) Fingerprint() string {
	sum := sha256.Sum256(pk.KeyBytes)
	return hex.EncodeToString(sum[:])
}

// Hex returns the hex encoding of the raw key bytes.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk.KeyBytes)
}

// Verify checks a raw Ed25519 signature over message.
func (pk PublicKey) Verify(message, signature []byte) bool {
	if len(pk.KeyBytes) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk.KeyBytes), message, signature)
}
