package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// Envelope is a detached signature over the canonical form of a JSON
// document. It travels next to the document it signs (posted alongside a
// seal, or written next to a catalog file).
type Envelope struct {
	// Algorithm is the signature algorithm, always "ed25519"
	Algorithm string `json:"algorithm"`

	// KeyFingerprint identifies the signing key (sha256 of the public key)
	KeyFingerprint string `json:"keyFingerprint"`

	// Digest is the hex sha256 of the JCS-canonical document
	Digest string `json:"digest"`

	// Signature is the base64 Ed25519 signature over the digest bytes
	Signature string `json:"signature"`

	// SignedAt records when the signature was produced
	SignedAt time.Time `json:"signedAt"`
}

// Canonicalize returns the RFC 8785 canonical form of a JSON document.
func Canonicalize(doc []byte) ([]byte, error) {
	canonical, err := jcs.Transform(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize JSON: %w", err)
	}
	return canonical, nil
}

// Digest canonicalizes doc and returns the hex sha256 of the result.
func Digest(doc []byte) (string, error) {
	canonical, err := Canonicalize(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Sign produces a signature envelope for a JSON document.
func Sign(priv ed25519.PrivateKey, pub PublicKey, doc []byte) (*Envelope, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidKeyLength, ed25519.PrivateKeySize, len(priv))
	}

	digest, err := Digest(doc)
	if err != nil {
		return nil, err
	}
	digestBytes, err := hex.DecodeString(digest)
	if err != nil {
		return nil, fmt.Errorf("failed to decode digest: %w", err)
	}

	sig := ed25519.Sign(priv, digestBytes)
	return &Envelope{
		Algorithm:      AlgorithmEd25519,
		KeyFingerprint: pub.Fingerprint(),
		Digest:         digest,
		Signature:      base64.StdEncoding.EncodeToString(sig),
		SignedAt:       time.Now().UTC(),
	}, nil
}

// Verify checks an envelope against a JSON document and the signer's public
// key. The document may have been re-serialized since signing; only its
// canonical form matters.
func Verify(pub PublicKey, doc []byte, env *Envelope) error {
	if env == nil {
		return errors.New("signature envelope cannot be nil")
	}
	if env.Algorithm != AlgorithmEd25519 {
		return fmt.Errorf("unsupported signature algorithm: %s", env.Algorithm)
	}
	if env.KeyFingerprint != "" && env.KeyFingerprint != pub.Fingerprint() {
		return fmt.Errorf("key fingerprint mismatch: envelope signed by %s", env.KeyFingerprint)
	}

	digest, err := Digest(doc)
	if err != nil {
		return err
	}
	if digest != env.Digest {
		return fmt.Errorf("document digest mismatch: expected %s, computed %s", env.Digest, digest)
	}

	digestBytes, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("failed to decode digest: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature length: expected %d bytes, got %d", ed25519.SignatureSize, len(sig))
	}
	if !pub.Verify(digestBytes, sig) {
		return ErrInvalidSignature
	}
	return nil
}
