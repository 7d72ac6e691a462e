package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyManager handles Ed25519 keypair generation, storage, and loading.
// Keys are stored in plaintext hex format in the operator's config directory.
//
// Security model:
//   - Private key stored with 0600 permissions (owner read/write only)
//   - Public key stored with 0644 permissions (owner rw, others read)
//   - Keys auto-generated on first signing use
type KeyManager struct {
	keysDir    string
	privateKey ed25519.PrivateKey
	publicKey  PublicKey
}

const (
	// DefaultKeysDir is the default key directory relative to the user config dir
	DefaultKeysDir = "fairtool/keys"

	// PrivateKeyFilename is the filename for the private key
	PrivateKeyFilename = "private.key"

	// PublicKeyFilename is the filename for the public key
	PublicKeyFilename = "public.key"

	privateKeyPerm = 0600
	publicKeyPerm  = 0644
)

// NewKeyManager creates a KeyManager rooted at keysDir. An empty keysDir
// selects the default location under the user config directory. Keys are
// not loaded until EnsureKeysExist is called.
func NewKeyManager(keysDir string) (*KeyManager, error) {
	if keysDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user config dir: %w", err)
		}
		keysDir = filepath.Join(configDir, DefaultKeysDir)
	}
	return &KeyManager{keysDir: filepath.Clean(keysDir)}, nil
}

// EnsureKeysExist loads the keypair from disk, generating and saving a fresh
// one if none exists yet.
func (km *KeyManager) EnsureKeysExist() error {
	privPath := filepath.Join(km.keysDir, PrivateKeyFilename)
	if _, err := os.Stat(privPath); err == nil {
		return km.load()
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	if err := os.MkdirAll(km.keysDir, 0700); err != nil {
		return fmt.Errorf("failed to create keys directory: %w", err)
	}
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(priv)), privateKeyPerm); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	pubPath := filepath.Join(km.keysDir, PublicKeyFilename)
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)), publicKeyPerm); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	km.privateKey = priv
	km.publicKey, err = NewPublicKey(pub)
	return err
}

// load reads both key files from disk.
func (km *KeyManager) load() error {
	privHex, err := os.ReadFile(filepath.Join(km.keysDir, PrivateKeyFilename))
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}
	priv, err := hex.DecodeString(strings.TrimSpace(string(privHex)))
	if err != nil {
		return fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: private key must be %d bytes, got %d",
			ErrInvalidKeyLength, ed25519.PrivateKeySize, len(priv))
	}

	pubHex, err := os.ReadFile(filepath.Join(km.keysDir, PublicKeyFilename))
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}
	pub, err := ParsePublicKey(strings.TrimSpace(string(pubHex)))
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	km.privateKey = priv
	km.publicKey = pub
	return nil
}

// PrivateKey returns the loaded private key.
func (km *KeyManager) PrivateKey() ed25519.PrivateKey { return km.privateKey }

// PublicKey returns the loaded public key.
func (km *KeyManager) PublicKey() PublicKey { return km.publicKey }

// KeysDir returns the directory holding the key files.
func (km *KeyManager) KeysDir() string { return km.keysDir }
