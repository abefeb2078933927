package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	SecretFileName   = "secret.key"
	secretLength     = 32
	purposeConfig    = "dbcop config file v1"
	purposeCredStore = "dbcop credentials v1"
)

// Secret is the locally-stored random key material that all encryption keys are derived from.
// The file is created lazily on first use with mode 0600.
type Secret struct {
	FullPath string
	once     sync.Once
	material []byte
	err      error
}

// NewSecret returns a Secret backed by the file at fullPath.
func NewSecret(fullPath string) *Secret {
	return &Secret{FullPath: fullPath}
}

// NewSecretInConfigHomeDir returns the Secret stored in the dbcop home directory.
func NewSecretInConfigHomeDir() *Secret {
	return NewSecret(filepath.Join(mustGetConfigHomeDir(), SecretFileName))
}

// DeriveKey returns a 32 byte key for the given purpose.
// Different purposes yield independent keys from the same secret.
func (s *Secret) DeriveKey(purpose string) ([]byte, error) {
	s.once.Do(func() {
		s.material, s.err = loadOrCreateSecret(s.FullPath)
	})
	if s.err != nil {
		return nil, s.err
	}
	key := make([]byte, secretLength)
	r := hkdf.New(sha256.New, s.material, nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Wrap(err, "error deriving key")
	}
	return key, nil
}

func loadOrCreateSecret(fullPath string) ([]byte, error) {
	if fileExists(fullPath) { // if we have a secret already...
		b, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading secret %q", fullPath)
		}
		material, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding secret %q", fullPath)
		}
		if len(material) < secretLength {
			return nil, errors.Errorf("secret %q is too short", fullPath)
		}
		return material, nil
	}
	// Create a new secret.
	material := make([]byte, secretLength)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, errors.Wrap(err, "error generating secret")
	}
	if err := makeDir(filepath.Dir(fullPath)); err != nil {
		return nil, err
	}
	b64 := base64.StdEncoding.EncodeToString(material)
	if err := os.WriteFile(fullPath, []byte(b64), 0600); err != nil {
		return nil, errors.Wrapf(err, "error writing secret %q", fullPath)
	}
	return material, nil
}
