package config

import (
	"encoding/base64"

	"github.com/pkg/errors"
)

// CredentialProvider turns plaintext passwords into opaque blobs and back.
// Callers only hold plaintext long enough to build a connection string.
type CredentialProvider interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(opaque string) (string, error)
}

// LocalKeyProvider is a CredentialProvider that uses AES-GCM keyed from a locally-stored Secret.
// It behaves the same on every OS.
type LocalKeyProvider struct {
	key KeySource
}

// NewLocalKeyProvider derives the credential key from secret.
func NewLocalKeyProvider(secret *Secret) *LocalKeyProvider {
	return &LocalKeyProvider{key: func() ([]byte, error) {
		return secret.DeriveKey(purposeCredStore)
	}}
}

// NewLocalKeyProviderWithKey uses a fixed 32 byte key.
func NewLocalKeyProviderWithKey(key []byte) *LocalKeyProvider {
	return &LocalKeyProvider{key: StaticKey(key)}
}

// Encrypt returns base64(nonce|ciphertext). Empty input stays empty.
func (p *LocalKeyProvider) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := p.key()
	if err != nil {
		return "", err
	}
	b, err := Encrypt([]byte(plaintext), key)
	if err != nil {
		return "", errors.Wrap(err, "error encrypting credential")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decrypt reverses Encrypt. Tampered or foreign blobs fail.
func (p *LocalKeyProvider) Decrypt(opaque string) (string, error) {
	if opaque == "" {
		return "", nil
	}
	key, err := p.key()
	if err != nil {
		return "", err
	}
	b, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return "", errors.Wrap(err, "error decoding credential")
	}
	plain, err := Decrypt(b, key)
	if err != nil {
		return "", errors.Wrap(err, "error decrypting credential")
	}
	return string(plain), nil
}
