package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// KeySource supplies the 32 byte AES key used to seal a file.
type KeySource func() ([]byte, error)

// StaticKey returns a KeySource that always yields key.
func StaticKey(key []byte) KeySource {
	return func() ([]byte, error) {
		return key, nil
	}
}

// EncryptedFile is a simple struct able to split file paths into the components to improve readability of code.
// Contents are sealed with AES-GCM and stored base64 encoded.
type EncryptedFile struct {
	Dirname  string
	FileName string
	FullPath string
	key      KeySource
	mu       sync.Mutex
}

func NewEncryptedFileWithDir(dirName string, filename string, key KeySource) *EncryptedFile {
	return &EncryptedFile{
		Dirname:  dirName,
		FileName: filename,
		FullPath: filepath.Join(dirName, filename),
		key:      key,
	}
}

func (f *EncryptedFile) Set(text []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, err := f.key()
	if err != nil {
		return err
	}
	sealedBytes, err := Encrypt(text, key)
	if err != nil {
		return err
	}
	b64 := base64.StdEncoding.EncodeToString(sealedBytes)
	if err := makeDir(f.Dirname); err != nil { // if we could not create the config directory...
		return err
	}
	if err = os.WriteFile(f.FullPath, []byte(b64), 0600); err != nil {
		return errors.Wrapf(err, "error writing config file %q", f.FullPath)
	}
	return nil
}

func (f *EncryptedFile) Get() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !fileExists(f.FullPath) { // if the file does not exist...
		return nil, FileNotFoundError{f.FullPath}
	}
	b64, err := os.ReadFile(f.FullPath)
	if err != nil {
		return nil, err
	}
	cipherText, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b64)))
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding config file %q", f.FullPath)
	}
	key, err := f.key()
	if err != nil {
		return nil, err
	}
	b, err := Decrypt(cipherText, key)
	if err != nil {
		return nil, errors.Wrapf(err, "error decrypting config file %q", f.FullPath)
	}
	return b, nil
}

// Encrypt seals text with AES-GCM using key and returns nonce|ciphertext.
func Encrypt(text []byte, key []byte) ([]byte, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}
	// The nonce must be unique for all time for a given key.
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, text, nil), nil
}

// Decrypt opens nonce|ciphertext produced by Encrypt.
func Decrypt(text []byte, key []byte) ([]byte, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(text) < nonceSize {
		return nil, fmt.Errorf("encrypted text is too short")
	}
	nonce, cipherText := text[:nonceSize], text[nonceSize:]
	return gcm.Open(nil, nonce, cipherText, nil)
}
