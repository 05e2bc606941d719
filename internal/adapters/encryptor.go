package adapters

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/crypto/nacl/secretbox"

	"choco-cli/internal/ports"
)

const (
	keySize   = 32
	nonceSize = 24
)

// SecretboxEncryptor protects remembered arguments at rest with a key file
// created on first use.
type SecretboxEncryptor struct {
	keyPath string
	once    sync.Once
	key     [keySize]byte
	keyErr  error
}

func NewSecretboxEncryptor(keyPath string) *SecretboxEncryptor {
	return &SecretboxEncryptor{keyPath: keyPath}
}

func (e *SecretboxEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := e.loadKey()
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to generate nonce").
			WithCause(err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *SecretboxEncryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	key, err := e.loadKey()
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("encrypted value is malformed")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("failed to decrypt value with the local key")
	}
	return string(plain), nil
}

func (e *SecretboxEncryptor) loadKey() (*[keySize]byte, error) {
	e.once.Do(func() {
		data, err := os.ReadFile(e.keyPath)
		if err == nil && len(data) == keySize {
			copy(e.key[:], data)
			return
		}
		if _, err := io.ReadFull(rand.Reader, e.key[:]); err != nil {
			e.keyErr = err
			return
		}
		if err := os.MkdirAll(filepath.Dir(e.keyPath), 0o700); err != nil {
			e.keyErr = err
			return
		}
		e.keyErr = os.WriteFile(e.keyPath, e.key[:], 0o600)
	})
	if e.keyErr != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to load encryption key").
			WithCause(e.keyErr)
	}
	return &e.key, nil
}

var _ ports.EncryptorPort = (*SecretboxEncryptor)(nil)
