// Package crypto encrypts credential secrets at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"OAuthDropins/internal/conf"
)

var (
	// ErrInvalidKeySize 密钥长度无效错误
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes (256 bits)")
	// ErrInvalidCiphertext 密文格式无效错误
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or malformed")
	// ErrDecryptionFailed 解密失败错误（密钥错误、密文被篡改或关联数据不匹配）
	ErrDecryptionFailed = errors.New("decryption failed: authentication failed")
)

// AESCrypto AES-256-GCM 加密服务
// Ciphertexts are bound to associated data (the owning row id) so a value
// copied onto another row fails to decrypt.
type AESCrypto struct {
	aead cipher.AEAD
}

// NewAESCrypto 创建 AES 加密服务，key 必须为 32 字节
func NewAESCrypto(key []byte) (*AESCrypto, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESCrypto{aead: aead}, nil
}

// NewAESCryptoFromConfig builds the service from auth.encryption.key.
func NewAESCryptoFromConfig(c *conf.Auth) (*AESCrypto, error) {
	if c == nil || c.Encryption == nil {
		return nil, fmt.Errorf("%w: encryption config missing", ErrInvalidKeySize)
	}
	return NewAESCrypto([]byte(c.Encryption.Key))
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext || tag).
// An empty plaintext stays empty.
func (a *AESCrypto) Encrypt(plaintext, associatedData string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := a.aead.Seal(nonce, nonce, []byte(plaintext), []byte(associatedData))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. associatedData must match the value used to encrypt.
func (a *AESCrypto) Decrypt(ciphertext, associatedData string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	nonceSize := a.aead.NonceSize()
	if len(decoded) < nonceSize+a.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := decoded[:nonceSize], decoded[nonceSize:]
	plaintext, err := a.aead.Open(nil, nonce, sealed, []byte(associatedData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}
