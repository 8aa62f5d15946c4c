// Package utils 提供通用工具函数
package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

var ErrCipherText = errors.New("invalid ciphertext")

// APIKeyCipher 使用 AES-256-GCM 对用户 API Key 做落库加密。
// 密钥由服务端配置的 secret 经 SHA-256 派生。
type APIKeyCipher struct {
	aead cipher.AEAD
}

// NewAPIKeyCipher 创建 API Key 加密器
func NewAPIKeyCipher(secret string) (*APIKeyCipher, error) {
	if secret == "" {
		return nil, errors.New("api key cipher secret is empty")
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &APIKeyCipher{aead: aead}, nil
}

// Encrypt 加密明文，返回 base64(nonce || ciphertext)
func (c *APIKeyCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密 Encrypt 的输出
func (c *APIKeyCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCipherText
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrCipherText
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", ErrCipherText
	}
	return string(plaintext), nil
}
