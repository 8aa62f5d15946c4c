package utils

import (
	"errors"
	"testing"
)

func TestAPIKeyCipherRoundTrip(t *testing.T) {
	cipher, err := NewAPIKeyCipher("server-secret")
	if err != nil {
		t.Fatalf("NewAPIKeyCipher: %v", err)
	}

	plaintext := "sk-1234567890abcdef"
	encrypted, err := cipher.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted == plaintext {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := cipher.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != plaintext {
		t.Fatalf("Decrypt = %q, want %q", decrypted, plaintext)
	}
}

func TestAPIKeyCipherNonceUniqueness(t *testing.T) {
	cipher, _ := NewAPIKeyCipher("server-secret")

	a, _ := cipher.Encrypt("sk-same")
	b, _ := cipher.Encrypt("sk-same")
	if a == b {
		t.Fatal("same plaintext produced identical ciphertext")
	}
}

func TestAPIKeyCipherDecryptErrors(t *testing.T) {
	cipher, _ := NewAPIKeyCipher("server-secret")

	for name, input := range map[string]string{
		"not base64":     "%%%not-base64%%%",
		"too short":      "QUJD", // 解码后短于 nonce
		"tampered bytes": mustTamper(t, cipher),
	} {
		if _, err := cipher.Decrypt(input); !errors.Is(err, ErrCipherText) {
			t.Fatalf("%s: err = %v, want ErrCipherText", name, err)
		}
	}
}

func TestAPIKeyCipherWrongSecret(t *testing.T) {
	cipherA, _ := NewAPIKeyCipher("secret-a")
	cipherB, _ := NewAPIKeyCipher("secret-b")

	encrypted, _ := cipherA.Encrypt("sk-test")
	if _, err := cipherB.Decrypt(encrypted); !errors.Is(err, ErrCipherText) {
		t.Fatalf("err = %v, want ErrCipherText", err)
	}
}

func TestNewAPIKeyCipherEmptySecret(t *testing.T) {
	if _, err := NewAPIKeyCipher(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

// mustTamper 生成一段末位被篡改的合法密文
func mustTamper(t *testing.T, cipher *APIKeyCipher) string {
	t.Helper()
	encrypted, err := cipher.Encrypt("sk-test")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw := []byte(encrypted)
	if raw[len(raw)-2] == 'A' {
		raw[len(raw)-2] = 'B'
	} else {
		raw[len(raw)-2] = 'A'
	}
	return string(raw)
}
