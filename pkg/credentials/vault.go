// Package credentials encrypts integration secrets at rest and hands them out decrypted.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const keyHexLength = 64

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Vault encrypts single values with AES-256-GCM. Encrypted values have the form hex(nonce):hex(ciphertext).
type Vault struct {
	aead cipher.AEAD

	// Generated is set when no key was configured and a random per-process key is in use.
	Generated bool
}

// NewVault builds a vault from a hex key. Shorter keys are right padded with zeros and longer
// keys are truncated to 32 bytes. An empty key generates a random one, so values encrypted by
// a previous process can no longer be read.
func NewVault(hexKey string) (*Vault, error) {
	generated := false

	if hexKey == "" {
		random := make([]byte, keyHexLength/2)
		if _, err := rand.Read(random); err != nil {
			return nil, fmt.Errorf("generate encryption key: %w", err)
		}

		hexKey = hex.EncodeToString(random)
		generated = true
	}

	if len(hexKey) < keyHexLength {
		hexKey += strings.Repeat("0", keyHexLength-len(hexKey))
	}

	key, err := hex.DecodeString(hexKey[:keyHexLength])
	if err != nil {
		return nil, fmt.Errorf("encryption key must be hex encoded: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	return &Vault{aead: aead, Generated: generated}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

func (v *Vault) Decrypt(value string) (string, error) {
	nonceHex, sealedHex, ok := strings.Cut(value, ":")
	if !ok {
		return "", fmt.Errorf("value is not in nonce:ciphertext form")
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}

	if len(nonce) != v.aead.NonceSize() {
		return "", ErrCiphertextTooShort
	}

	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}

// DecryptOrKeep returns the plaintext of an encrypted value. Values that are not encrypted,
// or that fail to decrypt, come back unchanged.
func (v *Vault) DecryptOrKeep(value string) string {
	if !strings.Contains(value, ":") {
		return value
	}

	plaintext, err := v.Decrypt(value)
	if err != nil {
		return value
	}

	return plaintext
}
