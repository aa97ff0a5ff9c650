package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// deriveKey hashes a passphrase into an AES-128 key: the first 16 bytes of
// its SHA-256 digest.
func deriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:aes.BlockSize]
}

// encryptCBC encrypts plaintext with AES-CBC under a zero IV and PKCS#7
// padding. The zero IV is part of the license format.
func encryptCBC(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// hmacHex returns the lowercase hex HMAC-SHA256 of message.
func hmacHex(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// sealHex returns hex(AES-128-CBC(SHA-256(message))) under the passphrase.
func sealHex(passphrase, message string) (string, error) {
	sum := sha256.Sum256([]byte(message))
	ct, err := encryptCBC(deriveKey(passphrase), sum[:])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ct), nil
}

// SecureCompare performs constant-time comparison to prevent timing attacks
func SecureCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
