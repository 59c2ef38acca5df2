package obfuscate

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	aesSaltLen    = 16
	aesIVLen      = 16
	aesKeyLen     = 16
	pbkdf2Rounds  = 1000
	aesBlockBytes = 16
)

// AESDecrypt reverses AESEncrypt: b64 decodes to salt(16) || iv(16) ||
// ciphertext, a key is derived from phrase with PBKDF2-HMAC-SHA1 over
// salt, and the ciphertext is AES-128-CBC decrypted and PKCS7-unpadded.
// Malformed framing or padding is a hard error.
func AESDecrypt(b64 string, phrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("obfuscate: aes decrypt: base64: %w", err)
	}
	if len(raw) < aesSaltLen+aesIVLen+aesBlockBytes {
		return "", fmt.Errorf("obfuscate: aes decrypt: ciphertext too short (%d bytes)", len(raw))
	}

	salt := raw[:aesSaltLen]
	iv := raw[aesSaltLen : aesSaltLen+aesIVLen]
	ct := raw[aesSaltLen+aesIVLen:]

	if len(ct)%aesBlockBytes != 0 {
		return "", fmt.Errorf("obfuscate: aes decrypt: ciphertext not block-aligned (%d bytes)", len(ct))
	}

	key := pbkdf2.Key([]byte(phrase), salt, pbkdf2Rounds, aesKeyLen, sha1.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("obfuscate: aes decrypt: %w", err)
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	unpadded, err := pkcs7Unpad(pt, aesBlockBytes)
	if err != nil {
		return "", fmt.Errorf("obfuscate: aes decrypt: %w", err)
	}

	return string(unpadded), nil
}

// AESEncrypt is the inverse of AESDecrypt: a fresh random salt and iv are
// generated, a key is derived with PBKDF2-HMAC-SHA1, and the PKCS7-padded
// plaintext is AES-128-CBC encrypted. Output is salt(16) || iv(16) ||
// ciphertext, base64-encoded.
func AESEncrypt(plaintext string, phrase string) (string, error) {
	salt := make([]byte, aesSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("obfuscate: aes encrypt: salt: %w", err)
	}
	iv := make([]byte, aesIVLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("obfuscate: aes encrypt: iv: %w", err)
	}

	key := pbkdf2.Key([]byte(phrase), salt, pbkdf2Rounds, aesKeyLen, sha1.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("obfuscate: aes encrypt: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aesBlockBytes)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	out := make([]byte, 0, aesSaltLen+aesIVLen+len(ct))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ct...)

	return base64.StdEncoding.EncodeToString(out), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, fmt.Errorf("pkcs7 unpad: invalid length %d", n)
	}

	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, fmt.Errorf("pkcs7 unpad: invalid padding length %d", padLen)
	}

	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("pkcs7 unpad: corrupt padding bytes")
		}
	}

	return data[:n-padLen], nil
}
