// Package crypto implements the symmetric message codec: AES-256-CBC with
// a random per-call IV, keyed by an scrypt derivation of the deployment
// secret.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/scrypt"
)

const (
	keySize = 32
	ivSize  = aes.BlockSize

	// scrypt cost parameters. N is deliberately interactive-login slow so a
	// leaked envelope store cannot be brute-forced cheaply.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// DecryptionError reports a malformed envelope, wrong secret, or corrupted
// ciphertext. Callers must treat it as a routing concern, not a crash.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed: %s: %v", e.Reason, e.Err)
	}
	return "decryption failed: " + e.Reason
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// IsDecryptionError reports whether err is a codec decryption failure.
func IsDecryptionError(err error) bool {
	var de *DecryptionError
	return errors.As(err, &de)
}

// Envelope is the encrypted-content unit embedded in a message at rest.
// IV and ciphertext are hex-encoded; the whole envelope travels as
// base64-encoded JSON.
type Envelope struct {
	IV        string `json:"iv"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"`
}

// Codec encrypts and decrypts message payloads with a key derived once
// from the shared deployment secret. It is safe for concurrent use.
type Codec struct {
	key []byte
}

// NewCodec derives the cipher key from secret and salt. The salt is a
// fixed per-deployment configuration value, not per-message.
func NewCodec(secret, salt string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("crypto: empty secret")
	}
	key, err := scrypt.Key([]byte(secret), []byte(salt), scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("crypto: key derivation: %w", err)
	}
	return &Codec{key: key}, nil
}

// Encrypt seals plaintext into a base64 envelope. A fresh random IV is
// generated on every call, so equal plaintexts produce distinct envelopes.
func (c *Codec) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("crypto: iv generation: %w", err)
	}

	padded := pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	env := Envelope{
		IV:        hex.EncodeToString(iv),
		Content:   hex.EncodeToString(ciphertext),
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decrypt opens a base64 envelope produced by Encrypt. Every failure mode
// surfaces as a *DecryptionError; garbage is never returned silently.
func (c *Codec) Decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecryptionError{Reason: "invalid base64", Err: err}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecryptionError{Reason: "malformed envelope", Err: err}
	}

	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != ivSize {
		return nil, &DecryptionError{Reason: "invalid iv"}
	}
	ciphertext, err := hex.DecodeString(env.Content)
	if err != nil {
		return nil, &DecryptionError{Reason: "invalid ciphertext encoding", Err: err}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &DecryptionError{Reason: "ciphertext not block-aligned"}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext)
	if err != nil {
		// Bad padding almost always means a wrong secret or tampering.
		return nil, &DecryptionError{Reason: "wrong secret or corrupt ciphertext", Err: err}
	}
	return unpadded, nil
}

// pad applies PKCS#7 padding up to the AES block size.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpad strips and validates PKCS#7 padding.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("invalid padding length")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return b[:len(b)-n], nil
}
