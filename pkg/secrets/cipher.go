package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the nonce length used for every encryption.
	IVSize = 16
	// TagSize is the GCM authentication tag length.
	TagSize = 16

	// EnvKey names the environment variable holding the hex key.
	EnvKey = "ENCRYPTION_KEY"
)

// EncryptedSecret is the stored form of one secret. Each field is lower-case hex.
type EncryptedSecret struct {
	Ciphertext string `json:"-" db:"encrypted_key"`
	IV         string `json:"-" db:"iv"`
	AuthTag    string `json:"-" db:"auth_tag"`
}

// Cipher seals and opens secrets with AES-256-GCM.
type Cipher struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewCipher creates a cipher from a 64-character hex key.
func NewCipher(hexKey string) (*Cipher, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, &ConfigurationError{Reason: EnvKey + " is not set"}
	}
	if len(hexKey) != KeySize*2 {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("must be %d hex characters, got %d", KeySize*2, len(hexKey)),
		}
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, &ConfigurationError{Reason: "must be hex encoded"}
	}
	defer wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	return &Cipher{aead: aead, random: rand.Reader}, nil
}

// LoadCipherFromEnv creates a cipher from ENCRYPTION_KEY.
func LoadCipherFromEnv() (*Cipher, error) {
	return NewCipher(os.Getenv(EnvKey))
}

// Encrypt seals plaintext under a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (EncryptedSecret, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return EncryptedSecret{}, fmt.Errorf("secrets: failed to generate iv: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - TagSize

	return EncryptedSecret{
		Ciphertext: hex.EncodeToString(sealed[:split]),
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt authenticates and opens a stored secret. Any failure is a *TamperError.
func (c *Cipher) Decrypt(secret EncryptedSecret) (string, error) {
	ciphertext, err := hex.DecodeString(secret.Ciphertext)
	if err != nil {
		return "", &TamperError{Field: "ciphertext", Err: err}
	}
	iv, err := hex.DecodeString(secret.IV)
	if err != nil {
		return "", &TamperError{Field: "iv", Err: err}
	}
	if len(iv) != IVSize {
		return "", &TamperError{Field: "iv"}
	}
	tag, err := hex.DecodeString(secret.AuthTag)
	if err != nil {
		return "", &TamperError{Field: "auth tag", Err: err}
	}
	if len(tag) != TagSize {
		return "", &TamperError{Field: "auth tag"}
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", &TamperError{Err: err}
	}
	if !utf8.Valid(plaintext) {
		wipe(plaintext)
		return "", &TamperError{Field: "plaintext encoding"}
	}

	return string(plaintext), nil
}

// SelfCheck encrypts and decrypts a probe value to confirm the cipher is usable.
func (c *Cipher) SelfCheck() error {
	const probe = "docvault-self-check"
	sealed, err := c.Encrypt(probe)
	if err != nil {
		return err
	}
	got, err := c.Decrypt(sealed)
	if err != nil {
		return err
	}
	if got != probe {
		return &TamperError{Field: "self check"}
	}
	return nil
}

// GenerateKey returns a new random key in the format NewCipher expects.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("secrets: failed to generate key: %w", err)
	}
	defer wipe(key)
	return hex.EncodeToString(key), nil
}

// Mask renders a secret for display, keeping at most the last four characters.
func Mask(secret string) string {
	r := []rune(secret)
	if len(r) <= 8 {
		return strings.Repeat("•", len(r))
	}
	return strings.Repeat("•", 8) + string(r[len(r)-4:])
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
