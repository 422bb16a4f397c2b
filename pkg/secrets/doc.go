// Package secrets provides envelope encryption for per-user credentials such as
// AI provider API keys.
//
// # Overview
//
// A Cipher holds one 256-bit key, supplied as a 64-character hex string, and
// turns plaintext secrets into an EncryptedSecret: a ciphertext, a 16-byte IV
// and a 16-byte GCM authentication tag. All three are hex encoded and map to
// the encrypted_key, iv and auth_tag columns of the ai_api_keys table.
//
//	cipher, err := secrets.NewCipher(os.Getenv("ENCRYPTION_KEY"))
//	if err != nil {
//		log.Fatal(err) // *ConfigurationError
//	}
//
//	sealed, err := cipher.Encrypt("sk-test-123")
//	plain, err := cipher.Decrypt(sealed)
//
// # Compatibility
//
// Rows written by earlier deployments use AES-256-GCM with a 16-byte IV and a
// detached 16-byte tag. The cipher is built with a 16-byte nonce so those rows
// stay decryptable; do not switch to the 12-byte GCM default.
//
// # Errors
//
// NewCipher returns *ConfigurationError for a missing or malformed key.
// Decrypt returns *TamperError whenever the payload cannot be authenticated,
// including malformed hex and wrong IV or tag lengths. No plaintext is
// returned alongside an error.
//
// # Thread Safety
//
// A Cipher is immutable after construction and safe for concurrent use.
package secrets
