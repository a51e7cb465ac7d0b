// internal/bank/pin.go
package bank

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// hashPIN generates a salted Argon2id digest of the PIN. PINs are never
// stored or logged in the clear.
func hashPIN(pin string) (string, string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}

	digest := argon2.IDKey([]byte(pin), salt, 1, 64*1024, 4, 32)

	encodedDigest := base64.StdEncoding.EncodeToString(digest)
	encodedSalt := base64.StdEncoding.EncodeToString(salt)

	return encodedDigest, encodedSalt, nil
}

// verifyPIN compares a PIN with a salted digest in constant time.
func verifyPIN(pin, salt, digest string) (bool, error) {
	decodedSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	decodedDigest, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return false, fmt.Errorf("failed to decode digest: %w", err)
	}

	comparison := argon2.IDKey([]byte(pin), decodedSalt, 1, 64*1024, 4, 32)

	return subtle.ConstantTimeCompare(decodedDigest, comparison) == 1, nil
}
