package auth

import (
	"crypto/sha256"
	"encoding/base64"
)

// Obfuscate is the secret-matching transform applied to a presented key
// before comparison with the configured master key. Operators mint the
// stored value with the same transform (the -genkey flag on the binary).
func Obfuscate(key string) string {
	sum := sha256.Sum256([]byte(key))
	return base64.StdEncoding.EncodeToString(sum[:])
}
