package impl

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const opaqueTokenBytes = 32

// GenerateOpaqueToken returns a random token for email links and the hash
// that gets persisted. Only the hash is ever stored.
func GenerateOpaqueToken() (plaintext, hash string, err error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashOpaqueToken(plaintext), nil
}

func HashOpaqueToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
