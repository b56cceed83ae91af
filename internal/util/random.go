package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateRandomBytes returns length bytes from the OS CSPRNG.
func GenerateRandomBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return bytes, nil
}

// GenerateRandomString returns a hex string encoding length random bytes,
// so the result is 2*length characters long.
func GenerateRandomString(length int) (string, error) {
	bytes, err := GenerateRandomBytes(length)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
