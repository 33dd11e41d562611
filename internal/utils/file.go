package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// FileHash calculates the SHA-256 hash of a file's content.
func FileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ContentHash calculates the SHA-256 hash of a byte slice.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
