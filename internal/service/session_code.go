package service

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	sessionCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	sessionCodeLength   = 6
	// maxCodeAttempts bounds regeneration when a code collides with a live one
	maxCodeAttempts = 10
)

// CodeGenerator produces candidate session codes
type CodeGenerator func() (string, error)

// RandomSessionCode samples 6 characters uniformly from uppercase base-36
func RandomSessionCode() (string, error) {
	max := big.NewInt(int64(len(sessionCodeAlphabet)))
	var sb strings.Builder
	sb.Grow(sessionCodeLength)
	for i := 0; i < sessionCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(sessionCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// IsValidSessionCode reports whether code has the shape of a generated code
func IsValidSessionCode(code string) bool {
	if len(code) != sessionCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(sessionCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
