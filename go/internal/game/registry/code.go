package registry

import (
	"crypto/rand"
	"math/big"
)

const (
	// CodeLength is the length of a shareable game code.
	CodeLength = 6
	codeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeGenerator produces candidate game codes.
type CodeGenerator func() (string, error)

// GenerateCode returns a random uppercase alphanumeric code from crypto/rand.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	limit := big.NewInt(int64(len(codeChars)))
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		code[i] = codeChars[n.Int64()]
	}
	return string(code), nil
}
