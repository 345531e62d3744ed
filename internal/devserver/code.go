package devserver

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a random code of length decimal digits.
func GenerateNumericCode(length int) (string, error) {
	const digits = "0123456789"

	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	code := make([]byte, length)
	max := big.NewInt(int64(len(digits)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate digit: %w", err)
		}
		code[i] = digits[n.Int64()]
	}

	return string(code), nil
}
