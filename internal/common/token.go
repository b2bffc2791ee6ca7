package common

import (
	"crypto/rand"
	"math/big"
)

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewToken generates a random base62 token of the given length using
// crypto/rand. Tokens are used as unguessable download capabilities, so a
// failing entropy source is a hard error.
func NewToken(length int) (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
