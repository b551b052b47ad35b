package accounts

import (
	"crypto/rand"
	"math/big"
)

const LoginCodeLength = 9

// CodeSource yields candidate login codes.
type CodeSource func() (string, error)

var ten = big.NewInt(10)

// RandomLoginCode returns LoginCodeLength uniformly random decimal digits.
func RandomLoginCode() (string, error) {
	buf := make([]byte, LoginCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

func validLoginCode(code string) bool {
	if len(code) != LoginCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
