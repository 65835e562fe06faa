// Package accountnum generates the 10-digit account numbers users transfer to.
// Nine random digits plus a Luhn check digit, so support staff can spot typos
// before a lookup ever hits the directory.
package accountnum

import (
	"crypto/rand"
	"math/big"
)

const length = 10

func Generate() (string, error) {
	digits := make([]byte, length)
	for i := 0; i < length-1; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	// first digit must not be zero
	if digits[0] == '0' {
		digits[0] = '9'
	}
	digits[length-1] = byte('0' + luhnCheckDigit(string(digits[:length-1])))
	return string(digits), nil
}

// Valid reports whether s is a well-formed account number.
func Valid(s string) bool {
	if len(s) != length || s[0] == '0' {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return luhnCheckDigit(s[:length-1]) == int(s[length-1]-'0')
}

func luhnCheckDigit(s string) int {
	sum := 0
	double := true
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}
