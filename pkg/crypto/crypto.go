package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

// Reader is the entropy source for every token. Tests may swap it.
var Reader io.Reader = rand.Reader

// RandomHex returns n random bytes encoded as 2n lowercase hex characters.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("crypto: token length must be positive")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// InviteToken returns a 16-character hex couple invite token.
func InviteToken() (string, error) {
	return RandomHex(8)
}

// RefreshToken returns a 64-character hex session refresh token.
func RefreshToken() (string, error) {
	return RandomHex(32)
}
