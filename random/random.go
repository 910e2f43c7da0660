// Package random mints short alphanumeric strings, such as the suffix of an
// order number or an activation token.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
	"time"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func init() {
	// Seed the fast generator from the OS entropy pool; clock time is the
	// fallback when that read fails.
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		mrand.Seed(time.Now().UnixNano())
		return
	}
	mrand.Seed(int64(binary.LittleEndian.Uint64(b[:])))
}

// String returns length alphanumeric characters. Fast, not suitable for
// secrets; use StringSecure for those.
func String(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[mrand.Intn(len(alphabet))]
	}
	return string(b)
}

// StringSecure returns length alphanumeric characters drawn from crypto/rand.
func StringSecure(length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := crand.Int(crand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
