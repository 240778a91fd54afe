package utils

import (
    "crypto/rand"
    "math/big"
)

// PickupCodeAlphabet is the character set for pickup codes: digits only,
// with 0 and 1 excluded because they read as O and l on printed slips.
const PickupCodeAlphabet = "23456789"

// CodeSource yields indexes into the pickup code alphabet.  The default
// implementation draws from crypto/rand; tests substitute a seeded
// source to make generated codes deterministic.
type CodeSource interface {
    // Intn returns a uniform value in [0, n).
    Intn(n int) int
}

type cryptoSource struct{}

func (cryptoSource) Intn(n int) int {
    v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
    if err != nil {
        // crypto/rand failing means the platform RNG is broken; there is
        // no reasonable fallback for code generation.
        panic(err)
    }
    return int(v.Int64())
}

// CryptoCodeSource returns the production CodeSource backed by crypto/rand.
func CryptoCodeSource() CodeSource { return cryptoSource{} }

// GeneratePickupCode builds a code of length n from PickupCodeAlphabet
// using the provided source.
func GeneratePickupCode(src CodeSource, n int) string {
    b := make([]byte, n)
    for i := range b {
        b[i] = PickupCodeAlphabet[src.Intn(len(PickupCodeAlphabet))]
    }
    return string(b)
}
