package scenario

import "math/rand"

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const tokenLength = 16

// runToken draws a fresh run id from the scenario's PRNG stream, so
// equal-seed runs name their outputs identically.
func runToken(rng *rand.Rand) string {
	b := make([]byte, tokenLength)
	for i := range b {
		b[i] = tokenAlphabet[rng.Intn(len(tokenAlphabet))]
	}
	return string(b)
}
