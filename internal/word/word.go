// Package word handles guess canonicalization and solution hashing for the
// daily puzzle. A solution is committed as keccak256 of its uppercase UTF-8
// bytes, so any client that uppercases and hashes the same way can verify a
// word off-ledger.
package word

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
)

// Length is the number of bytes in every guess and solution.
const Length = 5

var ErrInvalidGuessLength = chain.NewError("invalid_guess_length", "word: guess must be 5 letters")

// Canonicalize validates a guess's length and uppercases its ASCII letters.
// Other bytes pass through unchanged, so the byte length is preserved.
func Canonicalize(guess string) (string, error) {
	if len(guess) != Length {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidGuessLength, len(guess))
	}
	b := []byte(guess)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b), nil
}

// Hash returns the commitment for a canonical word.
func Hash(canonical string) common.Hash {
	return crypto.Keccak256Hash([]byte(canonical))
}
