package shuffle

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
)

// SamplePermutation draws a uniform permutation of [0, n) by Fisher-Yates
// over a cryptographic source. A nil reader falls back to crypto/rand.
func SamplePermutation(rng io.Reader, n int) ([]int, error) {
	if rng == nil {
		rng = rand.Reader
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rng, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("shuffle: sample permutation: %w", err)
		}
		k := int(j.Int64())
		perm[i], perm[k] = perm[k], perm[i]
	}
	return perm, nil
}

// SampleRandomness draws the n rerandomization scalars for one shuffle turn.
func SampleRandomness(rng io.Reader, n int) ([]*big.Int, error) {
	out := make([]*big.Int, n)
	for i := range out {
		r, err := babyjub.SampleScalar(rng)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
