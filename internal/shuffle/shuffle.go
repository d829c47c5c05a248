// Package shuffle builds the plaintext witnesses handed to the external
// Groth16 prover: the permute+rerandomize transform for a shuffle turn and
// the per-card decryption relation for a deal. The transforms here must match
// the circuits bit-exactly; the state machine recomputes the same public
// signals when it verifies a submission.
package shuffle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
	"github.com/Manta-Network/zkShuffle/internal/groth16"
)

// ErrInvalidPermutation rejects a malformed permutation before any proving
// work starts; matched with errors.Is.
var ErrInvalidPermutation = errors.New("shuffle: invalid permutation")

// Witness is the full private+public input of the shuffle circuit.
type Witness struct {
	Perm  []int
	Rand  []*big.Int
	AggPk babyjub.Point

	// Decompressed input deck.
	UX0, UY0, UX1, UY1 []babyjub.Element
	// Decompressed output deck.
	VX0, VY0, VX1, VY1 []babyjub.Element

	Signals groth16.ShuffleSignals
}

// ValidatePermutation checks that perm is a permutation of [0, n).
func ValidatePermutation(perm []int, n int) error {
	if len(perm) != n {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidPermutation, len(perm), n)
	}
	seen := make([]bool, n)
	for _, v := range perm {
		if v < 0 || v >= n {
			return fmt.Errorf("%w: entry %d out of range", ErrInvalidPermutation, v)
		}
		if seen[v] {
			return fmt.Errorf("%w: entry %d repeated", ErrInvalidPermutation, v)
		}
		seen[v] = true
	}
	return nil
}

// Build decompresses deckIn, applies the permutation and rerandomization
//
//	V[j] = (U_c0[A[j]] + r_j*G, U_c1[A[j]] + r_j*pk)
//
// and recompresses, returning the output deck together with the prover
// witness and the public signals the verifier will see.
func Build(deckIn deck.Compressed, perm []int, rands []*big.Int, aggPk babyjub.Point, nonce babyjub.Element) (deck.Compressed, *Witness, error) {
	n := deckIn.Size()
	if err := ValidatePermutation(perm, n); err != nil {
		return deck.Compressed{}, nil, err
	}
	if len(rands) != n {
		return deck.Compressed{}, nil, fmt.Errorf("shuffle: randomness length %d, want %d", len(rands), n)
	}
	for j, r := range rands {
		if err := babyjub.ValidateScalar(r); err != nil {
			return deck.Compressed{}, nil, fmt.Errorf("shuffle: randomness %d: %w", j, err)
		}
	}
	if !babyjub.OnCurve(aggPk) {
		return deck.Compressed{}, nil, fmt.Errorf("shuffle: aggregated key not on curve")
	}

	in, err := deckIn.Decompress()
	if err != nil {
		return deck.Compressed{}, nil, err
	}

	w := &Witness{
		Perm:  append([]int(nil), perm...),
		Rand:  append([]*big.Int(nil), rands...),
		AggPk: aggPk,
		UX0:   make([]babyjub.Element, n),
		UY0:   make([]babyjub.Element, n),
		UX1:   make([]babyjub.Element, n),
		UY1:   make([]babyjub.Element, n),
		VX0:   make([]babyjub.Element, n),
		VY0:   make([]babyjub.Element, n),
		VX1:   make([]babyjub.Element, n),
		VY1:   make([]babyjub.Element, n),
	}
	for i, ct := range in {
		w.UX0[i] = ct.C0.X
		w.UY0[i] = ct.C0.Y
		w.UX1[i] = ct.C1.X
		w.UY1[i] = ct.C1.Y
	}

	out := make([]babyjub.Ciphertext, n)
	for j := 0; j < n; j++ {
		src := in[perm[j]]
		ct, err := babyjub.Rerandomize(aggPk, src, rands[j])
		if err != nil {
			return deck.Compressed{}, nil, fmt.Errorf("shuffle: slot %d: %w", j, err)
		}
		out[j] = ct
		w.VX0[j] = ct.C0.X
		w.VY0[j] = ct.C0.Y
		w.VX1[j] = ct.C1.X
		w.VY1[j] = ct.C1.Y
	}

	deckOut := deck.Compress(out)
	w.Signals = Signals(nonce, aggPk, deckIn, deckOut)
	return deckOut, w, nil
}

// Signals assembles the shuffle circuit's public input from the compressed
// input and output decks. The state machine calls this with the submitted
// deck to bind the proof to what was actually posted.
func Signals(nonce babyjub.Element, aggPk babyjub.Point, in, out deck.Compressed) groth16.ShuffleSignals {
	return groth16.ShuffleSignals{
		Nonce: nonce,
		PkX:   aggPk.X,
		PkY:   aggPk.Y,
		UX0:   append([]babyjub.Element(nil), in.X0...),
		UX1:   append([]babyjub.Element(nil), in.X1...),
		VX0:   append([]babyjub.Element(nil), out.X0...),
		VX1:   append([]babyjub.Element(nil), out.X1...),
		SU0:   new(big.Int).Set(in.Selector0),
		SU1:   new(big.Int).Set(in.Selector1),
		SV0:   new(big.Int).Set(out.Selector0),
		SV1:   new(big.Int).Set(out.Selector1),
	}
}
