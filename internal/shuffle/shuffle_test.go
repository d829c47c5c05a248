package shuffle

import (
	"math/big"
	"testing"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
)

func testKeys(t *testing.T, n int) ([]babyjub.KeyPair, babyjub.Point) {
	t.Helper()
	kps := make([]babyjub.KeyPair, n)
	pks := make([]babyjub.Point, n)
	for i := range kps {
		kp, err := babyjub.GenerateKey(nil)
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		kps[i] = kp
		pks[i] = kp.Pk
	}
	agg, err := babyjub.AggregateKeys(pks)
	if err != nil {
		t.Fatalf("AggregateKeys: %v", err)
	}
	return kps, agg
}

func stripAllShares(t *testing.T, ct babyjub.Ciphertext, kps []babyjub.KeyPair) babyjub.Point {
	t.Helper()
	out := ct.C1
	for _, kp := range kps {
		share, err := babyjub.DecryptShare(kp.Sk, ct.C0)
		if err != nil {
			t.Fatalf("DecryptShare: %v", err)
		}
		out = babyjub.PointSub(out, share)
	}
	return out
}

func TestValidatePermutation(t *testing.T) {
	if err := ValidatePermutation([]int{2, 0, 1}, 3); err != nil {
		t.Fatalf("valid permutation rejected: %v", err)
	}
	cases := [][]int{
		{0, 1},          // wrong length
		{0, 1, 1},       // duplicate
		{0, 1, 3},       // out of range
		{-1, 1, 2},      // negative
		{0, 1, 2, 3, 4}, // too long
	}
	for _, perm := range cases {
		if err := ValidatePermutation(perm, 3); err == nil {
			t.Fatalf("permutation %v must be rejected", perm)
		}
	}
}

func TestBuild_IsPermutationOfPlaintexts(t *testing.T) {
	const n = 30
	kps, agg := testKeys(t, 2)
	initial, err := deck.Initial(n)
	if err != nil {
		t.Fatalf("Initial: %v", err)
	}

	perm, err := SamplePermutation(nil, n)
	if err != nil {
		t.Fatalf("SamplePermutation: %v", err)
	}
	rands, err := SampleRandomness(nil, n)
	if err != nil {
		t.Fatalf("SampleRandomness: %v", err)
	}
	var nonce babyjub.Element
	nonce.SetUint64(42)

	out, w, err := Build(initial, perm, rands, agg, nonce)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if out.Size() != n {
		t.Fatalf("output deck size %d, want %d", out.Size(), n)
	}

	cts, err := out.Decompress()
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	for j, ct := range cts {
		if !babyjub.OnCurve(ct.C0) || !babyjub.OnCurve(ct.C1) {
			t.Fatalf("slot %d: shuffled ciphertext off curve", j)
		}
		m := stripAllShares(t, ct, kps)
		want, err := deck.CardPoint(perm[j])
		if err != nil {
			t.Fatalf("CardPoint: %v", err)
		}
		if !babyjub.PointEq(m, want) {
			t.Fatalf("slot %d decrypts to the wrong card", j)
		}
	}

	// The witness's public signals carry the submitted decks verbatim.
	if w.Signals.SU0.Cmp(initial.Selector0) != 0 || w.Signals.SV0.Cmp(out.Selector0) != 0 {
		t.Fatalf("witness signals do not match decks")
	}
}

func TestBuild_SecondShuffleComposes(t *testing.T) {
	const n = 30
	kps, agg := testKeys(t, 3)
	initial, err := deck.Initial(n)
	if err != nil {
		t.Fatalf("Initial: %v", err)
	}
	var nonce babyjub.Element
	nonce.SetUint64(7)

	cur := initial
	applied := make([]int, n)
	for i := range applied {
		applied[i] = i
	}
	for turn := 0; turn < 3; turn++ {
		perm, err := SamplePermutation(nil, n)
		if err != nil {
			t.Fatalf("SamplePermutation: %v", err)
		}
		rands, err := SampleRandomness(nil, n)
		if err != nil {
			t.Fatalf("SampleRandomness: %v", err)
		}
		next, _, err := Build(cur, perm, rands, agg, nonce)
		if err != nil {
			t.Fatalf("Build turn %d: %v", turn, err)
		}
		composed := make([]int, n)
		for j := range composed {
			composed[j] = applied[perm[j]]
		}
		applied = composed
		cur = next
	}

	cts, err := cur.Decompress()
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	seen := make([]bool, n)
	for j, ct := range cts {
		m := stripAllShares(t, ct, kps)
		idx := deck.Search(m, n)
		if idx == deck.CardIndexInvalid {
			t.Fatalf("slot %d does not decrypt to a card", j)
		}
		if idx != applied[j] {
			t.Fatalf("slot %d = card %d, want %d", j, idx, applied[j])
		}
		if seen[idx] {
			t.Fatalf("card %d appears twice", idx)
		}
		seen[idx] = true
	}
}

func TestBuild_Rejects(t *testing.T) {
	const n = 30
	_, agg := testKeys(t, 2)
	initial, err := deck.Initial(n)
	if err != nil {
		t.Fatalf("Initial: %v", err)
	}
	var nonce babyjub.Element

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rands, err := SampleRandomness(nil, n)
	if err != nil {
		t.Fatalf("SampleRandomness: %v", err)
	}

	badPerm := append([]int(nil), perm...)
	badPerm[0] = 1 // duplicate
	if _, _, err := Build(initial, badPerm, rands, agg, nonce); err == nil {
		t.Fatalf("invalid permutation must be rejected")
	}

	badRands := append([]*big.Int(nil), rands...)
	badRands[3] = new(big.Int).Set(babyjub.SubOrder)
	if _, _, err := Build(initial, perm, badRands, agg, nonce); err == nil {
		t.Fatalf("out-of-range randomness must be rejected")
	}

	offCurve := agg
	var one babyjub.Element
	one.SetOne()
	offCurve.X.Add(&offCurve.X, &one)
	if _, _, err := Build(initial, perm, rands, offCurve, nonce); err == nil {
		t.Fatalf("off-curve aggregated key must be rejected")
	}
}

func TestSamplePermutation_IsPermutation(t *testing.T) {
	perm, err := SamplePermutation(nil, 52)
	if err != nil {
		t.Fatalf("SamplePermutation: %v", err)
	}
	if err := ValidatePermutation(perm, 52); err != nil {
		t.Fatalf("sampled permutation invalid: %v", err)
	}
}
