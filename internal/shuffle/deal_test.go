package shuffle

import (
	"testing"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
)

// shuffleOnce advances the initial deck by one honest shuffle so card slots
// carry real randomness, as they do by the time dealing starts.
func shuffleOnce(t *testing.T, n int, agg babyjub.Point) deck.Compressed {
	t.Helper()
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
	out, _, err := Build(initial, perm, rands, agg, nonce)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return out
}

func TestPrepareDecryptData(t *testing.T) {
	const n = 30
	_, agg := testKeys(t, 2)
	d := shuffleOnce(t, n, agg)

	ct, deltas, err := PrepareDecryptData(d, 3)
	if err != nil {
		t.Fatalf("PrepareDecryptData: %v", err)
	}
	if !babyjub.OnCurve(ct.C0) || !babyjub.OnCurve(ct.C1) {
		t.Fatalf("recovered ciphertext off curve")
	}
	if !babyjub.IsCanonical(deltas[0]) || !babyjub.IsCanonical(deltas[1]) {
		t.Fatalf("deltas must be canonical")
	}
	// The deltas re-verify on chain through DecompressCard.
	ys, err := d.DecompressCard(3, deltas)
	if err != nil {
		t.Fatalf("DecompressCard: %v", err)
	}
	if !ys[0].Equal(&ct.C0.Y) || !ys[1].Equal(&ct.C1.Y) {
		t.Fatalf("delta round trip mismatch")
	}

	if _, _, err := PrepareDecryptData(d, n); err == nil {
		t.Fatalf("out-of-range card must be rejected")
	}
}

func TestBuildDealWitness_SharesRecoverCard(t *testing.T) {
	const n = 30
	kps, agg := testKeys(t, 3)
	d := shuffleOnce(t, n, agg)

	ct, _, err := PrepareDecryptData(d, 0)
	if err != nil {
		t.Fatalf("PrepareDecryptData: %v", err)
	}

	// Players 1 and 2 strip their shares; player 0 finishes locally.
	cur := ct
	for _, p := range []int{1, 2} {
		w, err := BuildDealWitness(cur, kps[p])
		if err != nil {
			t.Fatalf("BuildDealWitness: %v", err)
		}
		if !babyjub.PointEq(w.Signals.C1, cur.C1) || !babyjub.PointEq(w.Signals.Out, w.Out) {
			t.Fatalf("witness signals inconsistent")
		}
		cur = babyjub.Ciphertext{C0: cur.C0, C1: w.Out}
	}
	_, idx, err := RecoverCard(kps[0].Sk, cur, n)
	if err != nil {
		t.Fatalf("RecoverCard: %v", err)
	}
	if idx < 0 || idx >= n {
		t.Fatalf("recovered card %d out of range", idx)
	}
}

func TestRecoverCard_RejectsPartialDecryption(t *testing.T) {
	const n = 30
	kps, agg := testKeys(t, 3)
	d := shuffleOnce(t, n, agg)

	ct, _, err := PrepareDecryptData(d, 0)
	if err != nil {
		t.Fatalf("PrepareDecryptData: %v", err)
	}
	// Only one of three shares stripped: the plaintext is still masked.
	if _, _, err := RecoverCard(kps[0].Sk, ct, n); err == nil {
		t.Fatalf("partial decryption must not resolve to a card")
	}
}
