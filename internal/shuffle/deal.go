package shuffle

import (
	"fmt"
	"math/big"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
	"github.com/Manta-Network/zkShuffle/internal/groth16"
)

// DealWitness is the decrypt circuit input for one card and one player:
// proves Share = sk*C0 (equivalently, the discrete log of Share over C0
// equals that of Pk over Base8) and Out = C1 - Share.
type DealWitness struct {
	Card  babyjub.Ciphertext
	Sk    *big.Int
	Pk    babyjub.Point
	Share babyjub.Point
	Out   babyjub.Point

	Signals groth16.DealSignals
}

// PrepareDecryptData recovers the explicit ciphertext of slot i from a
// compressed deck; the first decryptor of a card runs this and ships the
// canonical deltas on-chain so the card can switch to the uncompressed
// representation.
func PrepareDecryptData(d deck.Compressed, i int) (babyjub.Ciphertext, [2]babyjub.Element, error) {
	if i < 0 || i >= d.Size() {
		return babyjub.Ciphertext{}, [2]babyjub.Element{}, fmt.Errorf("shuffle: card %d out of range", i)
	}
	d0, err := deck.ECXToDelta(d.X0[i])
	if err != nil {
		return babyjub.Ciphertext{}, [2]babyjub.Element{}, err
	}
	d1, err := deck.ECXToDelta(d.X1[i])
	if err != nil {
		return babyjub.Ciphertext{}, [2]babyjub.Element{}, err
	}
	deltas := [2]babyjub.Element{d0, d1}
	ys, err := d.DecompressCard(i, deltas)
	if err != nil {
		return babyjub.Ciphertext{}, [2]babyjub.Element{}, err
	}
	ct := babyjub.Ciphertext{
		C0: babyjub.Point{X: d.X0[i], Y: ys[0]},
		C1: babyjub.Point{X: d.X1[i], Y: ys[1]},
	}
	return ct, deltas, nil
}

// BuildDealWitness computes the player's decryption share for ct and the
// resulting partial plaintext.
func BuildDealWitness(ct babyjub.Ciphertext, kp babyjub.KeyPair) (*DealWitness, error) {
	if !babyjub.OnCurve(ct.C0) || !babyjub.OnCurve(ct.C1) {
		return nil, fmt.Errorf("shuffle: ciphertext not on curve")
	}
	share, err := babyjub.DecryptShare(kp.Sk, ct.C0)
	if err != nil {
		return nil, err
	}
	out := babyjub.PointSub(ct.C1, share)
	w := &DealWitness{
		Card:  ct,
		Sk:    new(big.Int).Set(kp.Sk),
		Pk:    kp.Pk,
		Share: share,
		Out:   out,
		Signals: groth16.DealSignals{
			Out: out,
			C0:  ct.C0,
			C1:  ct.C1,
			Pk:  kp.Pk,
		},
	}
	return w, nil
}

// RecoverCard is the recipient's local finish: with every other player's
// share already stripped from c1, removing the recipient's own share yields
// the plaintext card point.
func RecoverCard(sk *big.Int, ct babyjub.Ciphertext, n int) (babyjub.Point, int, error) {
	m, err := babyjub.Decrypt(sk, ct)
	if err != nil {
		return babyjub.Point{}, deck.CardIndexInvalid, err
	}
	idx := deck.Search(m, n)
	if idx == deck.CardIndexInvalid {
		return m, idx, fmt.Errorf("shuffle: decrypted point is not an initial-deck card")
	}
	return m, idx, nil
}
