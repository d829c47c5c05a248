// Package deck implements the compressed ElGamal deck encoding: each card
// slot stores two x-coordinates plus one sign bit per coordinate, packed into
// deck-wide selector bitvectors. Full points are recovered through the curve
// equation.
package deck

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
)

// CardIndexInvalid is returned by Search when a decrypted point does not map
// to any initial-deck card.
const CardIndexInvalid = 999999

// Decompression failure kinds, matched with errors.Is.
var (
	ErrIllFormedDelta    = errors.New("deck: ill-formed delta")
	ErrIllFormedSelector = errors.New("deck: ill-formed selector")
)

// SupportedSizes lists the deck sizes with deployed proving keys.
var SupportedSizes = []int{30, 52}

// Compressed is a deck of n ElGamal ciphertexts in compressed form. Slot i
// holds the ciphertext ((X0[i], y0), (X1[i], y1)) where the y-coordinates are
// recovered from bit i of Selector0 and Selector1.
type Compressed struct {
	X0        []babyjub.Element
	X1        []babyjub.Element
	Selector0 *big.Int
	Selector1 *big.Int
}

func (d Compressed) Size() int {
	return len(d.X0)
}

// Clone deep-copies the deck.
func (d Compressed) Clone() Compressed {
	out := Compressed{
		X0:        append([]babyjub.Element(nil), d.X0...),
		X1:        append([]babyjub.Element(nil), d.X1...),
		Selector0: new(big.Int).Set(d.Selector0),
		Selector1: new(big.Int).Set(d.Selector1),
	}
	return out
}

// SelectorBit extracts bit i of a selector bitvector.
func SelectorBit(sel *big.Int, i int) uint {
	return uint(sel.Bit(i))
}

// DecompressEC recovers the y-coordinate of a compressed point. delta must be
// the canonical square root (delta <= (Q-1)/2) of the curve equation at x,
// and sel selects between delta and Q-delta.
func DecompressEC(x, delta babyjub.Element, sel uint) (babyjub.Element, error) {
	if sel != 0 && sel != 1 {
		return babyjub.Element{}, fmt.Errorf("%w: selector must be a bit, got %d", ErrIllFormedSelector, sel)
	}
	if !babyjub.IsCanonical(delta) {
		return babyjub.Element{}, fmt.Errorf("%w: delta exceeds (Q-1)/2", ErrIllFormedDelta)
	}
	if !babyjub.OnCurve(babyjub.Point{X: x, Y: delta}) {
		return babyjub.Element{}, fmt.Errorf("%w: (x, delta) not on curve", ErrIllFormedDelta)
	}
	if sel == 1 {
		return delta, nil
	}
	var y babyjub.Element
	y.Neg(&delta)
	return y, nil
}

// DecompressCard recovers the two y-coordinates of slot i given the canonical
// deltas for its x-coordinates.
func (d Compressed) DecompressCard(i int, deltas [2]babyjub.Element) ([2]babyjub.Element, error) {
	if i < 0 || i >= d.Size() {
		return [2]babyjub.Element{}, fmt.Errorf("deck: card index %d out of range", i)
	}
	y0, err := DecompressEC(d.X0[i], deltas[0], SelectorBit(d.Selector0, i))
	if err != nil {
		return [2]babyjub.Element{}, err
	}
	y1, err := DecompressEC(d.X1[i], deltas[1], SelectorBit(d.Selector1, i))
	if err != nil {
		return [2]babyjub.Element{}, err
	}
	return [2]babyjub.Element{y0, y1}, nil
}

// ECXToDelta recovers the canonical y-coordinate for x from the curve
// equation y^2 = (1 - a*x^2) / (1 - d*x^2).
func ECXToDelta(x babyjub.Element) (babyjub.Element, error) {
	var x2, num, den, one, ysq babyjub.Element
	one.SetOne()
	a := babyjub.CoeffA()
	dd := babyjub.CoeffD()
	x2.Square(&x)
	num.Mul(&a, &x2)
	num.Sub(&one, &num)
	den.Mul(&dd, &x2)
	den.Sub(&one, &den)
	if den.IsZero() {
		return babyjub.Element{}, fmt.Errorf("deck: x has no curve point")
	}
	den.Inverse(&den)
	ysq.Mul(&num, &den)
	var y babyjub.Element
	if y.Sqrt(&ysq) == nil {
		return babyjub.Element{}, fmt.Errorf("deck: x has no curve point")
	}
	if !babyjub.IsCanonical(y) {
		y.Neg(&y)
	}
	return y, nil
}

// Compress packs a full ciphertext deck into compressed form.
func Compress(cts []babyjub.Ciphertext) Compressed {
	n := len(cts)
	out := Compressed{
		X0:        make([]babyjub.Element, n),
		X1:        make([]babyjub.Element, n),
		Selector0: new(big.Int),
		Selector1: new(big.Int),
	}
	for i, ct := range cts {
		out.X0[i].Set(&ct.C0.X)
		out.X1[i].Set(&ct.C1.X)
		out.Selector0.SetBit(out.Selector0, i, babyjub.SignBit(ct.C0.Y))
		out.Selector1.SetBit(out.Selector1, i, babyjub.SignBit(ct.C1.Y))
	}
	return out
}

// Decompress expands the whole deck back to explicit ciphertexts.
func (d Compressed) Decompress() ([]babyjub.Ciphertext, error) {
	out := make([]babyjub.Ciphertext, d.Size())
	for i := range out {
		d0, err := ECXToDelta(d.X0[i])
		if err != nil {
			return nil, fmt.Errorf("deck: slot %d c0: %w", i, err)
		}
		d1, err := ECXToDelta(d.X1[i])
		if err != nil {
			return nil, fmt.Errorf("deck: slot %d c1: %w", i, err)
		}
		ys, err := d.DecompressCard(i, [2]babyjub.Element{d0, d1})
		if err != nil {
			return nil, fmt.Errorf("deck: slot %d: %w", i, err)
		}
		out[i] = babyjub.Ciphertext{
			C0: babyjub.Point{X: d.X0[i], Y: ys[0]},
			C1: babyjub.Point{X: d.X1[i], Y: ys[1]},
		}
	}
	return out, nil
}

// Initial returns the fixed initial deck for n cards. Every slot encrypts
// its card point under zero randomness, so the table is a process-wide
// constant shared by all games.
func Initial(n int) (Compressed, error) {
	var sel0, sel1 string
	switch n {
	case 52:
		sel0, sel1 = initialSelector0N52, initialSelector1N52
	case 30:
		sel0, sel1 = initialSelector0N30, initialSelector1N30
	default:
		return Compressed{}, fmt.Errorf("deck: unsupported deck size %d", n)
	}
	out := Compressed{
		X0: make([]babyjub.Element, n),
		X1: make([]babyjub.Element, n),
	}
	for i := 0; i < n; i++ {
		v, ok := new(big.Int).SetString(initialX1[i], 10)
		if !ok {
			return Compressed{}, fmt.Errorf("deck: bad table literal at %d", i)
		}
		out.X1[i].SetBigInt(v)
	}
	out.Selector0, _ = new(big.Int).SetString(sel0, 10)
	out.Selector1, _ = new(big.Int).SetString(sel1, 10)
	return out, nil
}

// CardPoint returns the plaintext point of card i, (i+1)*Base8.
func CardPoint(i int) (babyjub.Point, error) {
	if i < 0 || i >= len(initialX1) {
		return babyjub.Point{}, fmt.Errorf("deck: card %d out of range", i)
	}
	return babyjub.MulBase(big.NewInt(int64(i + 1)))
}

// Search maps a decrypted plaintext point back to its card index in a deck of
// n cards, or CardIndexInvalid when the point is not an initial-deck card.
func Search(p babyjub.Point, n int) int {
	for i := 0; i < n && i < len(initialX1); i++ {
		cp, err := CardPoint(i)
		if err != nil {
			return CardIndexInvalid
		}
		if babyjub.PointEq(p, cp) {
			return i
		}
	}
	return CardIndexInvalid
}
