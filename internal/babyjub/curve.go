// Package babyjub implements arithmetic on the Baby Jubjub twisted Edwards
// curve a*x^2 + y^2 = 1 + d*x^2*y^2 with a=168700, d=168696, defined over the
// BN254 scalar field. All coordinate arithmetic uses gnark-crypto fr elements;
// scalars live in the prime-order subgroup generated by Base8.
package babyjub

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Element is a field element mod Q, the Baby Jubjub base field prime
// 21888242871839275222246405745257275088548364400416034343698204186575808495617.
type Element = fr.Element

var (
	paramA Element
	paramD Element

	// SubOrder is the order of the prime subgroup generated by Base8.
	SubOrder, _ = new(big.Int).SetString("2736030358979909402780800718157159386076813972158567259200215660948447373041", 10)

	base8X = mustElement("5299619240641551281634865583518297030282874472190772894086521144482721001553")
	base8Y = mustElement("16950150798460657717958625567821834550301663161624707787222815936182638968203")
)

func init() {
	paramA.SetUint64(168700)
	paramD.SetUint64(168696)
}

func mustElement(dec string) Element {
	var e Element
	n, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		panic("babyjub: bad element literal " + dec)
	}
	e.SetBigInt(n)
	return e
}

// CoeffA returns the curve coefficient a = 168700.
func CoeffA() Element { return paramA }

// CoeffD returns the curve coefficient d = 168696.
func CoeffD() Element { return paramD }

// Point is an affine curve point. The zero value (0, 0) doubles as the wire
// format's "no point" marker and is treated as the additive identity by
// PointAdd, matching the on-chain convention.
type Point struct {
	X Element
	Y Element
}

// Base8 returns the canonical generator of the prime-order subgroup.
func Base8() Point {
	return Point{X: base8X, Y: base8Y}
}

// PointZero returns the (0, 0) identity marker.
func PointZero() Point {
	return Point{}
}

func (p Point) IsZero() bool {
	return p.X.IsZero() && p.Y.IsZero()
}

func PointEq(p, q Point) bool {
	return p.X.Equal(&q.X) && p.Y.Equal(&q.Y)
}

// OnCurve reports whether a*x^2 + y^2 == 1 + d*x^2*y^2.
func OnCurve(p Point) bool {
	var x2, y2, lhs, rhs, one Element
	x2.Square(&p.X)
	y2.Square(&p.Y)
	lhs.Mul(&paramA, &x2)
	lhs.Add(&lhs, &y2)
	one.SetOne()
	rhs.Mul(&x2, &y2)
	rhs.Mul(&rhs, &paramD)
	rhs.Add(&rhs, &one)
	return lhs.Equal(&rhs)
}

// PointAdd adds two points with the twisted Edwards addition law:
//
//	x3 = (x1*y2 + y1*x2) / (1 + d*x1*x2*y1*y2)
//	y3 = (y1*y2 - a*x1*x2) / (1 - d*x1*x2*y1*y2)
//
// (0, 0) acts as the identity.
func PointAdd(p, q Point) Point {
	if p.IsZero() {
		return q
	}
	if q.IsZero() {
		return p
	}
	var beta, gamma, t, num, den, one Element
	one.SetOne()

	// t = d * x1*x2*y1*y2
	t.Mul(&p.X, &q.X)
	t.Mul(&t, &p.Y)
	t.Mul(&t, &q.Y)
	t.Mul(&t, &paramD)

	var out Point

	beta.Mul(&p.X, &q.Y)
	gamma.Mul(&p.Y, &q.X)
	num.Add(&beta, &gamma)
	den.Add(&one, &t)
	den.Inverse(&den)
	out.X.Mul(&num, &den)

	beta.Mul(&p.Y, &q.Y)
	gamma.Mul(&p.X, &q.X)
	gamma.Mul(&gamma, &paramA)
	num.Sub(&beta, &gamma)
	den.Sub(&one, &t)
	den.Inverse(&den)
	out.Y.Mul(&num, &den)

	// The group's neutral element (0, 1) collapses to the (0, 0) marker so
	// that P + (-P) round-trips to the identity encoding.
	if out.X.IsZero() && out.Y.IsOne() {
		return Point{}
	}
	return out
}

// PointNeg returns (-x, y), the twisted Edwards negation.
func PointNeg(p Point) Point {
	var out Point
	out.X.Neg(&p.X)
	out.Y.Set(&p.Y)
	return out
}

// PointSub returns p - q.
func PointSub(p, q Point) Point {
	return PointAdd(p, PointNeg(q))
}

// PointMul computes s*p by double-and-add from the least significant bit.
// The scalar is reduced mod SubOrder; negative scalars are rejected.
func PointMul(p Point, s *big.Int) (Point, error) {
	if s == nil || s.Sign() < 0 {
		return Point{}, fmt.Errorf("babyjub: scalar out of range")
	}
	if s.Cmp(SubOrder) >= 0 {
		s = new(big.Int).Mod(s, SubOrder)
	}
	acc := PointZero()
	dbl := p
	for i := 0; i < s.BitLen(); i++ {
		if s.Bit(i) == 1 {
			acc = PointAdd(acc, dbl)
		}
		dbl = PointAdd(dbl, dbl)
	}
	return acc, nil
}

// MulBase computes s*Base8.
func MulBase(s *big.Int) (Point, error) {
	return PointMul(Base8(), s)
}

// ValidateScalar rejects scalars outside [0, SubOrder).
func ValidateScalar(s *big.Int) error {
	if s == nil || s.Sign() < 0 || s.Cmp(SubOrder) >= 0 {
		return fmt.Errorf("babyjub: scalar out of range")
	}
	return nil
}

// Inverse computes a^(Q-2) mod Q. Zero has no inverse.
func Inverse(a Element) (Element, error) {
	if a.IsZero() {
		return Element{}, fmt.Errorf("babyjub: inverse of zero")
	}
	var out Element
	out.Inverse(&a)
	return out, nil
}

// HalfQ is (Q-1)/2, the canonical-delta boundary used by the compressed
// point encoding.
var HalfQ = func() *big.Int {
	h := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
	return h.Rsh(h, 1)
}()

// IsCanonical reports whether e <= (Q-1)/2.
func IsCanonical(e Element) bool {
	return !e.LexicographicallyLargest()
}

// SignBit returns 1 when y is the canonical square root (y <= (Q-1)/2),
// else 0. This is the selector bit stored for a compressed point.
func SignBit(y Element) uint {
	if IsCanonical(y) {
		return 1
	}
	return 0
}
