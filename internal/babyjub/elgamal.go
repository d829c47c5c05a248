package babyjub

import (
	"fmt"
	"math/big"
)

// Ciphertext is an ElGamal ciphertext in additive notation:
//
//	Enc(pk, M; r) = (r*G, M + r*pk)
type Ciphertext struct {
	C0 Point
	C1 Point
}

func Encrypt(pk Point, m Point, r *big.Int) (Ciphertext, error) {
	if !OnCurve(pk) {
		return Ciphertext{}, fmt.Errorf("babyjub: encrypt to off-curve key")
	}
	c0, err := MulBase(r)
	if err != nil {
		return Ciphertext{}, err
	}
	mask, err := PointMul(pk, r)
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{C0: c0, C1: PointAdd(m, mask)}, nil
}

// Decrypt recovers M = c1 - sk*c0.
func Decrypt(sk *big.Int, ct Ciphertext) (Point, error) {
	share, err := DecryptShare(sk, ct.C0)
	if err != nil {
		return Point{}, err
	}
	return PointSub(ct.C1, share), nil
}

// DecryptShare computes a single holder's partial decryption sk*c0.
// Stripping every holder's share from c1 recovers the plaintext point.
func DecryptShare(sk *big.Int, c0 Point) (Point, error) {
	return PointMul(c0, sk)
}

// Rerandomize maps (c0, c1) to (c0 + r*G, c1 + r*pk), an encryption of the
// same plaintext under fresh randomness.
func Rerandomize(pk Point, ct Ciphertext, r *big.Int) (Ciphertext, error) {
	rg, err := MulBase(r)
	if err != nil {
		return Ciphertext{}, err
	}
	rpk, err := PointMul(pk, r)
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{
		C0: PointAdd(ct.C0, rg),
		C1: PointAdd(ct.C1, rpk),
	}, nil
}
