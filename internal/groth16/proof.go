// Package groth16 carries the proof plumbing shared by the state machine and
// the clients: the 8-scalar packed proof format, typed public-signal records
// with the exact layouts the circuits expose, and a pairing-equation verifier
// backed by gnark-crypto. The prover itself is external; this package only
// checks its output.
package groth16

import (
	"fmt"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// ProofWords is the packed proof length:
// [a.x, a.y, b.x0, b.x1, b.y0, b.y1, c.x, c.y].
const ProofWords = 8

// Proof is a Groth16 proof packed as 8 base-field scalars.
type Proof [ProofWords]*big.Int

// Points unpacks the proof into curve points, rejecting coordinates outside
// the base field and points off curve or outside the prime subgroups.
func (p Proof) Points() (a bn254.G1Affine, b bn254.G2Affine, c bn254.G1Affine, err error) {
	mod := fp.Modulus()
	for i, w := range p {
		if w == nil || w.Sign() < 0 || w.Cmp(mod) >= 0 {
			return a, b, c, fmt.Errorf("groth16: proof word %d out of field", i)
		}
	}
	a.X.SetBigInt(p[0])
	a.Y.SetBigInt(p[1])
	b.X.A0.SetBigInt(p[2])
	b.X.A1.SetBigInt(p[3])
	b.Y.A0.SetBigInt(p[4])
	b.Y.A1.SetBigInt(p[5])
	c.X.SetBigInt(p[6])
	c.Y.SetBigInt(p[7])
	if !a.IsOnCurve() || !a.IsInSubGroup() {
		return a, b, c, fmt.Errorf("groth16: proof point A invalid")
	}
	if !b.IsOnCurve() || !b.IsInSubGroup() {
		return a, b, c, fmt.Errorf("groth16: proof point B invalid")
	}
	if !c.IsOnCurve() || !c.IsInSubGroup() {
		return a, b, c, fmt.Errorf("groth16: proof point C invalid")
	}
	return a, b, c, nil
}

// Pack re-encodes curve points into the 8-scalar wire format.
func Pack(a bn254.G1Affine, b bn254.G2Affine, c bn254.G1Affine) Proof {
	var p Proof
	p[0] = a.X.BigInt(new(big.Int))
	p[1] = a.Y.BigInt(new(big.Int))
	p[2] = b.X.A0.BigInt(new(big.Int))
	p[3] = b.X.A1.BigInt(new(big.Int))
	p[4] = b.Y.A0.BigInt(new(big.Int))
	p[5] = b.Y.A1.BigInt(new(big.Int))
	p[6] = c.X.BigInt(new(big.Int))
	p[7] = c.Y.BigInt(new(big.Int))
	return p
}
