package groth16

import (
	"fmt"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
)

// VerifyingKey holds the Groth16 verification material for one circuit.
// len(IC) must be the public-signal count plus one.
type VerifyingKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	IC    []bn254.G1Affine
}

// Verifier is the opaque predicate the state machine depends on. A nil error
// means the proof is valid for the given public signals.
type Verifier interface {
	Verify(vk *VerifyingKey, proof Proof, publicSignals []babyjub.Element) error
}

// PairingVerifier checks the Groth16 verification equation
//
//	e(A, B) = e(alpha, beta) * e(sum_i x_i*IC_i, gamma) * e(C, delta)
//
// directly with a bn254 multi-pairing.
type PairingVerifier struct{}

func NewPairingVerifier() PairingVerifier {
	return PairingVerifier{}
}

func (PairingVerifier) Verify(vk *VerifyingKey, proof Proof, publicSignals []babyjub.Element) error {
	if vk == nil {
		return fmt.Errorf("groth16: nil verifying key")
	}
	if len(vk.IC) != len(publicSignals)+1 {
		return fmt.Errorf("groth16: signal count mismatch: vk wants %d, got %d",
			len(vk.IC)-1, len(publicSignals))
	}
	a, b, c, err := proof.Points()
	if err != nil {
		return err
	}

	var acc bn254.G1Jac
	acc.FromAffine(&vk.IC[0])
	var term bn254.G1Jac
	s := new(big.Int)
	for i := range publicSignals {
		term.FromAffine(&vk.IC[i+1])
		publicSignals[i].BigInt(s)
		term.ScalarMultiplication(&term, s)
		acc.AddAssign(&term)
	}
	var accAff bn254.G1Affine
	accAff.FromJacobian(&acc)

	var negA bn254.G1Affine
	negA.Neg(&a)

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{negA, vk.Alpha, accAff, c},
		[]bn254.G2Affine{b, vk.Beta, vk.Gamma, vk.Delta},
	)
	if err != nil {
		return fmt.Errorf("groth16: pairing check: %w", err)
	}
	if !ok {
		return fmt.Errorf("groth16: proof rejected")
	}
	return nil
}
