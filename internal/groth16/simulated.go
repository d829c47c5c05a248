package groth16

import (
	"crypto/sha256"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
)

// The simulated backend stands in for the external Groth16 prover during
// local development and tests: a "proof" is a hash binding of the public
// signals, and verification recomputes it. It provides no soundness and no
// zero knowledge; it exists so the full protocol loop can run without
// proving artifacts.

const simDomain = "zkshuffle/sim-proof/v1"

func simWord(i int, digest []byte) *big.Int {
	h := sha256.New()
	h.Write([]byte(simDomain))
	h.Write([]byte{byte(i)})
	h.Write(digest)
	w := new(big.Int).SetBytes(h.Sum(nil))
	return w.Mod(w, fp.Modulus())
}

func simDigest(publicSignals []babyjub.Element) []byte {
	h := sha256.New()
	h.Write([]byte(simDomain))
	for i := range publicSignals {
		b := publicSignals[i].Bytes()
		h.Write(b[:])
	}
	return h.Sum(nil)
}

// SimulatedProve produces the hash-binding proof for a public-signal vector.
func SimulatedProve(publicSignals []babyjub.Element) Proof {
	digest := simDigest(publicSignals)
	var p Proof
	for i := range p {
		p[i] = simWord(i, digest)
	}
	return p
}

// SimulatedVerifier accepts exactly the proofs SimulatedProve emits for the
// same public signals; any tampering with either side is rejected.
type SimulatedVerifier struct{}

func NewSimulatedVerifier() SimulatedVerifier {
	return SimulatedVerifier{}
}

func (SimulatedVerifier) Verify(_ *VerifyingKey, proof Proof, publicSignals []babyjub.Element) error {
	want := SimulatedProve(publicSignals)
	for i := range proof {
		if proof[i] == nil || proof[i].Cmp(want[i]) != 0 {
			return errSimRejected
		}
	}
	return nil
}

var errSimRejected = simError{}

type simError struct{}

func (simError) Error() string { return "groth16: simulated proof rejected" }
