package groth16

import (
	"math/big"
	"testing"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
)

func elem(v uint64) babyjub.Element {
	var e babyjub.Element
	e.SetUint64(v)
	return e
}

func elems(vs ...uint64) []babyjub.Element {
	out := make([]babyjub.Element, len(vs))
	for i, v := range vs {
		out[i].SetUint64(v)
	}
	return out
}

func TestShuffleSignals_Layout(t *testing.T) {
	const n = 2
	s := ShuffleSignals{
		Nonce: elem(100),
		PkX:   elem(101),
		PkY:   elem(102),
		UX0:   elems(1, 2),
		UX1:   elems(3, 4),
		VX0:   elems(5, 6),
		VX1:   elems(7, 8),
		SU0:   big.NewInt(201),
		SU1:   big.NewInt(202),
		SV0:   big.NewInt(203),
		SV1:   big.NewInt(204),
	}
	flat, err := s.Flatten()
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(flat) != ShuffleSignalLen(n) {
		t.Fatalf("len = %d, want %d", len(flat), ShuffleSignalLen(n))
	}
	want := []uint64{
		100, 101, 102, // nonce + pk
		1, 2, // UX0
		3, 4, // UX1
		5, 6, // VX0
		7, 8, // VX1
		201, 202, // s_u
		203, 204, // s_v
	}
	for i, w := range want {
		e := elem(w)
		if !flat[i].Equal(&e) {
			t.Fatalf("signal[%d] = %s, want %d", i, flat[i].String(), w)
		}
	}
}

func TestShuffleSignals_RejectsRagged(t *testing.T) {
	s := ShuffleSignals{
		UX0: elems(1, 2),
		UX1: elems(3),
		VX0: elems(5, 6),
		VX1: elems(7, 8),
		SU0: big.NewInt(0), SU1: big.NewInt(0),
		SV0: big.NewInt(0), SV1: big.NewInt(0),
	}
	if _, err := s.Flatten(); err == nil {
		t.Fatalf("ragged signals must be rejected")
	}
}

func TestDealSignals_Layout(t *testing.T) {
	s := DealSignals{
		Out: babyjub.Point{X: elem(1), Y: elem(2)},
		C0:  babyjub.Point{X: elem(3), Y: elem(4)},
		C1:  babyjub.Point{X: elem(5), Y: elem(6)},
		Pk:  babyjub.Point{X: elem(7), Y: elem(8)},
	}
	flat := s.Flatten()
	if len(flat) != DealSignalLen {
		t.Fatalf("len = %d, want %d", len(flat), DealSignalLen)
	}
	for i := 0; i < 8; i++ {
		e := elem(uint64(i + 1))
		if !flat[i].Equal(&e) {
			t.Fatalf("signal[%d] mismatch", i)
		}
	}
}

func TestProof_PackUnpack(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()
	p := Pack(g1, g2, g1)
	a, b, c, err := p.Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if !a.Equal(&g1) || !b.Equal(&g2) || !c.Equal(&g1) {
		t.Fatalf("pack/unpack mismatch")
	}
}

func TestProof_RejectsOutOfField(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()
	p := Pack(g1, g2, g1)
	p[0] = new(big.Int).Lsh(big.NewInt(1), 260)
	if _, _, _, err := p.Points(); err == nil {
		t.Fatalf("out-of-field word must be rejected")
	}
	p2 := Pack(g1, g2, g1)
	p2[6] = new(big.Int).Add(p2[6], big.NewInt(1))
	if _, _, _, err := p2.Points(); err == nil {
		t.Fatalf("off-curve point must be rejected")
	}
}

func TestPairingVerifier_Equation(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()

	vk := &VerifyingKey{
		Alpha: g1,
		Beta:  g2,
		Gamma: g2,
		Delta: g2,
		IC:    []bn254.G1Affine{g1, g1},
	}
	// One public signal s: acc = IC[0] + s*IC[1] = (1+s)*g1. With A = alpha
	// and B = beta, the equation closes iff C = -(1+s)*g1.
	s := elem(3)
	var acc bn254.G1Affine
	acc.ScalarMultiplication(&g1, big.NewInt(4))
	var c bn254.G1Affine
	c.Neg(&acc)

	v := NewPairingVerifier()
	if err := v.Verify(vk, Pack(g1, g2, c), []babyjub.Element{s}); err != nil {
		t.Fatalf("valid equation rejected: %v", err)
	}
	if err := v.Verify(vk, Pack(g1, g2, acc), []babyjub.Element{s}); err == nil {
		t.Fatalf("broken equation must be rejected")
	}
	if err := v.Verify(vk, Pack(g1, g2, c), []babyjub.Element{s, s}); err == nil {
		t.Fatalf("signal count mismatch must be rejected")
	}
}

func TestSimulatedPair(t *testing.T) {
	signals := elems(1, 2, 3, 4)
	proof := SimulatedProve(signals)
	v := NewSimulatedVerifier()
	if err := v.Verify(nil, proof, signals); err != nil {
		t.Fatalf("simulated proof rejected: %v", err)
	}

	tampered := elems(1, 2, 3, 5)
	if err := v.Verify(nil, proof, tampered); err == nil {
		t.Fatalf("signal tampering must be rejected")
	}
	proof[0] = new(big.Int).Add(proof[0], big.NewInt(1))
	if err := v.Verify(nil, proof, signals); err == nil {
		t.Fatalf("proof tampering must be rejected")
	}
}
