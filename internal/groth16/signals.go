package groth16

import (
	"fmt"
	"math/big"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
)

// ShuffleSignals is the public input of the shuffle circuit for a deck of N
// cards. Flatten produces the exact layout the verifying key was generated
// against:
//
//	[0..3)          nonce, pk.x, pk.y
//	[3..3+N)        UX0
//	[3+N..3+2N)     UX1
//	[3+2N..3+3N)    VX0
//	[3+3N..3+4N)    VX1
//	[3+4N..5+4N)    input selectors  (s_u.0, s_u.1)
//	[5+4N..7+4N)    output selectors (s_v.0, s_v.1)
type ShuffleSignals struct {
	Nonce babyjub.Element
	PkX   babyjub.Element
	PkY   babyjub.Element

	UX0 []babyjub.Element
	UX1 []babyjub.Element
	VX0 []babyjub.Element
	VX1 []babyjub.Element

	SU0 *big.Int
	SU1 *big.Int
	SV0 *big.Int
	SV1 *big.Int
}

// ShuffleSignalLen is the flattened signal count for an N-card deck.
func ShuffleSignalLen(n int) int {
	return 7 + 4*n
}

func (s ShuffleSignals) validate() error {
	n := len(s.UX0)
	if n == 0 {
		return fmt.Errorf("groth16: empty shuffle signals")
	}
	if len(s.UX1) != n || len(s.VX0) != n || len(s.VX1) != n {
		return fmt.Errorf("groth16: ragged shuffle signals: %d/%d/%d/%d",
			len(s.UX0), len(s.UX1), len(s.VX0), len(s.VX1))
	}
	if s.SU0 == nil || s.SU1 == nil || s.SV0 == nil || s.SV1 == nil {
		return fmt.Errorf("groth16: missing selector signals")
	}
	return nil
}

// Flatten serializes the record into the circuit's public-signal vector.
func (s ShuffleSignals) Flatten() ([]babyjub.Element, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	n := len(s.UX0)
	out := make([]babyjub.Element, 0, ShuffleSignalLen(n))
	out = append(out, s.Nonce, s.PkX, s.PkY)
	out = append(out, s.UX0...)
	out = append(out, s.UX1...)
	out = append(out, s.VX0...)
	out = append(out, s.VX1...)
	var e babyjub.Element
	e.SetBigInt(s.SU0)
	out = append(out, e)
	e.SetBigInt(s.SU1)
	out = append(out, e)
	e.SetBigInt(s.SV0)
	out = append(out, e)
	e.SetBigInt(s.SV1)
	out = append(out, e)
	return out, nil
}

// DealSignals is the public input of the decrypt circuit: the updated c1
// after removing the submitter's share, the ciphertext it was computed from,
// and the submitter's public key.
//
//	[0..2)  out.x, out.y   (c1 - sk*c0)
//	[2..4)  c0.x, c0.y
//	[4..6)  c1.x, c1.y
//	[6..8)  pk.x, pk.y
type DealSignals struct {
	Out babyjub.Point
	C0  babyjub.Point
	C1  babyjub.Point
	Pk  babyjub.Point
}

// DealSignalLen is the flattened signal count of the decrypt circuit.
const DealSignalLen = 8

func (s DealSignals) Flatten() []babyjub.Element {
	return []babyjub.Element{
		s.Out.X, s.Out.Y,
		s.C0.X, s.C0.Y,
		s.C1.X, s.C1.Y,
		s.Pk.X, s.Pk.Y,
	}
}
