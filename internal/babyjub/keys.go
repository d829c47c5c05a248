package babyjub

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// ScalarBits is the randomness width the shuffle and decrypt circuits accept.
const ScalarBits = 251

type KeyPair struct {
	Sk *big.Int
	Pk Point
}

// GenerateKey samples a 251-bit secret scalar and derives pk = sk*Base8.
// A nil reader falls back to crypto/rand.
func GenerateKey(rng io.Reader) (KeyPair, error) {
	sk, err := SampleScalar(rng)
	if err != nil {
		return KeyPair{}, err
	}
	pk, err := MulBase(sk)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Sk: sk, Pk: pk}, nil
}

// SampleScalar draws a uniform scalar in [0, SubOrder).
func SampleScalar(rng io.Reader) (*big.Int, error) {
	if rng == nil {
		rng = rand.Reader
	}
	s, err := rand.Int(rng, SubOrder)
	if err != nil {
		return nil, fmt.Errorf("babyjub: sample scalar: %w", err)
	}
	return s, nil
}

// AggregateKeys folds the players' public keys into the joint encryption key.
// Every key must be on curve.
func AggregateKeys(pks []Point) (Point, error) {
	if len(pks) == 0 {
		return Point{}, fmt.Errorf("babyjub: no keys to aggregate")
	}
	agg := PointZero()
	for i, pk := range pks {
		if !OnCurve(pk) {
			return Point{}, fmt.Errorf("babyjub: public key %d not on curve", i)
		}
		agg = PointAdd(agg, pk)
	}
	return agg, nil
}
