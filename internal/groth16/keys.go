package groth16

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// verifyingKeyJSON is the on-disk verification key layout: decimal strings,
// G2 coordinates ordered (x0, x1, y0, y1) like the packed proof format.
type verifyingKeyJSON struct {
	Alpha [2]string   `json:"alpha"`
	Beta  [4]string   `json:"beta"`
	Gamma [4]string   `json:"gamma"`
	Delta [4]string   `json:"delta"`
	IC    [][2]string `json:"ic"`
}

func parseFp(s string) (fp.Element, error) {
	var e fp.Element
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return e, fmt.Errorf("groth16: bad base-field element %q", s)
	}
	e.SetBigInt(v)
	return e, nil
}

func parseG1(words [2]string) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	var err error
	if p.X, err = parseFp(words[0]); err != nil {
		return p, err
	}
	if p.Y, err = parseFp(words[1]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return p, fmt.Errorf("groth16: G1 point invalid")
	}
	return p, nil
}

func parseG2(words [4]string) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	var err error
	if p.X.A0, err = parseFp(words[0]); err != nil {
		return p, err
	}
	if p.X.A1, err = parseFp(words[1]); err != nil {
		return p, err
	}
	if p.Y.A0, err = parseFp(words[2]); err != nil {
		return p, err
	}
	if p.Y.A1, err = parseFp(words[3]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return p, fmt.Errorf("groth16: G2 point invalid")
	}
	return p, nil
}

// LoadVerifyingKey reads a verification key from a JSON file.
func LoadVerifyingKey(path string) (*VerifyingKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("groth16: read vk: %w", err)
	}
	var raw verifyingKeyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("groth16: decode vk: %w", err)
	}
	if len(raw.IC) == 0 {
		return nil, fmt.Errorf("groth16: vk has no IC points")
	}
	vk := &VerifyingKey{}
	if vk.Alpha, err = parseG1(raw.Alpha); err != nil {
		return nil, fmt.Errorf("groth16: vk alpha: %w", err)
	}
	if vk.Beta, err = parseG2(raw.Beta); err != nil {
		return nil, fmt.Errorf("groth16: vk beta: %w", err)
	}
	if vk.Gamma, err = parseG2(raw.Gamma); err != nil {
		return nil, fmt.Errorf("groth16: vk gamma: %w", err)
	}
	if vk.Delta, err = parseG2(raw.Delta); err != nil {
		return nil, fmt.Errorf("groth16: vk delta: %w", err)
	}
	vk.IC = make([]bn254.G1Affine, len(raw.IC))
	for i, words := range raw.IC {
		if vk.IC[i], err = parseG1(words); err != nil {
			return nil, fmt.Errorf("groth16: vk ic[%d]: %w", i, err)
		}
	}
	return vk, nil
}
