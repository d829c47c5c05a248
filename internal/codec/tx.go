// Package codec defines the wire envelope and per-operation transaction
// payloads. Transactions are opaque bytes to the consensus layer; the
// envelope carries JSON routing plus ed25519 authentication material. Curve
// coordinates and proof words travel as decimal strings and are parsed (and
// length-checked) at the application boundary.
package codec

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/groth16"
)

// TxEnvelope is the transaction container.
//
//   - Nonce: included in the signed message for replay protection (must
//     increase per signer).
//   - Signer: logical signer address.
//   - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

func EncodeTx(typ string, value any, nonce, signer string, sig []byte) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode tx value: %w", err)
	}
	return json.Marshal(TxEnvelope{
		Type:   typ,
		Value:  raw,
		Nonce:  nonce,
		Signer: signer,
		Sig:    sig,
	})
}

// ---- Auth ----

type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // 32 bytes, base64 in JSON
}

// ---- Game ----

type GameCreateTx struct {
	GameID     uint64 `json:"gameId"`
	NumPlayers int    `json:"numPlayers"`
	NumCards   int    `json:"numCards"`
}

type GameSettingsTx struct {
	GameID        uint64 `json:"gameId"`
	FreeDealOrder bool   `json:"freeDealOrder,omitempty"`
}

type GameRegisterTx struct {
	GameID uint64 `json:"gameId"`
	Addr   string `json:"addr"`
	PkX    string `json:"pkX"`
	PkY    string `json:"pkY"`
}

type GameShuffleTx struct {
	GameID uint64    `json:"gameId"`
	Caller string    `json:"caller"`
	Proof  [8]string `json:"proof"`

	X0        []string `json:"x0"`
	X1        []string `json:"x1"`
	Selector0 string   `json:"selector0"`
	Selector1 string   `json:"selector1"`
}

type GameDealRequestTx struct {
	GameID    uint64 `json:"gameId"`
	Caller    string `json:"caller"`
	Cards     uint64 `json:"cards"` // bitmap of card slots
	Recipient int    `json:"recipient"`
}

type GameDealTx struct {
	GameID    uint64    `json:"gameId"`
	Caller    string    `json:"caller"`
	CardIdx   int       `json:"cardIdx"`
	PlayerIdx int       `json:"playerIdx"`
	Proof     [8]string `json:"proof"`
	ShareX    string    `json:"shareX"`
	ShareY    string    `json:"shareY"`

	// Canonical deltas for the first share on a still-compressed card.
	InitDelta0 string `json:"initDelta0,omitempty"`
	InitDelta1 string `json:"initDelta1,omitempty"`
}

type GameOpenTx struct {
	GameID uint64      `json:"gameId"`
	Caller string      `json:"caller"`
	Cards  uint64      `json:"cards"` // bitmap of card slots
	Proofs [][8]string `json:"proofs"`
	ShareX []string    `json:"shareX"`
	ShareY []string    `json:"shareY"`
}

type GameTickTx struct {
	GameID uint64 `json:"gameId"`
}

type GameCloseTx struct {
	GameID uint64 `json:"gameId"`
	Caller string `json:"caller"`
}

// ---- wire parsing helpers ----

func ParseProof(words [8]string) (groth16.Proof, error) {
	var p groth16.Proof
	for i, w := range words {
		v, ok := new(big.Int).SetString(w, 10)
		if !ok || v.Sign() < 0 {
			return groth16.Proof{}, fmt.Errorf("proof word %d: bad decimal %q", i, w)
		}
		p[i] = v
	}
	return p, nil
}

func FormatProof(p groth16.Proof) ([8]string, error) {
	var out [8]string
	for i, w := range p {
		if w == nil {
			return out, fmt.Errorf("proof word %d missing", i)
		}
		out[i] = w.String()
	}
	return out, nil
}

func ParseBigInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("bad decimal %q", s)
	}
	return v, nil
}

func ParseElement(s string) (babyjub.Element, error) {
	v, err := ParseBigInt(s)
	if err != nil {
		return babyjub.Element{}, err
	}
	var e babyjub.Element
	e.SetBigInt(v)
	return e, nil
}
