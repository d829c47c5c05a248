package state

import (
	"fmt"
	"math/big"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
)

type Phase string

const (
	PhaseCreated      Phase = "created"
	PhaseRegistration Phase = "registration"
	PhaseShuffle      Phase = "shuffle"
	PhaseDeal         Phase = "deal"
	PhaseOpen         Phase = "open"
	PhaseError        Phase = "gameError"
	PhaseComplete     Phase = "complete"
)

// RecipientUnset marks a card nobody has been designated to receive.
const RecipientUnset = -1

type Player struct {
	Addr string `json:"addr"`
	PkX  string `json:"pkX"`
	PkY  string `json:"pkY"`
}

// Deck is the compressed deck as stored on chain.
type Deck struct {
	X0        []string `json:"x0"`
	X1        []string `json:"x1"`
	Selector0 string   `json:"selector0"`
	Selector1 string   `json:"selector1"`
}

// CardDeal tracks one card's decryption progress: a bitmap of submitted
// shares and the accumulated partial plaintext. The explicit y-coordinates
// materialize when the first share lands (the compressed deck only carries
// sign bits).
type CardDeal struct {
	Record    uint64 `json:"record"`
	Recipient int    `json:"recipient"`

	X0 string `json:"x0,omitempty"`
	Y0 string `json:"y0,omitempty"`
	X1 string `json:"x1,omitempty"`
	Y1 string `json:"y1,omitempty"`
	// Explicit is set once the card has been pulled out of the compressed
	// deck; from then on X0..Y1 are authoritative for this card.
	Explicit bool `json:"explicit,omitempty"`

	Opened bool   `json:"opened,omitempty"`
	PlainX string `json:"plainX,omitempty"`
	PlainY string `json:"plainY,omitempty"`
}

type Game struct {
	ID         uint64 `json:"id"`
	Phase      Phase  `json:"phase"`
	NumPlayers int    `json:"numPlayers"`
	NumCards   int    `json:"numCards"`
	Turn       int    `json:"turn"`

	Players []Player `json:"players,omitempty"`
	AggPkX  string   `json:"aggPkX,omitempty"`
	AggPkY  string   `json:"aggPkY,omitempty"`
	Nonce   string   `json:"nonce,omitempty"`

	Deck  *Deck       `json:"deck,omitempty"`
	Cards []*CardDeal `json:"cards,omitempty"`

	// CardsToDeal[j] is the bitmap of cards owed to player j.
	CardsToDeal []uint64 `json:"cardsToDeal,omitempty"`

	// FreeDealOrder lifts the sequential submitter ordering during Deal.
	FreeDealOrder bool `json:"freeDealOrder,omitempty"`

	// TurnDeadline is the unix second at/after which game/tick may escalate
	// a stalled turn to PhaseError. 0 means no deadline.
	TurnDeadline int64 `json:"turnDeadline,omitempty"`
}

func (g *Game) FullMask() uint64 {
	return (uint64(1) << uint(g.NumPlayers)) - 1
}

func (g *Game) PlayerIndex(addr string) int {
	for i, p := range g.Players {
		if p.Addr == addr {
			return i
		}
	}
	return -1
}

// ---- string <-> curve conversions ----

// FormatElement prints the canonical non-negative decimal value. (The fr
// String method shortens values near the modulus to negative form, which the
// wire format does not accept.)
func FormatElement(e babyjub.Element) string {
	return e.BigInt(new(big.Int)).String()
}

func ParseElement(s string) (babyjub.Element, error) {
	var e babyjub.Element
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return e, fmt.Errorf("state: bad field element %q", s)
	}
	e.SetBigInt(n)
	return e, nil
}

func FormatPoint(p babyjub.Point) (x, y string) {
	return FormatElement(p.X), FormatElement(p.Y)
}

func ParsePoint(x, y string) (babyjub.Point, error) {
	ex, err := ParseElement(x)
	if err != nil {
		return babyjub.Point{}, err
	}
	ey, err := ParseElement(y)
	if err != nil {
		return babyjub.Point{}, err
	}
	return babyjub.Point{X: ex, Y: ey}, nil
}

// FormatDeck stores a compressed deck into its string representation.
func FormatDeck(d deck.Compressed) *Deck {
	out := &Deck{
		X0:        make([]string, d.Size()),
		X1:        make([]string, d.Size()),
		Selector0: d.Selector0.String(),
		Selector1: d.Selector1.String(),
	}
	for i := 0; i < d.Size(); i++ {
		out.X0[i] = FormatElement(d.X0[i])
		out.X1[i] = FormatElement(d.X1[i])
	}
	return out
}

// ParseDeck loads the stored deck back into curve form.
func ParseDeck(d *Deck) (deck.Compressed, error) {
	if d == nil {
		return deck.Compressed{}, fmt.Errorf("state: no deck")
	}
	if len(d.X0) != len(d.X1) {
		return deck.Compressed{}, fmt.Errorf("state: ragged deck: %d/%d", len(d.X0), len(d.X1))
	}
	out := deck.Compressed{
		X0: make([]babyjub.Element, len(d.X0)),
		X1: make([]babyjub.Element, len(d.X1)),
	}
	var err error
	for i := range d.X0 {
		if out.X0[i], err = ParseElement(d.X0[i]); err != nil {
			return deck.Compressed{}, err
		}
		if out.X1[i], err = ParseElement(d.X1[i]); err != nil {
			return deck.Compressed{}, err
		}
	}
	sel0, ok := new(big.Int).SetString(d.Selector0, 10)
	if !ok {
		return deck.Compressed{}, fmt.Errorf("state: bad selector0 %q", d.Selector0)
	}
	sel1, ok := new(big.Int).SetString(d.Selector1, 10)
	if !ok {
		return deck.Compressed{}, fmt.Errorf("state: bad selector1 %q", d.Selector1)
	}
	out.Selector0 = sel0
	out.Selector1 = sel1
	return out, nil
}
