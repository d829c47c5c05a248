// Package game is the authoritative shuffle/deal state machine. Every
// operation is a pure transition over the stored records: it either returns
// the events of a successful state change or an error leaving the state
// untouched. Proof verification is delegated to the injected groth16.Verifier;
// a rejected submission never mutates the game.
package game

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	errorsmod "cosmossdk.io/errors"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
	"github.com/Manta-Network/zkShuffle/internal/groth16"
	"github.com/Manta-Network/zkShuffle/internal/shuffle"
	"github.com/Manta-Network/zkShuffle/internal/state"
)

const nonceDomain = "zkshuffle/v1/game-nonce"

// KeySet holds the verification keys for the deployed circuits, keyed by deck
// size for the shuffle circuit.
type KeySet struct {
	Shuffle map[int]*groth16.VerifyingKey
	Deal    *groth16.VerifyingKey
}

func (k KeySet) shuffleVK(n int) *groth16.VerifyingKey {
	if k.Shuffle == nil {
		return nil
	}
	return k.Shuffle[n]
}

// Config carries the machine-level policy knobs.
type Config struct {
	// TurnTimeoutSecs bounds how long a turn may stall before game/tick can
	// escalate to PhaseError. 0 disables deadlines.
	TurnTimeoutSecs uint64
}

type Machine struct {
	verifier groth16.Verifier
	keys     KeySet
	cfg      Config
}

func NewMachine(verifier groth16.Verifier, keys KeySet, cfg Config) *Machine {
	return &Machine{verifier: verifier, keys: keys, cfg: cfg}
}

func findGame(st *state.State, gameID uint64) (*state.Game, error) {
	g := st.Games[gameID]
	if g == nil {
		return nil, errorsmod.Wrapf(ErrGameNotFound, "gameId=%d", gameID)
	}
	return g, nil
}

// CreateGame allocates the per-game record in PhaseCreated. gameId is
// assigned externally and must be non-zero.
func (m *Machine) CreateGame(st *state.State, gameID uint64, numPlayers, numCards int) ([]Event, error) {
	if gameID == 0 {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "gameId must be non-zero")
	}
	if st.Games[gameID] != nil {
		return nil, errorsmod.Wrapf(ErrGameExists, "gameId=%d", gameID)
	}
	if numPlayers < 2 {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "numPlayers=%d, need at least 2", numPlayers)
	}
	if numPlayers > 64 {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "numPlayers=%d exceeds record width", numPlayers)
	}
	if _, err := deck.Initial(numCards); err != nil {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "numCards=%d unsupported", numCards)
	}
	st.Games[gameID] = &state.Game{
		ID:         gameID,
		Phase:      state.PhaseCreated,
		NumPlayers: numPlayers,
		NumCards:   numCards,
		Turn:       0,
	}
	return []Event{newEvent(EventGameCreated, map[string]string{
		"gameId":     utoa(gameID),
		"numPlayers": itoa(numPlayers),
		"numCards":   itoa(numCards),
	})}, nil
}

// SetGameSettings fixes the per-game policy and opens registration.
func (m *Machine) SetGameSettings(st *state.State, gameID uint64, freeDealOrder bool) ([]Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return nil, err
	}
	if g.Phase != state.PhaseCreated {
		return nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	g.FreeDealOrder = freeDealOrder
	g.Phase = state.PhaseRegistration
	return []Event{newEvent(EventGameStarted, map[string]string{
		"gameId":        utoa(gameID),
		"freeDealOrder": boolString(freeDealOrder),
	})}, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Register adds a player. When the N-th player lands the machine aggregates
// the joint key, loads the initial deck, and the first shuffle turn begins.
func (m *Machine) Register(st *state.State, gameID uint64, addr string, pk babyjub.Point, now int64) (int, []Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return 0, nil, err
	}
	if g.Phase != state.PhaseRegistration {
		return 0, nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	if addr == "" {
		return 0, nil, errorsmod.Wrap(ErrInvalidRequest, "missing addr")
	}
	if g.PlayerIndex(addr) >= 0 {
		return 0, nil, errorsmod.Wrapf(ErrInvalidRequest, "addr %s already registered", addr)
	}
	if !babyjub.OnCurve(pk) {
		return 0, nil, errorsmod.Wrapf(ErrInvalidPublicKey, "addr=%s", addr)
	}

	playerID := len(g.Players)
	pkX, pkY := state.FormatPoint(pk)
	g.Players = append(g.Players, state.Player{Addr: addr, PkX: pkX, PkY: pkY})
	g.Turn = len(g.Players)

	events := []Event{newEvent(EventRegister, map[string]string{
		"gameId":   utoa(gameID),
		"addr":     addr,
		"playerId": itoa(playerID),
	})}

	if len(g.Players) == g.NumPlayers {
		if err := m.startShuffle(g); err != nil {
			// Roll back the append; aggregation failures must not leave a
			// half-registered game behind.
			g.Players = g.Players[:playerID]
			g.Turn = len(g.Players)
			return 0, nil, err
		}
		m.armDeadline(g, now)
		events = append(events, playerTurnEvent(gameID, 0, string(state.PhaseShuffle)))
	}
	return playerID, events, nil
}

func (m *Machine) startShuffle(g *state.Game) error {
	pks := make([]babyjub.Point, len(g.Players))
	for i, p := range g.Players {
		pt, err := state.ParsePoint(p.PkX, p.PkY)
		if err != nil {
			return errorsmod.Wrap(ErrInvalidRequest, err.Error())
		}
		pks[i] = pt
	}
	agg, err := babyjub.AggregateKeys(pks)
	if err != nil {
		return errorsmod.Wrap(ErrInvalidPublicKey, err.Error())
	}
	initial, err := deck.Initial(g.NumCards)
	if err != nil {
		return errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}

	g.AggPkX, g.AggPkY = state.FormatPoint(agg)
	g.Nonce = state.FormatElement(gameNonce(g.ID, agg))
	g.Deck = state.FormatDeck(initial)
	g.Phase = state.PhaseShuffle
	g.Turn = 0
	return nil
}

// gameNonce binds every shuffle proof of a game to (gameId, aggregatedPk).
func gameNonce(gameID uint64, agg babyjub.Point) babyjub.Element {
	h := sha256.New()
	h.Write([]byte(nonceDomain))
	var idb [8]byte
	binary.LittleEndian.PutUint64(idb[:], gameID)
	h.Write(idb[:])
	xb := agg.X.Bytes()
	yb := agg.Y.Bytes()
	h.Write(xb[:])
	h.Write(yb[:])
	var e babyjub.Element
	e.SetBigInt(new(big.Int).SetBytes(h.Sum(nil)))
	return e
}

func (m *Machine) armDeadline(g *state.Game, now int64) {
	if m.cfg.TurnTimeoutSecs == 0 {
		g.TurnDeadline = 0
		return
	}
	g.TurnDeadline = now + int64(m.cfg.TurnTimeoutSecs)
}

// Shuffle applies one player's permute+rerandomize turn. The proof is bound
// to the stored deck and the submitted deck through the recomputed public
// signals; a verifier rejection leaves the game unchanged.
func (m *Machine) Shuffle(st *state.State, gameID uint64, caller string, proof groth16.Proof, newDeck deck.Compressed, now int64) ([]Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return nil, err
	}
	if g.Phase != state.PhaseShuffle {
		return nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	idx := g.PlayerIndex(caller)
	if idx < 0 || idx != g.Turn {
		return nil, errorsmod.Wrapf(ErrNotYourTurn, "caller=%s turn=%d", caller, g.Turn)
	}
	if newDeck.Size() != g.NumCards || len(newDeck.X1) != g.NumCards ||
		newDeck.Selector0 == nil || newDeck.Selector1 == nil {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "deck shape: got %d cards, want %d", newDeck.Size(), g.NumCards)
	}

	cur, err := state.ParseDeck(g.Deck)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	agg, err := state.ParsePoint(g.AggPkX, g.AggPkY)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	nonce, err := state.ParseElement(g.Nonce)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}

	signals, err := shuffle.Signals(nonce, agg, cur, newDeck).Flatten()
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	if err := m.verifier.Verify(m.keys.shuffleVK(g.NumCards), proof, signals); err != nil {
		return nil, errorsmod.Wrap(ErrProofFailed, err.Error())
	}

	g.Deck = state.FormatDeck(newDeck)
	g.Turn++
	events := []Event{newEvent(EventDeckUpdated, map[string]string{
		"gameId": utoa(gameID),
		"turn":   itoa(idx),
	})}
	if g.Turn == g.NumPlayers {
		g.Phase = state.PhaseDeal
		g.Turn = 0
		g.Cards = make([]*state.CardDeal, g.NumCards)
		for i := range g.Cards {
			g.Cards[i] = &state.CardDeal{Recipient: state.RecipientUnset}
		}
		g.CardsToDeal = make([]uint64, g.NumPlayers)
		events = append(events, playerTurnEvent(gameID, -1, string(state.PhaseDeal)))
	} else {
		events = append(events, playerTurnEvent(gameID, g.Turn, string(state.PhaseShuffle)))
	}
	m.armDeadline(g, now)
	return events, nil
}

// Tick escalates a stalled turn past its deadline into the terminal error
// state. Anyone may call it; liveness is delegated to clients.
func (m *Machine) Tick(st *state.State, gameID uint64, now int64) ([]Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return nil, err
	}
	switch g.Phase {
	case state.PhaseShuffle, state.PhaseDeal, state.PhaseOpen:
	default:
		return nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	if g.TurnDeadline == 0 || now < g.TurnDeadline {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "turn deadline not reached")
	}
	prev := g.Phase
	g.Phase = state.PhaseError
	return []Event{newEvent(EventGameErrored, map[string]string{
		"gameId": utoa(gameID),
		"phase":  string(prev),
		"reason": "turn timeout",
	})}, nil
}

// Close completes a game whose reveals are done. External settlement decides
// when; the machine only gates on the phase.
func (m *Machine) Close(st *state.State, gameID uint64) ([]Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return nil, err
	}
	if g.Phase != state.PhaseOpen {
		return nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	g.Phase = state.PhaseComplete
	g.TurnDeadline = 0
	return []Event{newEvent(EventGameComplete, map[string]string{
		"gameId": utoa(gameID),
	})}, nil
}
