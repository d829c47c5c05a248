package game

import (
	"errors"

	errorsmod "cosmossdk.io/errors"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
	"github.com/Manta-Network/zkShuffle/internal/groth16"
	"github.com/Manta-Network/zkShuffle/internal/state"
)

// DealCardsTo designates which cards are owed to a player. Non-recipients
// then submit one decryption share per designated card.
func (m *Machine) DealCardsTo(st *state.State, gameID uint64, caller string, cardsMask uint64, recipient int, now int64) ([]Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return nil, err
	}
	if g.Phase != state.PhaseDeal {
		return nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	if g.PlayerIndex(caller) < 0 {
		return nil, errorsmod.Wrapf(ErrNotYourTurn, "caller=%s not registered", caller)
	}
	if recipient < 0 || recipient >= g.NumPlayers {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "recipient=%d out of range", recipient)
	}
	if cardsMask == 0 {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "empty cards mask")
	}
	if g.NumCards < 64 && cardsMask>>uint(g.NumCards) != 0 {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "cards mask exceeds deck size %d", g.NumCards)
	}
	// Validate the whole mask before mutating anything.
	for i := 0; i < g.NumCards; i++ {
		if cardsMask&(1<<uint(i)) == 0 {
			continue
		}
		c := g.Cards[i]
		if c.Recipient != state.RecipientUnset {
			return nil, errorsmod.Wrapf(ErrDoubleDeal, "card %d already requested for player %d", i, c.Recipient)
		}
	}

	events := []Event{newEvent(EventDealRequested, map[string]string{
		"gameId":    utoa(gameID),
		"cards":     utoa(cardsMask),
		"recipient": itoa(recipient),
	})}
	for i := 0; i < g.NumCards; i++ {
		if cardsMask&(1<<uint(i)) == 0 {
			continue
		}
		g.Cards[i].Recipient = recipient
		g.CardsToDeal[recipient] |= 1 << uint(i)
		if next := NextDealer(g, i); next >= 0 {
			events = append(events, playerTurnEvent(gameID, next, string(state.PhaseDeal)))
		}
	}
	m.armDeadline(g, now)
	return events, nil
}

// NextDealer returns the next expected share submitter for card i under the
// sequential convention: the lowest-index non-recipient player whose bit in
// the deal record is still unset. -1 means no share is owed.
func NextDealer(g *state.Game, i int) int {
	c := g.Cards[i]
	if c.Recipient == state.RecipientUnset {
		return -1
	}
	for j := 0; j < g.NumPlayers; j++ {
		if j == c.Recipient {
			continue
		}
		if c.Record&(1<<uint(j)) == 0 {
			return j
		}
	}
	return -1
}

// NonRecipientMask is the deal record value at which only the recipient's
// own share is missing.
func NonRecipientMask(g *state.Game, c *state.CardDeal) uint64 {
	return g.FullMask() &^ (1 << uint(c.Recipient))
}

// cardCiphertext resolves the card's current ciphertext. Until the first
// share lands the card lives in the compressed deck and the caller must
// supply the canonical deltas; afterwards the explicit coordinates stored on
// the deal record are authoritative.
func cardCiphertext(g *state.Game, i int, initDeltas *[2]babyjub.Element) (babyjub.Ciphertext, error) {
	c := g.Cards[i]
	if c.Explicit {
		c0, err := state.ParsePoint(c.X0, c.Y0)
		if err != nil {
			return babyjub.Ciphertext{}, errorsmod.Wrap(ErrInvalidRequest, err.Error())
		}
		c1, err := state.ParsePoint(c.X1, c.Y1)
		if err != nil {
			return babyjub.Ciphertext{}, errorsmod.Wrap(ErrInvalidRequest, err.Error())
		}
		return babyjub.Ciphertext{C0: c0, C1: c1}, nil
	}
	if initDeltas == nil {
		return babyjub.Ciphertext{}, errorsmod.Wrapf(ErrIllFormedDelta, "card %d needs initial deltas", i)
	}
	d, err := state.ParseDeck(g.Deck)
	if err != nil {
		return babyjub.Ciphertext{}, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	ys, err := d.DecompressCard(i, *initDeltas)
	if err != nil {
		if errors.Is(err, deck.ErrIllFormedSelector) {
			return babyjub.Ciphertext{}, errorsmod.Wrap(ErrIllFormedSelector, err.Error())
		}
		return babyjub.Ciphertext{}, errorsmod.Wrap(ErrIllFormedDelta, err.Error())
	}
	return babyjub.Ciphertext{
		C0: babyjub.Point{X: d.X0[i], Y: ys[0]},
		C1: babyjub.Point{X: d.X1[i], Y: ys[1]},
	}, nil
}

// verifyShare checks the decrypt proof for one submitted share against the
// card's current ciphertext and the player's registered key, returning the
// updated partial plaintext c1 - share.
func (m *Machine) verifyShare(g *state.Game, ct babyjub.Ciphertext, playerIdx int, share babyjub.Point, proof groth16.Proof) (babyjub.Point, error) {
	if !share.IsZero() && !babyjub.OnCurve(share) {
		return babyjub.Point{}, errorsmod.Wrap(ErrProofFailed, "share not on curve")
	}
	pk, err := state.ParsePoint(g.Players[playerIdx].PkX, g.Players[playerIdx].PkY)
	if err != nil {
		return babyjub.Point{}, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	out := babyjub.PointSub(ct.C1, share)
	signals := groth16.DealSignals{Out: out, C0: ct.C0, C1: ct.C1, Pk: pk}
	if err := m.verifier.Verify(m.keys.Deal, proof, signals.Flatten()); err != nil {
		return babyjub.Point{}, errorsmod.Wrap(ErrProofFailed, err.Error())
	}
	return out, nil
}

// Deal accepts one non-recipient decryption share for a designated card.
// Submitters follow the sequential order from NextDealer unless the game was
// configured with FreeDealOrder.
func (m *Machine) Deal(st *state.State, gameID uint64, caller string, cardIdx, playerIdx int, proof groth16.Proof, share babyjub.Point, initDeltas *[2]babyjub.Element, now int64) ([]Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return nil, err
	}
	if g.Phase != state.PhaseDeal {
		return nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	if cardIdx < 0 || cardIdx >= g.NumCards {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "card %d out of range", cardIdx)
	}
	idx := g.PlayerIndex(caller)
	if idx < 0 || idx != playerIdx {
		return nil, errorsmod.Wrapf(ErrNotYourTurn, "caller=%s playerIdx=%d", caller, playerIdx)
	}
	c := g.Cards[cardIdx]
	if c.Recipient == state.RecipientUnset {
		return nil, errorsmod.Wrapf(ErrInvalidState, "card %d not requested", cardIdx)
	}
	if playerIdx == c.Recipient {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "recipient reveals via open, not deal")
	}
	if c.Record&(1<<uint(playerIdx)) != 0 {
		return nil, errorsmod.Wrapf(ErrDoubleDeal, "card %d player %d", cardIdx, playerIdx)
	}
	if !g.FreeDealOrder {
		if expect := NextDealer(g, cardIdx); expect != playerIdx {
			return nil, errorsmod.Wrapf(ErrNotYourTurn, "card %d expects player %d", cardIdx, expect)
		}
	}

	ct, err := cardCiphertext(g, cardIdx, initDeltas)
	if err != nil {
		return nil, err
	}
	out, err := m.verifyShare(g, ct, playerIdx, share, proof)
	if err != nil {
		return nil, err
	}

	// Commit.
	c.X0, c.Y0 = state.FormatPoint(ct.C0)
	c.X1, c.Y1 = state.FormatPoint(out)
	c.Explicit = true
	c.Record |= 1 << uint(playerIdx)

	events := []Event{newEvent(EventCardDealt, map[string]string{
		"gameId":    utoa(gameID),
		"cardIdx":   itoa(cardIdx),
		"playerIdx": itoa(playerIdx),
	})}
	if next := NextDealer(g, cardIdx); next >= 0 {
		events = append(events, playerTurnEvent(gameID, next, string(state.PhaseDeal)))
	}
	if m.allRequestedDealt(g) {
		g.Phase = state.PhaseOpen
		events = append(events, playerTurnEvent(gameID, -1, string(state.PhaseOpen)))
	}
	m.armDeadline(g, now)
	return events, nil
}

// allRequestedDealt reports whether every designated card has collected all
// non-recipient shares, the Deal -> Open condition.
func (m *Machine) allRequestedDealt(g *state.Game) bool {
	any := false
	for _, c := range g.Cards {
		if c.Recipient == state.RecipientUnset {
			continue
		}
		any = true
		if c.Record != NonRecipientMask(g, c) && c.Record != g.FullMask() {
			return false
		}
	}
	return any
}

// Open publishes the recipients' final shares for the cards in cardsMask,
// making each card's record full so Search resolves. The caller must be the
// recipient of every card in the mask.
func (m *Machine) Open(st *state.State, gameID uint64, caller string, cardsMask uint64, proofs []groth16.Proof, shares []babyjub.Point, now int64) ([]Event, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return nil, err
	}
	if g.Phase != state.PhaseOpen {
		return nil, errorsmod.Wrapf(ErrInvalidState, "gameId=%d phase=%s", gameID, g.Phase)
	}
	idx := g.PlayerIndex(caller)
	if idx < 0 {
		return nil, errorsmod.Wrapf(ErrNotYourTurn, "caller=%s not registered", caller)
	}
	if cardsMask == 0 {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "empty cards mask")
	}

	// Collect and validate the full batch before mutating anything.
	type pending struct {
		card  int
		plain babyjub.Point
	}
	var batch []pending
	k := 0
	for i := 0; i < g.NumCards; i++ {
		if cardsMask&(1<<uint(i)) == 0 {
			continue
		}
		if k >= len(proofs) || k >= len(shares) {
			return nil, errorsmod.Wrapf(ErrInvalidRequest, "mask wants more proofs/shares than supplied")
		}
		c := g.Cards[i]
		if c.Recipient != idx {
			return nil, errorsmod.Wrapf(ErrNotYourTurn, "card %d belongs to player %d", i, c.Recipient)
		}
		if c.Record&(1<<uint(idx)) != 0 {
			return nil, errorsmod.Wrapf(ErrDoubleDeal, "card %d already opened", i)
		}
		if c.Record != NonRecipientMask(g, c) {
			return nil, errorsmod.Wrapf(ErrCardNotFullyDecrypted, "card %d record=%b", i, c.Record)
		}
		ct, err := cardCiphertext(g, i, nil)
		if err != nil {
			return nil, err
		}
		plain, err := m.verifyShare(g, ct, idx, shares[k], proofs[k])
		if err != nil {
			return nil, err
		}
		batch = append(batch, pending{card: i, plain: plain})
		k++
	}
	if len(batch) == 0 {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "no cards selected")
	}

	events := make([]Event, 0, len(batch))
	for _, p := range batch {
		c := g.Cards[p.card]
		c.Record |= 1 << uint(idx)
		c.Opened = true
		c.PlainX, c.PlainY = state.FormatPoint(p.plain)
		events = append(events, newEvent(EventCardOpened, map[string]string{
			"gameId":    utoa(gameID),
			"cardIdx":   itoa(p.card),
			"playerIdx": itoa(idx),
		}))
	}
	m.armDeadline(g, now)
	return events, nil
}

// Search maps a fully decrypted card back to its index in the initial deck.
func (m *Machine) Search(st *state.State, gameID uint64, cardIdx int) (int, error) {
	g, err := findGame(st, gameID)
	if err != nil {
		return deck.CardIndexInvalid, err
	}
	if cardIdx < 0 || cardIdx >= g.NumCards || g.Cards == nil {
		return deck.CardIndexInvalid, errorsmod.Wrapf(ErrInvalidRequest, "card %d out of range", cardIdx)
	}
	c := g.Cards[cardIdx]
	if c.Record != g.FullMask() || !c.Opened {
		return deck.CardIndexInvalid, errorsmod.Wrapf(ErrCardNotFullyDecrypted, "card %d record=%b", cardIdx, c.Record)
	}
	plain, err := state.ParsePoint(c.PlainX, c.PlainY)
	if err != nil {
		return deck.CardIndexInvalid, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	return deck.Search(plain, g.NumCards), nil
}
