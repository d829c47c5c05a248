package client

import (
	"context"
	"io"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Manta-Network/zkShuffle/internal/app"
	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/codec"
	"github.com/Manta-Network/zkShuffle/internal/deck"
	"github.com/Manta-Network/zkShuffle/internal/game"
	"github.com/Manta-Network/zkShuffle/internal/shuffle"
	"github.com/Manta-Network/zkShuffle/internal/state"
)

const (
	// DefaultPollInterval is the canonical poll base; backoff doubles from
	// here while the player has nothing to do.
	DefaultPollInterval = 5 * time.Second
	maxPollInterval     = 80 * time.Second
)

// Orchestrator drives one player's duties for one game.
type Orchestrator struct {
	store  Store
	prover Prover
	signer *Signer
	keys   babyjub.KeyPair
	gameID uint64

	log  *zap.Logger
	rng  io.Reader
	poll time.Duration

	registered bool
	accountSet bool
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.poll = d }
}

// WithRand overrides the entropy source for permutations and scalars.
func WithRand(r io.Reader) Option {
	return func(o *Orchestrator) { o.rng = r }
}

func New(store Store, prover Prover, signer *Signer, keys babyjub.KeyPair, gameID uint64, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		prover: prover,
		signer: signer,
		keys:   keys,
		gameID: gameID,
		log:    zap.NewNop(),
		poll:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) submit(ctx context.Context, typ string, value any) error {
	tx, err := o.signer.SignTx(typ, value)
	if err != nil {
		return err
	}
	return pkgerrors.Wrapf(o.store.Submit(ctx, tx), "submit %s", typ)
}

// Run polls the game until it completes or errors out, acting whenever a
// snapshot shows a duty for this player. Polling backs off exponentially
// while idle and resets after every action.
func (o *Orchestrator) Run(ctx context.Context) error {
	wait := o.poll
	for {
		acted, err := o.Step(ctx)
		if err != nil {
			return err
		}
		g, err := o.store.Game(ctx, o.gameID)
		if err == nil {
			switch g.Phase {
			case state.PhaseComplete:
				o.log.Info("game complete", zap.Uint64("gameId", o.gameID))
				return nil
			case state.PhaseError:
				return pkgerrors.Errorf("game %d entered error state", o.gameID)
			}
		}
		if acted {
			wait = o.poll
		} else if wait < maxPollInterval {
			wait *= 2
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Step inspects one snapshot and performs at most one round of duties.
// It reports whether anything was submitted.
func (o *Orchestrator) Step(ctx context.Context) (bool, error) {
	if !o.accountSet {
		tx, err := o.signer.RegisterAccountTx()
		if err != nil {
			return false, err
		}
		if err := o.store.Submit(ctx, tx); err != nil {
			return false, pkgerrors.Wrap(err, "register account")
		}
		o.accountSet = true
		return true, nil
	}

	g, err := o.store.Game(ctx, o.gameID)
	if err != nil {
		// The game may not exist yet; treat as idle.
		o.log.Debug("game snapshot unavailable", zap.Error(err))
		return false, nil
	}

	switch g.Phase {
	case state.PhaseRegistration:
		return o.maybeRegister(ctx, g)
	case state.PhaseShuffle:
		return o.maybeShuffle(ctx, g)
	case state.PhaseDeal:
		return o.maybeDeal(ctx, g)
	case state.PhaseOpen:
		return o.maybeOpen(ctx, g)
	default:
		return false, nil
	}
}

func (o *Orchestrator) maybeRegister(ctx context.Context, g *state.Game) (bool, error) {
	if o.registered || g.PlayerIndex(o.signer.Addr) >= 0 {
		o.registered = true
		return false, nil
	}
	pkX, pkY := state.FormatPoint(o.keys.Pk)
	err := o.submit(ctx, app.TxGameRegister, codec.GameRegisterTx{
		GameID: o.gameID,
		Addr:   o.signer.Addr,
		PkX:    pkX,
		PkY:    pkY,
	})
	if err != nil {
		return false, err
	}
	o.registered = true
	o.log.Info("registered", zap.Uint64("gameId", o.gameID))
	return true, nil
}

func (o *Orchestrator) maybeShuffle(ctx context.Context, g *state.Game) (bool, error) {
	idx := g.PlayerIndex(o.signer.Addr)
	if idx < 0 || idx != g.Turn {
		return false, nil
	}
	cur, err := state.ParseDeck(g.Deck)
	if err != nil {
		return false, pkgerrors.Wrap(err, "parse deck")
	}
	agg, err := state.ParsePoint(g.AggPkX, g.AggPkY)
	if err != nil {
		return false, pkgerrors.Wrap(err, "parse aggregated key")
	}
	nonce, err := state.ParseElement(g.Nonce)
	if err != nil {
		return false, pkgerrors.Wrap(err, "parse nonce")
	}

	perm, err := shuffle.SamplePermutation(o.rng, g.NumCards)
	if err != nil {
		return false, err
	}
	rands, err := shuffle.SampleRandomness(o.rng, g.NumCards)
	if err != nil {
		return false, err
	}
	deckOut, w, err := shuffle.Build(cur, perm, rands, agg, nonce)
	if err != nil {
		return false, pkgerrors.Wrap(err, "build shuffle witness")
	}
	proof, err := o.prover.ProveShuffle(ctx, w)
	if err != nil {
		return false, pkgerrors.Wrap(err, "prove shuffle")
	}
	words, err := codec.FormatProof(proof)
	if err != nil {
		return false, err
	}

	stored := state.FormatDeck(deckOut)
	err = o.submit(ctx, app.TxGameShuffle, codec.GameShuffleTx{
		GameID:    o.gameID,
		Caller:    o.signer.Addr,
		Proof:     words,
		X0:        stored.X0,
		X1:        stored.X1,
		Selector0: stored.Selector0,
		Selector1: stored.Selector1,
	})
	if err != nil {
		return false, err
	}
	o.log.Info("shuffle submitted", zap.Uint64("gameId", o.gameID), zap.Int("turn", idx))
	return true, nil
}

func (o *Orchestrator) maybeDeal(ctx context.Context, g *state.Game) (bool, error) {
	idx := g.PlayerIndex(o.signer.Addr)
	if idx < 0 {
		return false, nil
	}
	acted := false
	for i := 0; i < g.NumCards; i++ {
		if game.NextDealer(g, i) != idx {
			continue
		}
		if err := o.submitDealShare(ctx, g, i, idx); err != nil {
			return acted, err
		}
		acted = true
		// The snapshot is stale after a submission; pick up the rest of the
		// cards on the next poll.
		break
	}
	return acted, nil
}

func (o *Orchestrator) submitDealShare(ctx context.Context, g *state.Game, cardIdx, idx int) error {
	c := g.Cards[cardIdx]
	tx := codec.GameDealTx{
		GameID:    o.gameID,
		Caller:    o.signer.Addr,
		CardIdx:   cardIdx,
		PlayerIdx: idx,
	}
	var ct babyjub.Ciphertext
	if c.Explicit {
		var err error
		ct, err = parseCardCiphertext(c)
		if err != nil {
			return err
		}
	} else {
		d, err := state.ParseDeck(g.Deck)
		if err != nil {
			return pkgerrors.Wrap(err, "parse deck")
		}
		var deltas [2]babyjub.Element
		ct, deltas, err = shuffle.PrepareDecryptData(d, cardIdx)
		if err != nil {
			return pkgerrors.Wrap(err, "prepare decrypt data")
		}
		tx.InitDelta0 = state.FormatElement(deltas[0])
		tx.InitDelta1 = state.FormatElement(deltas[1])
	}

	w, err := shuffle.BuildDealWitness(ct, o.keys)
	if err != nil {
		return pkgerrors.Wrap(err, "build deal witness")
	}
	proof, err := o.prover.ProveDeal(ctx, w)
	if err != nil {
		return pkgerrors.Wrap(err, "prove deal")
	}
	tx.Proof, err = codec.FormatProof(proof)
	if err != nil {
		return err
	}
	tx.ShareX, tx.ShareY = state.FormatPoint(w.Share)

	if err := o.submit(ctx, app.TxGameDeal, tx); err != nil {
		return err
	}
	o.log.Info("deal share submitted",
		zap.Uint64("gameId", o.gameID),
		zap.Int("cardIdx", cardIdx))
	return nil
}

func (o *Orchestrator) maybeOpen(ctx context.Context, g *state.Game) (bool, error) {
	idx := g.PlayerIndex(o.signer.Addr)
	if idx < 0 {
		return false, nil
	}
	tx := codec.GameOpenTx{GameID: o.gameID, Caller: o.signer.Addr}
	for i := 0; i < g.NumCards; i++ {
		c := g.Cards[i]
		if c.Recipient != idx || c.Opened {
			continue
		}
		if c.Record != game.NonRecipientMask(g, c) {
			continue
		}
		ct, err := parseCardCiphertext(c)
		if err != nil {
			return false, err
		}
		w, err := shuffle.BuildDealWitness(ct, o.keys)
		if err != nil {
			return false, pkgerrors.Wrap(err, "build open witness")
		}
		proof, err := o.prover.ProveDeal(ctx, w)
		if err != nil {
			return false, pkgerrors.Wrap(err, "prove open")
		}
		words, err := codec.FormatProof(proof)
		if err != nil {
			return false, err
		}
		shareX, shareY := state.FormatPoint(w.Share)
		tx.Cards |= 1 << uint(i)
		tx.Proofs = append(tx.Proofs, words)
		tx.ShareX = append(tx.ShareX, shareX)
		tx.ShareY = append(tx.ShareY, shareY)

		if card := deck.Search(w.Out, g.NumCards); card != deck.CardIndexInvalid {
			o.log.Info("card recovered",
				zap.Uint64("gameId", o.gameID),
				zap.Int("slot", i),
				zap.Int("card", card))
		}
	}
	if tx.Cards == 0 {
		return false, nil
	}
	if err := o.submit(ctx, app.TxGameOpen, tx); err != nil {
		return false, err
	}
	return true, nil
}

func parseCardCiphertext(c *state.CardDeal) (babyjub.Ciphertext, error) {
	c0, err := state.ParsePoint(c.X0, c.Y0)
	if err != nil {
		return babyjub.Ciphertext{}, pkgerrors.Wrap(err, "parse card c0")
	}
	c1, err := state.ParsePoint(c.X1, c.Y1)
	if err != nil {
		return babyjub.Ciphertext{}, pkgerrors.Wrap(err, "parse card c1")
	}
	return babyjub.Ciphertext{C0: c0, C1: c1}, nil
}
