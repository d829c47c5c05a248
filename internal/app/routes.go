package app

import (
	"encoding/json"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/codec"
	"github.com/Manta-Network/zkShuffle/internal/deck"
	"github.com/Manta-Network/zkShuffle/internal/groth16"
)

// Tx route names.
const (
	TxAuthRegisterAccount = "auth/register_account"
	TxGameCreate          = "game/create"
	TxGameSettings        = "game/settings"
	TxGameRegister        = "game/register"
	TxGameShuffle         = "game/shuffle"
	TxGameDealRequest     = "game/deal_request"
	TxGameDeal            = "game/deal"
	TxGameOpen            = "game/open"
	TxGameTick            = "game/tick"
	TxGameClose           = "game/close"
)

func (a *App) deliverTx(txBytes []byte, now int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}

	switch env.Type {
	case TxAuthRegisterAccount:
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		if err := requireRegisterAccountAuth(env, msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := bumpNonce(a.st, env); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		a.st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
		return eventsResult(nil)

	case TxGameCreate:
		var msg codec.GameCreateTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		events, err := a.machine.CreateGame(a.st, msg.GameID, msg.NumPlayers, msg.NumCards)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameSettings:
		var msg codec.GameSettingsTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		events, err := a.machine.SetGameSettings(a.st, msg.GameID, msg.FreeDealOrder)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameRegister:
		var msg codec.GameRegisterTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		if err := requireAccountAuth(a.st, env, msg.Addr); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := bumpNonce(a.st, env); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		pk, err := parsePoint(msg.PkX, msg.PkY)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		_, events, err := a.machine.Register(a.st, msg.GameID, msg.Addr, pk, now)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameShuffle:
		var msg codec.GameShuffleTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := bumpNonce(a.st, env); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		proof, err := codec.ParseProof(msg.Proof)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		newDeck, err := parseDeckTx(msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		events, err := a.machine.Shuffle(a.st, msg.GameID, msg.Caller, proof, newDeck, now)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameDealRequest:
		var msg codec.GameDealRequestTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := bumpNonce(a.st, env); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		events, err := a.machine.DealCardsTo(a.st, msg.GameID, msg.Caller, msg.Cards, msg.Recipient, now)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameDeal:
		var msg codec.GameDealTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := bumpNonce(a.st, env); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		proof, err := codec.ParseProof(msg.Proof)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		share, err := parsePoint(msg.ShareX, msg.ShareY)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		var deltas *[2]babyjub.Element
		if msg.InitDelta0 != "" || msg.InitDelta1 != "" {
			d0, err := codec.ParseElement(msg.InitDelta0)
			if err != nil {
				return &abci.ExecTxResult{Code: 1, Log: err.Error()}
			}
			d1, err := codec.ParseElement(msg.InitDelta1)
			if err != nil {
				return &abci.ExecTxResult{Code: 1, Log: err.Error()}
			}
			deltas = &[2]babyjub.Element{d0, d1}
		}
		events, err := a.machine.Deal(a.st, msg.GameID, msg.Caller, msg.CardIdx, msg.PlayerIdx, proof, share, deltas, now)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameOpen:
		var msg codec.GameOpenTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := bumpNonce(a.st, env); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if len(msg.Proofs) != len(msg.ShareX) || len(msg.ShareX) != len(msg.ShareY) {
			return &abci.ExecTxResult{Code: 1, Log: "ragged open batch"}
		}
		proofs := make([]groth16.Proof, len(msg.Proofs))
		shares := make([]babyjub.Point, len(msg.Proofs))
		for i := range msg.Proofs {
			p, err := codec.ParseProof(msg.Proofs[i])
			if err != nil {
				return &abci.ExecTxResult{Code: 1, Log: err.Error()}
			}
			proofs[i] = p
			s, err := parsePoint(msg.ShareX[i], msg.ShareY[i])
			if err != nil {
				return &abci.ExecTxResult{Code: 1, Log: err.Error()}
			}
			shares[i] = s
		}
		events, err := a.machine.Open(a.st, msg.GameID, msg.Caller, msg.Cards, proofs, shares, now)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameTick:
		var msg codec.GameTickTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		events, err := a.machine.Tick(a.st, msg.GameID, now)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	case TxGameClose:
		var msg codec.GameCloseTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return badValue(env.Type)
		}
		if err := requireAccountAuth(a.st, env, msg.Caller); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := bumpNonce(a.st, env); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		events, err := a.machine.Close(a.st, msg.GameID)
		if err != nil {
			return errResult(err)
		}
		return eventsResult(events)

	default:
		return &abci.ExecTxResult{Code: 1, Log: "unknown tx type: " + env.Type}
	}
}

func parsePoint(x, y string) (babyjub.Point, error) {
	ex, err := codec.ParseElement(x)
	if err != nil {
		return babyjub.Point{}, err
	}
	ey, err := codec.ParseElement(y)
	if err != nil {
		return babyjub.Point{}, err
	}
	return babyjub.Point{X: ex, Y: ey}, nil
}

func parseDeckTx(msg codec.GameShuffleTx) (deck.Compressed, error) {
	out := deck.Compressed{
		X0: make([]babyjub.Element, len(msg.X0)),
		X1: make([]babyjub.Element, len(msg.X1)),
	}
	var err error
	for i := range msg.X0 {
		if out.X0[i], err = codec.ParseElement(msg.X0[i]); err != nil {
			return deck.Compressed{}, err
		}
	}
	for i := range msg.X1 {
		if out.X1[i], err = codec.ParseElement(msg.X1[i]); err != nil {
			return deck.Compressed{}, err
		}
	}
	if out.Selector0, err = codec.ParseBigInt(msg.Selector0); err != nil {
		return deck.Compressed{}, err
	}
	if out.Selector1, err = codec.ParseBigInt(msg.Selector1); err != nil {
		return deck.Compressed{}, err
	}
	return out, nil
}
