// Package app exposes the game state machine as a CometBFT ABCI application:
// the shared store with authenticated writes, serialized tx execution, and an
// indexed event stream.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	abci "github.com/cometbft/cometbft/abci/types"

	errorsmod "cosmossdk.io/errors"

	"github.com/Manta-Network/zkShuffle/internal/codec"
	"github.com/Manta-Network/zkShuffle/internal/game"
	"github.com/Manta-Network/zkShuffle/internal/state"
)

const (
	AppVersion uint64 = 1
)

type App struct {
	*abci.BaseApplication

	home string

	mu       sync.Mutex
	st       *state.State
	machine  *game.Machine
	lastHash []byte
}

func New(home string, machine *game.Machine) (*App, error) {
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &App{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		st:              st,
		machine:         machine,
		lastHash:        st.AppHash(),
	}
	return a, nil
}

// NewInMemory builds an app that never persists; used by the in-process
// store and by tests.
func NewInMemory(machine *game.Machine) *App {
	return &App{
		BaseApplication: abci.NewBaseApplication(),
		st:              state.NewState(),
		machine:         machine,
		lastHash:        state.NewState().AppHash(),
	}
}

func (a *App) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "zkShuffle",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *App) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	// Structural validation only; signatures are checked at delivery.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *App) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	return &abci.InitChainResponse{}, nil
}

func (a *App) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	now := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, now)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *App) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	if a.home == "" {
		return &abci.CommitResponse{}, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit not to lie; return the error so the node
		// halts loudly instead of diverging.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *App) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/games":
		ids := make([]uint64, 0, len(a.st.Games))
		for id := range a.st.Games {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/game/"):
		rest := strings.TrimPrefix(path, "/game/")
		parts := strings.Split(rest, "/")
		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid game id", Height: a.st.Height}, nil
		}
		g, ok := a.st.Games[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "game not found", Height: a.st.Height}, nil
		}
		switch {
		case len(parts) == 1:
			b, _ := json.Marshal(g)
			return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
		case len(parts) == 2 && parts[1] == "deck":
			b, _ := json.Marshal(g.Deck)
			return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
		case len(parts) == 2 && parts[1] == "aggpk":
			b, _ := json.Marshal(map[string]string{"x": g.AggPkX, "y": g.AggPkY})
			return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
		case len(parts) == 3 && parts[1] == "search":
			card, err := strconv.Atoi(parts[2])
			if err != nil {
				return &abci.QueryResponse{Code: 1, Log: "invalid card index", Height: a.st.Height}, nil
			}
			idx, err := a.machine.Search(a.st, id, card)
			if err != nil {
				_, code, log := errorsmod.ABCIInfo(err, false)
				return &abci.QueryResponse{Code: code, Log: log, Height: a.st.Height}, nil
			}
			b, _ := json.Marshal(idx)
			return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
		}
		return &abci.QueryResponse{Code: 1, Log: "unknown game query", Height: a.st.Height}, nil

	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

// errResult maps a state-machine error into a tx result through the
// registered error codes.
func errResult(err error) *abci.ExecTxResult {
	codespace, code, log := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Code: code, Codespace: codespace, Log: log}
}

func eventsResult(events []game.Event) *abci.ExecTxResult {
	out := &abci.ExecTxResult{Code: 0}
	for _, ev := range events {
		out.Events = append(out.Events, toABCIEvent(ev))
	}
	return out
}

func toABCIEvent(ev game.Event) abci.Event {
	keys := make([]string, 0, len(ev.Attributes))
	for k := range ev.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := abci.Event{Type: ev.Type}
	for _, k := range keys {
		out.Attributes = append(out.Attributes, abci.EventAttribute{Key: k, Value: ev.Attributes[k], Index: true})
	}
	return out
}

func badValue(typ string) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: 1, Log: fmt.Sprintf("bad %s value", typ)}
}
