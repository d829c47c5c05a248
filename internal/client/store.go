// Package client is the per-player orchestrator: it polls the shared store,
// builds witnesses, invokes the external prover, and submits the results. The
// store and prover are interfaces so the same loop runs against a CometBFT
// node or an in-process application.
package client

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	pkgerrors "github.com/pkg/errors"

	"github.com/Manta-Network/zkShuffle/internal/app"
	"github.com/Manta-Network/zkShuffle/internal/codec"
	"github.com/Manta-Network/zkShuffle/internal/state"
)

// Store is the client's view of the shared settlement layer: read-only game
// snapshots plus authenticated writes. Writes to the same game are serialized
// by the store.
type Store interface {
	Game(ctx context.Context, gameID uint64) (*state.Game, error)
	Submit(ctx context.Context, tx []byte) error
}

// Signer signs tx envelopes for one account with a monotonically increasing
// nonce.
type Signer struct {
	Addr string
	Key  ed25519.PrivateKey

	mu    sync.Mutex
	nonce uint64
}

func NewSigner(addr string, key ed25519.PrivateKey) *Signer {
	return &Signer{Addr: addr, Key: key}
}

// SignTx wraps a payload into a signed envelope.
func (s *Signer) SignTx(typ string, value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode tx value")
	}
	s.mu.Lock()
	s.nonce++
	nonce := strconv.FormatUint(s.nonce, 10)
	s.mu.Unlock()
	msg := app.TxSignBytes(typ, raw, nonce, s.Addr)
	sig := ed25519.Sign(s.Key, msg)
	return codec.EncodeTx(typ, json.RawMessage(raw), nonce, s.Addr, sig)
}

// RegisterAccountTx builds the bootstrap tx that publishes the signer's
// ed25519 key.
func (s *Signer) RegisterAccountTx() ([]byte, error) {
	pub, ok := s.Key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("client: not an ed25519 key")
	}
	return s.SignTx(app.TxAuthRegisterAccount, codec.AuthRegisterAccountTx{
		Account: s.Addr,
		PubKey:  []byte(pub),
	})
}

// MemStore runs the application in-process: every Submit finalizes a
// single-tx block, which serializes all writers the way a real chain would.
type MemStore struct {
	mu     sync.Mutex
	app    *app.App
	height int64
	now    func() time.Time
}

func NewMemStore(a *app.App, now func() time.Time) *MemStore {
	if now == nil {
		now = time.Now
	}
	return &MemStore{app: a, now: now}
}

func (s *MemStore) Submit(ctx context.Context, tx []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height++
	res, err := s.app.FinalizeBlock(ctx, &abci.FinalizeBlockRequest{
		Height: s.height,
		Time:   s.now(),
		Txs:    [][]byte{tx},
	})
	if err != nil {
		return pkgerrors.Wrap(err, "finalize block")
	}
	if _, err := s.app.Commit(ctx, &abci.CommitRequest{}); err != nil {
		return pkgerrors.Wrap(err, "commit")
	}
	tr := res.TxResults[0]
	if tr.Code != 0 {
		return pkgerrors.Errorf("tx rejected: codespace=%s code=%d: %s", tr.Codespace, tr.Code, tr.Log)
	}
	return nil
}

func (s *MemStore) Game(ctx context.Context, gameID uint64) (*state.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.app.Query(ctx, &abci.QueryRequest{Path: fmt.Sprintf("/game/%d", gameID)})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query game")
	}
	if res.Code != 0 {
		return nil, pkgerrors.Errorf("query game: %s", res.Log)
	}
	var g state.Game
	if err := json.Unmarshal(res.Value, &g); err != nil {
		return nil, pkgerrors.Wrap(err, "decode game")
	}
	return &g, nil
}

// Search resolves an opened card through the store.
func (s *MemStore) Search(ctx context.Context, gameID uint64, cardIdx int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.app.Query(ctx, &abci.QueryRequest{Path: fmt.Sprintf("/game/%d/search/%d", gameID, cardIdx)})
	if err != nil {
		return 0, pkgerrors.Wrap(err, "query search")
	}
	if res.Code != 0 {
		return 0, pkgerrors.Errorf("query search: %s", res.Log)
	}
	var idx int
	if err := json.Unmarshal(res.Value, &idx); err != nil {
		return 0, pkgerrors.Wrap(err, "decode search result")
	}
	return idx, nil
}
