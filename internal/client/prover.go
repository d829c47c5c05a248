package client

import (
	"context"

	"github.com/Manta-Network/zkShuffle/internal/groth16"
	"github.com/Manta-Network/zkShuffle/internal/shuffle"
)

// Prover abstracts the external Groth16 prover. Proof generation is
// CPU-bound and may take tens of seconds; implementations must honor
// context cancellation.
type Prover interface {
	ProveShuffle(ctx context.Context, w *shuffle.Witness) (groth16.Proof, error)
	ProveDeal(ctx context.Context, w *shuffle.DealWitness) (groth16.Proof, error)
}

// SimulatedProver pairs with groth16.SimulatedVerifier for local development
// without proving artifacts.
type SimulatedProver struct{}

func (SimulatedProver) ProveShuffle(_ context.Context, w *shuffle.Witness) (groth16.Proof, error) {
	flat, err := w.Signals.Flatten()
	if err != nil {
		return groth16.Proof{}, err
	}
	return groth16.SimulatedProve(flat), nil
}

func (SimulatedProver) ProveDeal(_ context.Context, w *shuffle.DealWitness) (groth16.Proof, error) {
	return groth16.SimulatedProve(w.Signals.Flatten()), nil
}
