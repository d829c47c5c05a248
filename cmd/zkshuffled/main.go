package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Manta-Network/zkShuffle/internal/app"
	"github.com/Manta-Network/zkShuffle/internal/game"
	"github.com/Manta-Network/zkShuffle/internal/groth16"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zkshuffled",
		Short: "zkShuffle state machine daemon",
	}
	cmd.AddCommand(startCmd())
	return cmd
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the state machine over ABCI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.New()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			log, err := buildLogger(v.GetString("log-level"))
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			verifier, keys, err := buildVerifier(v)
			if err != nil {
				return err
			}
			machine := game.NewMachine(verifier, keys, game.Config{
				TurnTimeoutSecs: v.GetUint64("turn-timeout"),
			})

			a, err := app.New(v.GetString("home"), machine)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			srv, err := server.NewServer(v.GetString("addr"), v.GetString("transport"), a)
			if err != nil {
				return fmt.Errorf("start abci server: %w", err)
			}
			if err := srv.Start(); err != nil {
				return fmt.Errorf("abci server start: %w", err)
			}
			defer func() { _ = srv.Stop() }()

			log.Info("serving",
				zap.String("addr", v.GetString("addr")),
				zap.String("home", v.GetString("home")))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			return nil
		},
	}
	cmd.Flags().String("home", ".zkshuffle", "app home directory (state is stored under <home>/app)")
	cmd.Flags().String("addr", "tcp://127.0.0.1:26658", "ABCI listen address")
	cmd.Flags().String("transport", "socket", "ABCI transport (socket|grpc)")
	cmd.Flags().String("log-level", "info", "log level (debug|info|warn|error)")
	cmd.Flags().Uint64("turn-timeout", 0, "turn deadline in seconds before game/tick may escalate (0 disables)")
	cmd.Flags().Bool("simulated-verifier", false, "accept simulated proofs instead of Groth16 (localnet only)")
	cmd.Flags().String("vk-dir", "", "directory holding shuffle_<n>.vk.json and decrypt.vk.json")
	return cmd
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}
	cfg.Level = lvl
	return cfg.Build()
}

func buildVerifier(v *viper.Viper) (groth16.Verifier, game.KeySet, error) {
	if v.GetBool("simulated-verifier") {
		return groth16.NewSimulatedVerifier(), game.KeySet{}, nil
	}
	dir := v.GetString("vk-dir")
	if dir == "" {
		return nil, game.KeySet{}, fmt.Errorf("either --vk-dir or --simulated-verifier is required")
	}
	keys := game.KeySet{Shuffle: map[int]*groth16.VerifyingKey{}}
	for _, n := range []int{30, 52} {
		vk, err := groth16.LoadVerifyingKey(filepath.Join(dir, fmt.Sprintf("shuffle_%d.vk.json", n)))
		if err != nil {
			return nil, game.KeySet{}, err
		}
		keys.Shuffle[n] = vk
	}
	vk, err := groth16.LoadVerifyingKey(filepath.Join(dir, "decrypt.vk.json"))
	if err != nil {
		return nil, game.KeySet{}, err
	}
	keys.Deal = vk
	return groth16.NewPairingVerifier(), keys, nil
}
