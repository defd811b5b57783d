package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rangelak/TorrentClients/internal/config"
	"github.com/rangelak/TorrentClients/internal/decoder"
	"github.com/rangelak/TorrentClients/internal/logic"
	"github.com/spf13/afero"
	"github.com/ztrue/tracerr"
)

func main() {
	cfg := config.Default()
	var tracePath string
	var outputPath string
	var logPath string
	var logLevel string
	var policy string
	flag.StringVar(&tracePath, "trace", "swarm.trace", "Specify the recorded swarm trace to replay")
	flag.StringVar(&outputPath, "output", "decisions.bencode", "Specify where the decisions are written")
	flag.StringVar(&logPath, "log", "log.txt", "Specify the log file")
	flag.StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warn or error")
	flag.StringVar(&policy, "policy", string(cfg.Policy), fmt.Sprintf("Upload policy, one of %v", config.Policies))
	flag.IntVar(&cfg.UploadCapacity, "capacity", cfg.UploadCapacity, "Upload capacity in blocks per round")
	flag.IntVar(&cfg.MaxRequestsPerPeer, "max-requests", cfg.MaxRequestsPerPeer, "Maximum requests sent to a single peer per round")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Seed of the tie breaking shuffle")
	flag.Float64Var(&cfg.OptimisticFraction, "optimistic-fraction", cfg.OptimisticFraction, "Share of capacity kept for optimistic unchoking (propshare)")
	flag.IntVar(&cfg.Slots, "slots", cfg.Slots, "Upload slots (tft, std, tourney)")
	flag.IntVar(&cfg.OptimisticSlots, "optimistic-slots", cfg.OptimisticSlots, "Optimistic upload slots (tft, std, tourney)")
	flag.IntVar(&cfg.Lookback, "lookback", cfg.Lookback, "Rounds of history used to rank peers (tft)")
	flag.IntVar(&cfg.RotationPeriod, "rotation", cfg.RotationPeriod, "Rounds between optimistic unchoke rotations (tft)")
	flag.Float64Var(&cfg.InitialPrice, "initial-price", cfg.InitialPrice, "Initial price of a peer, 0 derives it from capacity (tyrant)")
	flag.Float64Var(&cfg.Growth, "growth", cfg.Growth, "Price growth when a peer chokes us (tyrant)")
	flag.Float64Var(&cfg.Shrink, "shrink", cfg.Shrink, "Price decay once a peer reliably unchokes us (tyrant)")
	flag.IntVar(&cfg.ConfidenceRounds, "confidence", cfg.ConfidenceRounds, "Rounds unchoked before lowering a price (tyrant)")
	flag.IntVar(&cfg.AssumedPeerSlots, "peer-slots", cfg.AssumedPeerSlots, "Upload slots assumed for other peers (tyrant)")
	flag.Float64Var(&cfg.PriceFloor, "price-floor", cfg.PriceFloor, "Lowest price a peer can reach (tyrant)")
	flag.BoolVar(&cfg.Redistribute, "redistribute", cfg.Redistribute, "Spread unused capacity over admitted peers (tyrant)")
	flag.Parse()

	fs := afero.NewOsFs()

	// Create a new logger and generate log file
	logOut, err := fs.Create(logPath)
	if err != nil {
		panic(err)
	}
	defer logOut.Close()
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	cfg.Policy, err = config.ParsePolicy(policy)
	if err != nil {
		logger.Error("invalid policy", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	replayer := logic.NewReplayer(cfg, decoder.NewDecoder(logger), os.Stderr, logger)
	decisions, err := replayer.ReplayFile(fs, tracePath)
	if err != nil {
		logger.Error("failed to replay trace", slog.Any("error", err))
		tracerr.PrintSourceColor(err)
		os.Exit(1)
	}

	err = decoder.WriteDecisionsFile(fs, outputPath, decisions)
	if err != nil {
		logger.Error("failed to write decisions", slog.Any("error", err))
		tracerr.PrintSourceColor(err)
		os.Exit(1)
	}
}
