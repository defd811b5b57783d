package logic

import (
	"fmt"
	"log/slog"

	"github.com/rangelak/TorrentClients/internal/config"
	"github.com/rangelak/TorrentClients/internal/history"
	"github.com/rangelak/TorrentClients/internal/reciprocity"
	"github.com/rangelak/TorrentClients/internal/scheduler"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/rangelak/TorrentClients/internal/shared/tiebreak"
)

// Strategy is the per-round decision engine of one peer. Requests is called
// before Uploads in every round.
type Strategy interface {
	Requests(local models.PieceState, peers []models.PeerView, h history.History) []models.RequestIntent
	Uploads(local models.PieceState, requests []models.IncomingRequest, peers []models.PeerView, h history.History) []models.UploadGrant
}

type strategy struct {
	cfg       config.Config
	scheduler scheduler.Scheduler
	allocator reciprocity.Allocator
	log       *slog.Logger
}

func NewStrategy(cfg config.Config, logger *slog.Logger) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	shuffler := tiebreak.NewShuffler(cfg.Seed)
	allocator, err := newAllocator(cfg, shuffler, logger)
	if err != nil {
		return nil, err
	}
	return &strategy{
		cfg:       cfg,
		scheduler: scheduler.NewRarestFirst(shuffler, logger),
		allocator: allocator,
		log:       logger.With(slog.String("policy", string(cfg.Policy))),
	}, nil
}

func newAllocator(cfg config.Config, shuffler *tiebreak.Shuffler, logger *slog.Logger) (reciprocity.Allocator, error) {
	slotted := reciprocity.SlottedConfig{
		Slots:           cfg.Slots,
		OptimisticSlots: cfg.OptimisticSlots,
		Lookback:        cfg.Lookback,
		RotationPeriod:  cfg.RotationPeriod,
	}
	switch cfg.Policy {
	case config.PolicyPropShare:
		return reciprocity.NewPropShare(cfg.OptimisticFraction, shuffler, logger), nil
	case config.PolicyTFT:
		slotted.PersistentOptimistic = true
		return reciprocity.NewSlotted(slotted, shuffler, logger), nil
	case config.PolicyStd, config.PolicyTourney:
		slotted.Lookback = 1
		return reciprocity.NewSlotted(slotted, shuffler, logger), nil
	case config.PolicyTyrant:
		tyrant := reciprocity.TyrantConfig{
			InitialPrice:     cfg.InitialPrice,
			Growth:           cfg.Growth,
			Shrink:           cfg.Shrink,
			ConfidenceRounds: cfg.ConfidenceRounds,
			AssumedPeerSlots: cfg.AssumedPeerSlots,
			PriceFloor:       cfg.PriceFloor,
			Redistribute:     cfg.Redistribute,
		}
		estimator := reciprocity.NewEstimator(tyrant, cfg.UploadCapacity, logger)
		return reciprocity.NewTyrant(tyrant, estimator, shuffler, logger), nil
	case config.PolicyNever:
		return reciprocity.Never{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownPolicy, cfg.Policy)
	}
}

func (s *strategy) Requests(local models.PieceState, peers []models.PeerView, h history.History) []models.RequestIntent {
	s.log.Debug("requesting pieces",
		slog.Int("round", h.CurrentRound()),
		slog.Int("peers", len(peers)))
	return s.scheduler.Requests(local, peers, s.cfg.MaxRequestsPerPeer)
}

func (s *strategy) Uploads(local models.PieceState, requests []models.IncomingRequest, peers []models.PeerView, h history.History) []models.UploadGrant {
	if len(requests) == 0 {
		s.log.Debug("no one wants my pieces", slog.Int("round", h.CurrentRound()))
	}
	return s.allocator.Allocate(reciprocity.Input{
		Local:    local,
		Requests: requests,
		Peers:    peers,
		History:  h,
		Capacity: s.cfg.UploadCapacity,
	})
}
