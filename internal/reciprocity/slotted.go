package reciprocity

import (
	"log/slog"
	"sort"

	"github.com/anacrolix/multiless"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/rangelak/TorrentClients/internal/shared/tiebreak"
)

// SlottedConfig tunes the slotted tit-for-tat policy.
type SlottedConfig struct {
	Slots           int
	OptimisticSlots int
	// Lookback is the number of prior rounds whose downloads rank requesters.
	Lookback int
	// RotationPeriod forces a new optimistic peer on rounds divisible by it.
	RotationPeriod int
	// PersistentOptimistic keeps the optimistic peer between rotations. When
	// false a new one is drawn every round.
	PersistentOptimistic bool
}

type slotted struct {
	cfg        SlottedConfig
	optimistic string
	shuffler   *tiebreak.Shuffler
	log        *slog.Logger
}

func NewSlotted(cfg SlottedConfig, shuffler *tiebreak.Shuffler, logger *slog.Logger) Allocator {
	return &slotted{cfg: cfg, shuffler: shuffler, log: logger}
}

func (s *slotted) Allocate(in Input) []models.UploadGrant {
	if len(in.Requests) == 0 {
		return nil
	}
	round := in.History.CurrentRound()
	seen := visible(in.Peers)
	ids := requesters(s.shuffler, in.Requests, seen)
	requesting := mapset.NewThreadUnsafeSet(ids...)

	received := contributions(in.History, s.cfg.Lookback, seen)
	cooperative := make([]string, 0, len(ids))
	for _, id := range ids {
		if received[id] > 0 {
			cooperative = append(cooperative, id)
		}
	}
	sort.SliceStable(cooperative, func(i, j int) bool {
		ml := multiless.New().Int(received[cooperative[j]], received[cooperative[i]])
		ml = ml.EagerSameLess(cooperative[i] == cooperative[j], cooperative[i] < cooperative[j])
		return ml.Less()
	})

	reciprocal := max(s.cfg.Slots-s.cfg.OptimisticSlots, 0)
	unchoked := make([]string, 0, s.cfg.Slots)
	chosen := mapset.NewThreadUnsafeSet[string]()
	for _, id := range cooperative {
		if len(unchoked) == reciprocal {
			break
		}
		unchoked = append(unchoked, id)
		chosen.Add(id)
	}

	keep := s.cfg.PersistentOptimistic &&
		s.optimistic != "" &&
		requesting.Contains(s.optimistic) &&
		!chosen.Contains(s.optimistic) &&
		(s.cfg.RotationPeriod <= 0 || round%s.cfg.RotationPeriod != 0)
	if keep {
		unchoked = append(unchoked, s.optimistic)
		chosen.Add(s.optimistic)
	} else {
		s.optimistic = ""
	}

	// unused reciprocal slots and the optimistic slots go to whoever is left
	for _, id := range ids {
		if len(unchoked) >= s.cfg.Slots {
			break
		}
		if chosen.Contains(id) {
			continue
		}
		if s.cfg.PersistentOptimistic && s.optimistic == "" && len(unchoked) >= reciprocal {
			s.optimistic = id
		}
		unchoked = append(unchoked, id)
		chosen.Add(id)
	}

	s.log.Debug("unchoking peers",
		slog.Int("round", round),
		slog.Any("cooperative", cooperative),
		slog.Any("unchoked", unchoked),
		slog.String("optimistic", s.optimistic))
	return evenGrants(unchoked, in.Capacity)
}
