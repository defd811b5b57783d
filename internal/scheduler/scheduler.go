package scheduler

import (
	"log/slog"
	"sort"

	"github.com/anacrolix/multiless"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/rangelak/TorrentClients/internal/shared/tiebreak"
)

// Scheduler decides which blocks to request from which peers in a round.
type Scheduler interface {
	Requests(local models.PieceState, peers []models.PeerView, maxPerPeer int) []models.RequestIntent
}

type rarestFirst struct {
	shuffler *tiebreak.Shuffler
	log      *slog.Logger
}

// NewRarestFirst returns a Scheduler that requests the rarest needed pieces
// first, preferring pieces closer to completion among equally rare ones.
func NewRarestFirst(shuffler *tiebreak.Shuffler, logger *slog.Logger) Scheduler {
	return &rarestFirst{shuffler: shuffler, log: logger}
}

type candidate struct {
	piece     int
	remaining int
	holders   []string
}

func (s *rarestFirst) Requests(local models.PieceState, peers []models.PeerView, maxPerPeer int) []models.RequestIntent {
	needed := local.Needed()
	if len(needed) == 0 || maxPerPeer <= 0 {
		s.log.Debug("nothing to request", slog.Int("needed", len(needed)), slog.Int("max_per_peer", maxPerPeer))
		return nil
	}

	// symmetry breaking
	tiebreak.Shuffle(s.shuffler, needed)
	shuffled := append([]models.PeerView(nil), peers...)
	tiebreak.Shuffle(s.shuffler, shuffled)

	candidates := make([]candidate, 0, len(needed))
	for _, piece := range needed {
		holders := make([]string, 0)
		for _, peer := range shuffled {
			if peer.Has(piece) {
				holders = append(holders, peer.ID)
			}
		}
		if len(holders) == 0 {
			continue
		}
		candidates = append(candidates, candidate{piece: piece, remaining: local.Remaining(piece), holders: holders})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ml := multiless.New().Int(len(candidates[i].holders), len(candidates[j].holders))
		ml = ml.Int(candidates[i].remaining, candidates[j].remaining)
		return ml.Less()
	})

	sent := make(map[string]int)
	requests := make([]models.RequestIntent, 0)
	for _, c := range candidates {
		for _, holder := range c.holders {
			if sent[holder] >= maxPerPeer {
				continue
			}
			requests = append(requests, models.RequestIntent{
				PieceID: c.piece,
				Source:  holder,
				Begin:   local.Received[c.piece],
			})
			sent[holder]++
		}
	}

	s.log.Debug("scheduled requests",
		slog.Int("needed", len(needed)),
		slog.Int("available", len(candidates)),
		slog.Int("requests", len(requests)))
	return requests
}
