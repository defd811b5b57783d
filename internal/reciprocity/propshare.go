package reciprocity

import (
	"log/slog"

	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/rangelak/TorrentClients/internal/shared/tiebreak"
)

type propShare struct {
	optimisticFraction float64
	shuffler           *tiebreak.Shuffler
	log                *slog.Logger
}

// NewPropShare returns an Allocator that splits capacity in proportion to
// what each requester uploaded to us last round, keeping optimisticFraction
// of it for one requester that gave us nothing.
func NewPropShare(optimisticFraction float64, shuffler *tiebreak.Shuffler, logger *slog.Logger) Allocator {
	return &propShare{optimisticFraction: optimisticFraction, shuffler: shuffler, log: logger}
}

func (p *propShare) Allocate(in Input) []models.UploadGrant {
	if len(in.Requests) == 0 {
		return nil
	}
	seen := visible(in.Peers)
	ids := requesters(p.shuffler, in.Requests, seen)
	if len(ids) == 0 {
		return nil
	}

	received := contributions(in.History, 1, seen)
	total := 0
	for _, blocks := range received {
		total += blocks
	}

	givers := make([]string, 0, len(ids))
	var optimistic string
	for _, id := range ids {
		switch {
		case received[id] > 0:
			givers = append(givers, id)
		case optimistic == "":
			optimistic = id
		}
	}

	if len(givers) == 0 || total == 0 {
		p.log.Debug("no requester uploaded to us, splitting evenly",
			slog.Int("round", in.History.CurrentRound()),
			slog.Int("requesters", len(ids)))
		return evenGrants(ids, in.Capacity)
	}

	reciprocal := (1 - p.optimisticFraction) * float64(in.Capacity)
	rates := make([]int, len(givers))
	allocated := 0
	for i, id := range givers {
		rates[i] = int(reciprocal * float64(received[id]) / float64(total))
		allocated += rates[i]
	}

	result := grants(givers, rates)
	if optimistic != "" && in.Capacity > allocated {
		result = append(result, models.UploadGrant{Target: optimistic, Rate: in.Capacity - allocated})
	}

	p.log.Debug("proportional share",
		slog.Int("round", in.History.CurrentRound()),
		slog.Any("givers", givers),
		slog.String("optimistic", optimistic),
		slog.Int("allocated", allocated))
	return result
}
