package reciprocity

import (
	"log/slog"
	"math"
	"sort"

	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/rangelak/TorrentClients/internal/shared/tiebreak"
)

type tyrant struct {
	cfg       TyrantConfig
	estimator *Estimator
	shuffler  *tiebreak.Shuffler
	log       *slog.Logger
}

// NewTyrant returns an Allocator that buys the best return on upload: peers
// are ranked by estimated rate over estimated price and admitted greedily
// until the capacity is committed.
func NewTyrant(cfg TyrantConfig, estimator *Estimator, shuffler *tiebreak.Shuffler, logger *slog.Logger) Allocator {
	return &tyrant{cfg: cfg, estimator: estimator, shuffler: shuffler, log: logger}
}

type bid struct {
	id    string
	price float64
	ratio float64
}

// ratio is rate/price, with a non-positive price ranking above everything.
func ratio(est *Estimate) float64 {
	if est.Price <= 0 {
		return math.Inf(1)
	}
	return est.Rate / est.Price
}

func (t *tyrant) Allocate(in Input) []models.UploadGrant {
	t.estimator.Advance(in.Local, in.Peers, in.History)
	if len(in.Requests) == 0 {
		return nil
	}

	ids := requesters(t.shuffler, in.Requests, visible(in.Peers))
	bids := make([]bid, 0, len(ids))
	for _, id := range ids {
		est := t.estimator.Get(id)
		bids = append(bids, bid{id: id, price: math.Max(est.Price, 0), ratio: ratio(est)})
	}
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].ratio > bids[j].ratio
	})

	capacity := float64(in.Capacity)
	committed := 0.0
	admitted := make([]bid, 0, len(bids))
	for _, b := range bids {
		if committed+b.price > capacity {
			break
		}
		committed += b.price
		admitted = append(admitted, b)
	}

	targets := make([]string, len(admitted))
	rates := make([]int, len(admitted))
	for i, b := range admitted {
		targets[i] = b.id
		rates[i] = int(b.price)
	}
	if t.cfg.Redistribute && len(admitted) > 0 {
		rates = scale(admitted, committed, in.Capacity)
	}

	t.log.Debug("tyrant admission",
		slog.Int("round", in.History.CurrentRound()),
		slog.Int("requesters", len(ids)),
		slog.Any("admitted", targets),
		slog.Float64("committed", committed))
	return grants(targets, rates)
}

// scale stretches the admitted prices to fill capacity. Floors are taken
// first and the left over blocks are handed out one at a time in rank order.
func scale(admitted []bid, committed float64, capacity int) []int {
	if committed <= 0 {
		return tiebreak.EvenSplit(capacity, len(admitted))
	}
	rates := make([]int, len(admitted))
	used := 0
	for i, b := range admitted {
		rates[i] = int(b.price * float64(capacity) / committed)
		used += rates[i]
	}
	for i := 0; used < capacity && len(rates) > 0; i = (i + 1) % len(rates) {
		rates[i]++
		used++
	}
	return rates
}
