package reciprocity

import (
	"log/slog"
	"math"

	"github.com/rangelak/TorrentClients/internal/history"
	"github.com/rangelak/TorrentClients/internal/shared/models"
)

// TyrantConfig tunes the price-adaptive policy.
type TyrantConfig struct {
	// InitialPrice seeds the price of a newly seen peer. Zero means
	// capacity/(AssumedPeerSlots+1).
	InitialPrice float64
	Growth       float64
	Shrink       float64
	// ConfidenceRounds is how many consecutive rounds a peer must unchoke us
	// before we start lowering its price.
	ConfidenceRounds int
	// AssumedPeerSlots is the number of upload slots other peers are assumed
	// to split their bandwidth over.
	AssumedPeerSlots int
	PriceFloor       float64
	// Redistribute spreads capacity left after admission over the admitted
	// peers in proportion to their prices.
	Redistribute bool
}

// Estimate is what the local peer believes about one remote peer.
type Estimate struct {
	// Rate is the blocks per round the peer gives us.
	Rate float64
	// Price is the blocks per round we must give the peer to stay unchoked.
	Price          float64
	UnchokedRounds int
	UnchokedUs     bool

	seenPieces int
	seenRound  int
}

// Estimator keeps per-peer rate and price estimates across rounds. Entries
// are created on first observation and never removed.
type Estimator struct {
	cfg       TyrantConfig
	capacity  int
	estimates map[string]*Estimate
	advanced  int
	log       *slog.Logger
}

func NewEstimator(cfg TyrantConfig, capacity int, logger *slog.Logger) *Estimator {
	return &Estimator{
		cfg:       cfg,
		capacity:  capacity,
		estimates: make(map[string]*Estimate),
		advanced:  -1,
		log:       logger,
	}
}

func (e *Estimator) initialPrice() float64 {
	if e.cfg.InitialPrice > 0 {
		return e.cfg.InitialPrice
	}
	return math.Max(float64(e.capacity)/float64(e.cfg.AssumedPeerSlots+1), e.cfg.PriceFloor)
}

// Get returns the estimate for id, creating it with default values if the
// peer has not been seen before.
func (e *Estimator) Get(id string) *Estimate {
	est, ok := e.estimates[id]
	if !ok {
		est = &Estimate{Price: e.initialPrice(), seenRound: -1}
		e.estimates[id] = est
	}
	return est
}

// Lookup returns a copy of the estimate for id without creating one.
func (e *Estimator) Lookup(id string) (Estimate, bool) {
	est, ok := e.estimates[id]
	if !ok {
		return Estimate{}, false
	}
	return *est, true
}

// Advance folds the previous round into the estimates. Only the first call
// for a given round has an effect. Peers missing from peers keep their
// estimates untouched.
func (e *Estimator) Advance(local models.PieceState, peers []models.PeerView, h history.History) {
	round := h.CurrentRound()
	if round <= e.advanced {
		return
	}
	e.advanced = round

	if round == 0 {
		for _, peer := range peers {
			e.snapshot(e.Get(peer.ID), peer, round)
		}
		return
	}

	seen := visible(peers)
	received := make(map[string]int)
	for _, d := range h.Downloads(round - 1) {
		if seen.Contains(d.From) {
			received[d.From] += d.Blocks
		}
	}

	for id, blocks := range received {
		if blocks <= 0 {
			continue
		}
		est := e.Get(id)
		est.Rate = float64(blocks)
		est.UnchokedUs = true
		est.UnchokedRounds++
		if est.UnchokedRounds >= e.cfg.ConfidenceRounds {
			est.Price = math.Max(est.Price*e.cfg.Shrink, e.cfg.PriceFloor)
		}
	}

	for id, est := range e.estimates {
		if received[id] > 0 || !est.UnchokedUs || !seen.Contains(id) {
			continue
		}
		est.UnchokedUs = false
		est.UnchokedRounds = 0
		est.Price *= e.cfg.Growth
		e.log.Debug("peer choked us", slog.String("peer", id), slog.Float64("price", est.Price))
	}

	for _, peer := range peers {
		est := e.Get(peer.ID)
		if received[peer.ID] > 0 {
			e.snapshot(est, peer, round)
			continue
		}
		if !local.NeedsAnyOf(peer.Pieces) {
			est.Rate = 0
			continue
		}
		if est.seenRound < 0 {
			e.snapshot(est, peer, round)
			continue
		}
		now := peer.PieceCount()
		if now == est.seenPieces || round == est.seenRound {
			continue
		}
		delta := max(now-est.seenPieces, 0)
		elapsed := round - est.seenRound
		est.Rate = float64(local.BlocksPerPiece*delta) / float64(elapsed) / float64(e.cfg.AssumedPeerSlots)
		e.snapshot(est, peer, round)
	}
}

func (e *Estimator) snapshot(est *Estimate, peer models.PeerView, round int) {
	est.seenPieces = peer.PieceCount()
	est.seenRound = round
}
