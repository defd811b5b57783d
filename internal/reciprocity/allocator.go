// Package reciprocity decides which requesting peers the local peer serves in
// a round and how its upload capacity is split among them.
//
// Every policy shares the same contract: requests are de-duplicated per
// requester, requesters are shuffled before ranking, only requesters receive
// grants, zero-rate grants are dropped and the granted rates never sum to
// more than the capacity.
package reciprocity

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rangelak/TorrentClients/internal/history"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/rangelak/TorrentClients/internal/shared/tiebreak"
)

// Input is the snapshot an Allocator decides on.
type Input struct {
	Local    models.PieceState
	Requests []models.IncomingRequest
	Peers    []models.PeerView
	History  history.History
	Capacity int
}

type Allocator interface {
	Allocate(in Input) []models.UploadGrant
}

// visible returns the ids of the peers in the current snapshot.
func visible(peers []models.PeerView) mapset.Set[string] {
	ids := mapset.NewThreadUnsafeSet[string]()
	for _, peer := range peers {
		ids.Add(peer.ID)
	}
	return ids
}

// requesters returns the distinct requesters that are still in the peer
// snapshot, shuffled.
func requesters(s *tiebreak.Shuffler, requests []models.IncomingRequest, seen mapset.Set[string]) []string {
	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		if seen.Contains(r.Requester) {
			ids = append(ids, r.Requester)
		}
	}
	unique := tiebreak.Unique(ids)
	tiebreak.Shuffle(s, unique)
	return unique
}

// contributions sums what visible peers uploaded to us over the last
// lookback rounds.
func contributions(h history.History, lookback int, seen mapset.Set[string]) map[string]int {
	received := history.Received(h, lookback)
	for id := range received {
		if !seen.Contains(id) {
			delete(received, id)
		}
	}
	return received
}

func evenGrants(targets []string, capacity int) []models.UploadGrant {
	return grants(targets, tiebreak.EvenSplit(capacity, len(targets)))
}

func grants(targets []string, rates []int) []models.UploadGrant {
	result := make([]models.UploadGrant, 0, len(targets))
	for i, target := range targets {
		if rates[i] <= 0 {
			continue
		}
		result = append(result, models.UploadGrant{Target: target, Rate: rates[i]})
	}
	return result
}

// Never is the free-riding policy: it never uploads.
type Never struct{}

func (Never) Allocate(Input) []models.UploadGrant {
	return nil
}
