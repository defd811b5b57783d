package integration

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/rangelak/TorrentClients/internal/config"
	"github.com/rangelak/TorrentClients/internal/history"
	"github.com/rangelak/TorrentClients/internal/logic"
	"github.com/rangelak/TorrentClients/internal/shared/models"
)

type IntegrationTest struct {
	cfg       config.Config
	local     models.PieceState
	peers     []models.PeerView
	requests  []models.IncomingRequest
	lastRound models.RoundRecord
	intents   []models.RequestIntent
	grants    []models.UploadGrant
}

func (i *IntegrationTest) strategy() (logic.Strategy, error) {
	return logic.NewStrategy(i.cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (i *IntegrationTest) history() history.History {
	log := history.NewLog()
	if len(i.lastRound.Downloads) > 0 {
		log.Record(i.lastRound)
	}
	return log
}

func (i *IntegrationTest) aLocalPeerWithPieces(pieces, blocks int) error {
	i.local = models.PieceState{BlocksPerPiece: blocks, Received: make([]int, pieces)}
	return nil
}

func (i *IntegrationTest) theLocalPeerHasCompletedEveryPieceExcept(piece int) error {
	for p := range i.local.Received {
		if p != piece {
			i.local.Received[p] = i.local.BlocksPerPiece
		}
	}
	return nil
}

func (i *IntegrationTest) peerHoldsPieces(id, pieces string) error {
	held := make([]int, 0)
	for _, field := range strings.Split(pieces, ",") {
		if field == "" {
			continue
		}
		piece, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return err
		}
		held = append(held, piece)
	}
	i.peers = append(i.peers, models.NewPeerView(id, held...))
	return nil
}

func (i *IntegrationTest) theRequestCapIs(limit int) error {
	i.cfg.MaxRequestsPerPeer = limit
	return nil
}

func (i *IntegrationTest) theLocalPeerSchedulesItsRequests() error {
	s, err := i.strategy()
	if err != nil {
		return err
	}
	i.intents = s.Requests(i.local, i.peers, i.history())
	return nil
}

func (i *IntegrationTest) requestsAreIssued(n int) error {
	if len(i.intents) != n {
		return fmt.Errorf("expected %d requests, got %d: %+v", n, len(i.intents), i.intents)
	}
	return nil
}

func (i *IntegrationTest) requestAsksForPiece(n int, source string, piece int) error {
	if n < 1 || n > len(i.intents) {
		return fmt.Errorf("there is no request %d", n)
	}
	actual := i.intents[n-1]
	if actual.Source != source || actual.PieceID != piece {
		return fmt.Errorf("expected request %d to ask %q for piece %d, got %+v", n, source, piece, actual)
	}
	return nil
}

func (i *IntegrationTest) noPeerIsAskedMoreThan(limit int) error {
	perPeer := make(map[string]int)
	for _, intent := range i.intents {
		perPeer[intent.Source]++
		if perPeer[intent.Source] > limit {
			return fmt.Errorf("peer %q was asked more than %d times", intent.Source, limit)
		}
	}
	return nil
}

func (i *IntegrationTest) thePolicyWithAnUploadCapacityOf(policy string, capacity int) error {
	p, err := config.ParsePolicy(policy)
	if err != nil {
		return err
	}
	i.cfg.Policy = p
	i.cfg.UploadCapacity = capacity
	return nil
}

func (i *IntegrationTest) peerUploadedBlocksToUsLastRound(id string, blocks int) error {
	i.lastRound.Downloads = append(i.lastRound.Downloads, models.Download{From: id, Blocks: blocks})
	return nil
}

func (i *IntegrationTest) everyPeerStartsAtAPriceOf(price float64) error {
	i.cfg.InitialPrice = price
	return nil
}

func (i *IntegrationTest) leftOverCapacityIsKept() error {
	i.cfg.Redistribute = false
	return nil
}

func (i *IntegrationTest) requestsFrom(ids string) error {
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		i.requests = append(i.requests, models.IncomingRequest{Requester: id})
		if !i.knows(id) {
			i.peers = append(i.peers, models.NewPeerView(id))
		}
	}
	return nil
}

func (i *IntegrationTest) knows(id string) bool {
	for _, peer := range i.peers {
		if peer.ID == id {
			return true
		}
	}
	return false
}

func (i *IntegrationTest) peerHasLeftTheSwarm(id string) error {
	peers := make([]models.PeerView, 0, len(i.peers))
	for _, peer := range i.peers {
		if peer.ID != id {
			peers = append(peers, peer)
		}
	}
	i.peers = peers
	return nil
}

func (i *IntegrationTest) peerIsChoked(id string) error {
	for _, g := range i.grants {
		if g.Target == id {
			return fmt.Errorf("peer %q is unchoked: %+v", id, i.grants)
		}
	}
	return nil
}

func (i *IntegrationTest) theLocalPeerAllocatesItsUploads() error {
	s, err := i.strategy()
	if err != nil {
		return err
	}
	i.grants = s.Uploads(i.local, i.requests, i.peers, i.history())

	sum := 0
	for _, g := range i.grants {
		sum += g.Rate
	}
	if sum > i.cfg.UploadCapacity {
		return fmt.Errorf("granted %d blocks with a capacity of %d", sum, i.cfg.UploadCapacity)
	}
	return nil
}

func (i *IntegrationTest) peersAreUnchoked(n int) error {
	if len(i.grants) != n {
		return fmt.Errorf("expected %d unchoked peers, got %d: %+v", n, len(i.grants), i.grants)
	}
	return nil
}

func (i *IntegrationTest) peerIsUnchoked(id string) error {
	for _, g := range i.grants {
		if g.Target == id {
			return nil
		}
	}
	return fmt.Errorf("peer %q is choked: %+v", id, i.grants)
}

func (i *IntegrationTest) everyUnchokedPeerGetsBlocks(blocks int) error {
	for _, g := range i.grants {
		if g.Rate != blocks {
			return fmt.Errorf("expected %d blocks for every peer, got %+v", blocks, i.grants)
		}
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	i := &IntegrationTest{cfg: config.Default()}
	ctx.Step(`^a local peer with (\d+) pieces of (\d+) blocks$`, i.aLocalPeerWithPieces)
	ctx.Step(`^the local peer has completed every piece except (\d+)$`, i.theLocalPeerHasCompletedEveryPieceExcept)
	ctx.Step(`^peer "([^"]*)" holds pieces "([^"]*)"$`, i.peerHoldsPieces)
	ctx.Step(`^the request cap is (\d+)$`, i.theRequestCapIs)
	ctx.Step(`^the local peer schedules its requests$`, i.theLocalPeerSchedulesItsRequests)
	ctx.Step(`^(\d+) requests are issued$`, i.requestsAreIssued)
	ctx.Step(`^request (\d+) asks "([^"]*)" for piece (\d+)$`, i.requestAsksForPiece)
	ctx.Step(`^no peer is asked more than (\d+) times$`, i.noPeerIsAskedMoreThan)
	ctx.Step(`^the "([^"]*)" policy with an upload capacity of (\d+)$`, i.thePolicyWithAnUploadCapacityOf)
	ctx.Step(`^peer "([^"]*)" uploaded (\d+) blocks to us last round$`, i.peerUploadedBlocksToUsLastRound)
	ctx.Step(`^every peer starts at a price of (\d+(?:\.\d+)?)$`, i.everyPeerStartsAtAPriceOf)
	ctx.Step(`^left over capacity is kept$`, i.leftOverCapacityIsKept)
	ctx.Step(`^requests from "([^"]*)"$`, i.requestsFrom)
	ctx.Step(`^the local peer allocates its uploads$`, i.theLocalPeerAllocatesItsUploads)
	ctx.Step(`^(\d+) peers are unchoked$`, i.peersAreUnchoked)
	ctx.Step(`^peer "([^"]*)" is unchoked$`, i.peerIsUnchoked)
	ctx.Step(`^every unchoked peer gets (\d+) blocks$`, i.everyUnchokedPeerGetsBlocks)
	ctx.Step(`^peer "([^"]*)" has left the swarm$`, i.peerHasLeftTheSwarm)
	ctx.Step(`^peer "([^"]*)" is choked$`, i.peerIsChoked)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t, // Testing instance that will run subtests.
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
