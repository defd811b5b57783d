package reciprocity

import (
	"io"
	"log/slog"

	"github.com/rangelak/TorrentClients/internal/history"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func logWith(records ...models.RoundRecord) *history.Log {
	log := history.NewLog()
	for _, r := range records {
		log.Record(r)
	}
	return log
}

func requestsFrom(ids ...string) []models.IncomingRequest {
	requests := make([]models.IncomingRequest, 0, len(ids))
	for i, id := range ids {
		requests = append(requests, models.IncomingRequest{Requester: id, PieceID: i})
	}
	return requests
}

func peersOf(ids ...string) []models.PeerView {
	peers := make([]models.PeerView, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, models.NewPeerView(id))
	}
	return peers
}

func targets(grants []models.UploadGrant) []string {
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.Target)
	}
	return ids
}

func rates(grants []models.UploadGrant) map[string]int {
	byTarget := make(map[string]int, len(grants))
	for _, g := range grants {
		byTarget[g.Target] = g.Rate
	}
	return byTarget
}

func total(grants []models.UploadGrant) int {
	sum := 0
	for _, g := range grants {
		sum += g.Rate
	}
	return sum
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) CurrentRound() int {
	args := m.Called()
	return args.Int(0)
}

func (m *mockHistory) Downloads(round int) []models.Download {
	args := m.Called(round)
	return args.Get(0).([]models.Download)
}

func (m *mockHistory) Uploads(round int) []models.Upload {
	args := m.Called(round)
	return args.Get(0).([]models.Upload)
}
