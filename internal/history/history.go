package history

import "github.com/rangelak/TorrentClients/internal/shared/models"

// History exposes what the local peer observed in finished rounds. Rounds at
// or after CurrentRound are not visible and yield nil.
type History interface {
	CurrentRound() int
	Downloads(round int) []models.Download
	Uploads(round int) []models.Upload
}

// Log is an append-only History. Each call to Record closes the current round
// and makes it visible.
type Log struct {
	rounds []models.RoundRecord
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) CurrentRound() int {
	return len(l.rounds)
}

// Record appends the transfers of the current round. The record's Round field
// is overwritten with the index it is stored at.
func (l *Log) Record(record models.RoundRecord) {
	record.Round = len(l.rounds)
	l.rounds = append(l.rounds, record)
}

func (l *Log) Downloads(round int) []models.Download {
	if round < 0 || round >= len(l.rounds) {
		return nil
	}
	return l.rounds[round].Downloads
}

func (l *Log) Uploads(round int) []models.Upload {
	if round < 0 || round >= len(l.rounds) {
		return nil
	}
	return l.rounds[round].Uploads
}

// Received sums the blocks downloaded from each peer over the last lookback
// rounds before the current one.
func Received(h History, lookback int) map[string]int {
	received := make(map[string]int)
	current := h.CurrentRound()
	for round := current - 1; round >= 0 && round >= current-lookback; round-- {
		for _, d := range h.Downloads(round) {
			received[d.From] += d.Blocks
		}
	}
	return received
}
