package logic

import (
	"io"
	"log/slog"

	"github.com/rangelak/TorrentClients/internal/config"
	"github.com/rangelak/TorrentClients/internal/decoder"
	"github.com/rangelak/TorrentClients/internal/history"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// Replayer runs a strategy over a recorded trace.
type Replayer interface {
	Replay(trace io.Reader) ([]models.Decision, error)
	ReplayFile(fs afero.Fs, path string) ([]models.Decision, error)
}

type replayer struct {
	cfg      config.Config
	d        decoder.TraceDecoder
	progress io.Writer
	log      *slog.Logger
}

// NewReplayer returns a Replayer that builds a fresh strategy from cfg for
// each trace. Progress is rendered to progress.
func NewReplayer(cfg config.Config, d decoder.TraceDecoder, progress io.Writer, logger *slog.Logger) Replayer {
	return &replayer{cfg: cfg, d: d, progress: progress, log: logger}
}

func (r *replayer) Replay(trace io.Reader) ([]models.Decision, error) {
	t, err := r.d.Decode(trace)
	if err != nil {
		return nil, err
	}
	return r.run(t)
}

func (r *replayer) ReplayFile(fs afero.Fs, path string) ([]models.Decision, error) {
	r.log.Info("loading trace", slog.String("path", path))
	t, err := r.d.DecodeFile(fs, path)
	if err != nil {
		return nil, err
	}
	return r.run(t)
}

func (r *replayer) run(t models.Trace) ([]models.Decision, error) {
	s, err := NewStrategy(r.cfg, r.log)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(len(t.Rounds),
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription("replaying"),
		progressbar.OptionShowCount())

	// the log only ever holds rounds that have finished
	log := history.NewLog()
	decisions := make([]models.Decision, 0, len(t.Rounds))
	for _, snapshot := range t.Rounds {
		decision := models.Decision{Round: log.CurrentRound()}
		decision.Requests = s.Requests(snapshot.Local, snapshot.Peers, log)
		decision.Grants = s.Uploads(snapshot.Local, snapshot.Requests, snapshot.Peers, log)
		decisions = append(decisions, decision)

		log.Record(snapshot.Record)
		bar.Add(1)
	}
	bar.Finish()

	r.log.Info("replayed trace", slog.Int("rounds", len(decisions)), slog.String("policy", string(r.cfg.Policy)))
	return decisions, nil
}
