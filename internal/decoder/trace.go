package decoder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/jackpal/bencode-go"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/spf13/afero"
	"github.com/ztrue/tracerr"
)

var ErrInvalidTrace = errors.New("invalid trace")

type TraceDecoder interface {
	Decode(io.Reader) (models.Trace, error)
	DecodeFile(fs afero.Fs, path string) (models.Trace, error)
}

type decoder struct {
	log *slog.Logger
}

func NewDecoder(logger *slog.Logger) TraceDecoder {
	return decoder{log: logger}
}

// serialization structs that mirror a trace file; they are converted to
// models.Trace once decoded
type bencodeTrace struct {
	BlocksPerPiece int            `bencode:"blocks per piece"`
	Rounds         []bencodeRound `bencode:"rounds"`
}

type bencodeRound struct {
	Received  []int             `bencode:"received"`
	Peers     []bencodePeer     `bencode:"peers"`
	Requests  []bencodeRequest  `bencode:"requests"`
	Downloads []bencodeTransfer `bencode:"downloads"`
	Uploads   []bencodeTransfer `bencode:"uploads"`
}

type bencodePeer struct {
	ID     string `bencode:"id"`
	Pieces []int  `bencode:"pieces"`
}

type bencodeRequest struct {
	Requester string `bencode:"requester"`
	Piece     int    `bencode:"piece"`
	Begin     int    `bencode:"begin"`
}

type bencodeTransfer struct {
	Peer   string `bencode:"peer"`
	Blocks int    `bencode:"blocks"`
}

func (d decoder) DecodeFile(fs afero.Fs, path string) (models.Trace, error) {
	f, err := fs.Open(path)
	if err != nil {
		return models.Trace{}, tracerr.Wrap(err)
	}
	defer f.Close()
	return d.Decode(f)
}

func (d decoder) Decode(r io.Reader) (models.Trace, error) {
	var bt bencodeTrace
	err := bencode.Unmarshal(r, &bt)
	if err != nil {
		d.log.Error("failed to decode trace", slog.Any("error", err))
		return models.Trace{}, tracerr.Wrap(err)
	}

	if bt.BlocksPerPiece <= 0 {
		return models.Trace{}, fmt.Errorf("%w: blocks per piece must be positive, got %d", ErrInvalidTrace, bt.BlocksPerPiece)
	}

	trace := models.Trace{BlocksPerPiece: bt.BlocksPerPiece, Rounds: make([]models.Snapshot, 0, len(bt.Rounds))}
	for i, round := range bt.Rounds {
		snapshot, err := convertRound(i, bt.BlocksPerPiece, round)
		if err != nil {
			return models.Trace{}, err
		}
		trace.Rounds = append(trace.Rounds, snapshot)
	}

	d.log.Info("decoded trace", slog.Int("rounds", len(trace.Rounds)), slog.Int("blocks_per_piece", trace.BlocksPerPiece))
	return trace, nil
}

func convertRound(index, blocksPerPiece int, round bencodeRound) (models.Snapshot, error) {
	for piece, received := range round.Received {
		if received < 0 || received > blocksPerPiece {
			return models.Snapshot{}, fmt.Errorf("%w: round %d piece %d has %d of %d blocks", ErrInvalidTrace, index, piece, received, blocksPerPiece)
		}
	}

	snapshot := models.Snapshot{
		Round: index,
		Local: models.PieceState{BlocksPerPiece: blocksPerPiece, Received: append([]int{}, round.Received...)},
		Peers: make([]models.PeerView, 0, len(round.Peers)),
		Record: models.RoundRecord{
			Round:     index,
			Downloads: make([]models.Download, 0, len(round.Downloads)),
			Uploads:   make([]models.Upload, 0, len(round.Uploads)),
		},
		Requests: make([]models.IncomingRequest, 0, len(round.Requests)),
	}
	for _, p := range round.Peers {
		if p.ID == "" {
			return models.Snapshot{}, fmt.Errorf("%w: round %d has a peer without id", ErrInvalidTrace, index)
		}
		for _, piece := range p.Pieces {
			if piece < 0 || int64(piece) > math.MaxUint32 {
				return models.Snapshot{}, fmt.Errorf("%w: round %d peer %s holds piece %d", ErrInvalidTrace, index, p.ID, piece)
			}
		}
		snapshot.Peers = append(snapshot.Peers, models.NewPeerView(p.ID, p.Pieces...))
	}
	for _, r := range round.Requests {
		snapshot.Requests = append(snapshot.Requests, models.IncomingRequest{Requester: r.Requester, PieceID: r.Piece, Begin: r.Begin})
	}
	for _, t := range round.Downloads {
		snapshot.Record.Downloads = append(snapshot.Record.Downloads, models.Download{From: t.Peer, Blocks: t.Blocks})
	}
	for _, t := range round.Uploads {
		snapshot.Record.Uploads = append(snapshot.Record.Uploads, models.Upload{To: t.Peer, Blocks: t.Blocks})
	}
	return snapshot, nil
}
