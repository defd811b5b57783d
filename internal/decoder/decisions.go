package decoder

import (
	"io"

	"github.com/jackpal/bencode-go"
	"github.com/rangelak/TorrentClients/internal/shared/models"
	"github.com/spf13/afero"
	"github.com/ztrue/tracerr"
)

type bencodeDecision struct {
	Round    int                    `bencode:"round"`
	Requests []bencodeRequestIntent `bencode:"requests"`
	Grants   []bencodeTransfer      `bencode:"grants"`
}

type bencodeRequestIntent struct {
	Piece  int    `bencode:"piece"`
	Source string `bencode:"source"`
	Begin  int    `bencode:"begin"`
}

// EncodeDecisions writes decisions as a bencoded list, one dictionary per
// round.
func EncodeDecisions(w io.Writer, decisions []models.Decision) error {
	out := make([]bencodeDecision, 0, len(decisions))
	for _, d := range decisions {
		bd := bencodeDecision{
			Round:    d.Round,
			Requests: make([]bencodeRequestIntent, 0, len(d.Requests)),
			Grants:   make([]bencodeTransfer, 0, len(d.Grants)),
		}
		for _, r := range d.Requests {
			bd.Requests = append(bd.Requests, bencodeRequestIntent{Piece: r.PieceID, Source: r.Source, Begin: r.Begin})
		}
		for _, g := range d.Grants {
			bd.Grants = append(bd.Grants, bencodeTransfer{Peer: g.Target, Blocks: g.Rate})
		}
		out = append(out, bd)
	}
	return tracerr.Wrap(bencode.Marshal(w, out))
}

func WriteDecisionsFile(fs afero.Fs, path string, decisions []models.Decision) error {
	f, err := fs.Create(path)
	if err != nil {
		return tracerr.Wrap(err)
	}
	if err := EncodeDecisions(f, decisions); err != nil {
		f.Close()
		return err
	}
	return tracerr.Wrap(f.Close())
}
