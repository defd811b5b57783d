package models

import "github.com/RoaringBitmap/roaring"

// PeerView is what the local peer can observe about a remote peer in the
// current round. It is a snapshot and must not be modified.
type PeerView struct {
	ID     string
	Pieces *roaring.Bitmap
}

func NewPeerView(id string, pieces ...int) PeerView {
	held := roaring.New()
	for _, p := range pieces {
		held.Add(uint32(p))
	}
	return PeerView{ID: id, Pieces: held}
}

func (p PeerView) Has(piece int) bool {
	return p.Pieces != nil && p.Pieces.Contains(uint32(piece))
}

// PieceCount is the number of complete pieces the peer holds.
func (p PeerView) PieceCount() int {
	if p.Pieces == nil {
		return 0
	}
	return int(p.Pieces.GetCardinality())
}
