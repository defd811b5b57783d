package models

import "github.com/RoaringBitmap/roaring"

// PieceState is the local peer's view of its own pieces: how many blocks of
// each piece have been received so far.
type PieceState struct {
	BlocksPerPiece int
	Received       []int
}

func (s PieceState) Complete(piece int) bool {
	return s.Received[piece] >= s.BlocksPerPiece
}

// Remaining returns the number of blocks still missing from piece.
func (s PieceState) Remaining(piece int) int {
	return max(s.BlocksPerPiece-s.Received[piece], 0)
}

// Needed lists the ids of the incomplete pieces in ascending order.
func (s PieceState) Needed() []int {
	needed := make([]int, 0, len(s.Received))
	for i := range s.Received {
		if !s.Complete(i) {
			needed = append(needed, i)
		}
	}
	return needed
}

// NeedsAnyOf reports whether at least one piece in held is still incomplete
// locally.
func (s PieceState) NeedsAnyOf(held *roaring.Bitmap) bool {
	if held == nil {
		return false
	}
	it := held.Iterator()
	for it.HasNext() {
		piece := int(it.Next())
		if piece < len(s.Received) && !s.Complete(piece) {
			return true
		}
	}
	return false
}
