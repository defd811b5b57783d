package models

// RequestIntent asks Source for the block at Begin of piece PieceID.
type RequestIntent struct {
	PieceID int
	Source  string
	Begin   int
}

// IncomingRequest is a request another peer sent to the local peer this round.
type IncomingRequest struct {
	Requester string
	PieceID   int
	Begin     int
}

// UploadGrant allocates Rate blocks of upload bandwidth to Target for the
// current round.
type UploadGrant struct {
	Target string
	Rate   int
}
