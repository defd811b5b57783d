package models

// Trace is a recorded run of a swarm as seen by one peer, round by round.
type Trace struct {
	BlocksPerPiece int
	Rounds         []Snapshot
}

// Snapshot is everything the engine is shown at the start of a round, plus
// the transfers that happened during it. Record is only visible to the
// engine from the next round on.
type Snapshot struct {
	Round    int
	Local    PieceState
	Peers    []PeerView
	Requests []IncomingRequest
	Record   RoundRecord
}

// Decision is the output of one strategy invocation.
type Decision struct {
	Round    int
	Requests []RequestIntent
	Grants   []UploadGrant
}
