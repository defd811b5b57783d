package models

type Download struct {
	From   string
	Blocks int
}

type Upload struct {
	To     string
	Blocks int
}

// RoundRecord holds the transfers involving the local peer in one finished
// round.
type RoundRecord struct {
	Round     int
	Downloads []Download
	Uploads   []Upload
}
