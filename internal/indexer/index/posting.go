package index

type Posting struct {
	DocID     string `json:"d"`
	Frequency int    `json:"f"`
	Positions []int  `json:"p,omitempty"`
}

type PostingList []Posting

// TermEntry is the posting list of one term within one field. Surfaces
// lists, sorted, the distinct unstemmed words indexed under Term.
type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
	Surfaces []string
}
