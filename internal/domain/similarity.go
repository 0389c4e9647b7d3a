package domain

// Neighbor is another concept together with its cosine similarity.
type Neighbor struct {
	Identity string  `json:"identity"`
	Score    float64 `json:"score"`
}

// SimilarityEntry holds the extremes found for one concept identity.
type SimilarityEntry struct {
	Identity     string    `json:"identity"`
	MostSimilar  *Neighbor `json:"most_similar"`
	LeastSimilar *Neighbor `json:"least_similar"`
}

// SimilarityReport is ordered like the identities it was computed from.
type SimilarityReport struct {
	Partition string            `json:"partition"`
	Entries   []SimilarityEntry `json:"entries"`
}

// MissingKeywords lists reference keywords a ledger entry did not resolve.
type MissingKeywords struct {
	ID      string   `json:"id"`
	Found   bool     `json:"found"`
	Missing []string `json:"missing"`
}
