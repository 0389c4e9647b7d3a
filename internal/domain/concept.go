package domain

import "strings"

// DescriptionUnavailable is stored when a concept resolved but its description could not be fetched.
const DescriptionUnavailable = "No abstract available"

// CandidatePhrase is a keyphrase proposed by an extractor. Lower scores are more salient.
type CandidatePhrase struct {
	Text  string  `json:"phrase"`
	Score float64 `json:"score"`
}

// Phrases returns the phrase texts in extractor order.
func Phrases(candidates []CandidatePhrase) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Text)
	}
	return out
}

// RelevanceJudgment is the classifier verdict for one phrase together with the raw oracle reply.
type RelevanceJudgment struct {
	Phrase   string
	Relevant bool
	Raw      string
}

// Link is the durable part of a resolved concept.
type Link struct {
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// HasDescription reports whether the description carries real text.
func (l Link) HasDescription() bool {
	d := strings.TrimSpace(l.Description)
	return d != "" && !strings.Contains(d, DescriptionUnavailable)
}

// ResolvedConcept is a phrase of an article linked to the knowledge base.
type ResolvedConcept struct {
	ArticleID string
	Phrase    string
	Link      Link
	Embedding []float32
}

// Resolved reports whether the concept carries a canonical identifier.
func (c ResolvedConcept) Resolved() bool {
	return strings.TrimSpace(c.Link.URI) != ""
}

// Identity is the similarity key "article:phrase".
func (c ResolvedConcept) Identity() string {
	return c.ArticleID + ":" + c.Phrase
}
