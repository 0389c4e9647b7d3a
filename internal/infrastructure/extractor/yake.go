// Package extractor implements an in-process YAKE-style keyphrase extractor.
//
// Scores follow the YAKE feature set: casing, position, frequency, context
// relatedness and sentence spread are combined per term, and a candidate
// phrase scores prod(S)/(TF*(1+sum(S))). Lower scores are better.
package extractor

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
	"ConceptEnricher/internal/textnorm"
)

const (
	defaultMaxTerms  = 10
	defaultSpanWidth = 2
	defaultDedup     = 0.9
)

var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "all": {}, "also": {},
	"am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "been": {}, "before": {}, "being": {}, "between": {}, "both": {}, "but": {}, "by": {},
	"can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "during": {},
	"each": {}, "either": {}, "for": {}, "from": {}, "further": {},
	"had": {}, "has": {}, "have": {}, "he": {}, "her": {}, "here": {}, "his": {}, "how": {}, "however": {},
	"i": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"may": {}, "might": {}, "more": {}, "most": {}, "much": {}, "must": {},
	"no": {}, "nor": {}, "not": {}, "of": {}, "on": {}, "one": {}, "only": {}, "or": {}, "other": {}, "our": {}, "out": {},
	"over": {}, "own": {}, "same": {}, "she": {}, "should": {}, "so": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "thus": {}, "to": {}, "too": {},
	"under": {}, "until": {}, "up": {}, "upon": {}, "us": {}, "very": {},
	"was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "where": {}, "whether": {}, "which": {},
	"while": {}, "who": {}, "whom": {}, "why": {}, "will": {}, "with": {}, "within": {}, "without": {},
	"would": {}, "yet": {}, "you": {}, "your": {},
}

// Yake is a ports.Extractor that needs no network.
type Yake struct {
	logger *slog.Logger
}

var _ ports.Extractor = (*Yake)(nil)

func NewYake(logger *slog.Logger) *Yake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Yake{logger: logger.With("component", "yake")}
}

type token struct {
	raw      string
	key      string
	stop     bool
	sentence int
}

type termStats struct {
	tf        float64
	upper     float64
	acronym   float64
	sentences []int
	left      map[string]int
	right     map[string]int
	leftN     int
	rightN    int
	score     float64
}

type candidate struct {
	words []string
	keys  []string
	tf    float64
}

// Extract returns up to opts.MaxTerms phrases ordered by ascending score.
func (y *Yake) Extract(ctx context.Context, text string, opts ports.ExtractOptions) ([]domain.CandidatePhrase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = withDefaults(opts)

	sentences := splitSentences(textnorm.Normalize(text))
	if len(sentences) == 0 {
		return nil, nil
	}

	tokens := make([][]token, len(sentences))
	for i, s := range sentences {
		tokens[i] = tokenize(s, i)
	}

	stats := collectStats(tokens)
	if len(stats) == 0 {
		return nil, nil
	}
	scoreTerms(stats, len(sentences))

	candidates, order := collectCandidates(tokens, opts.SpanWidth)
	scored := make([]domain.CandidatePhrase, 0, len(order))
	for _, key := range order {
		c := candidates[key]
		prod, sum := 1.0, 0.0
		for _, k := range c.keys {
			st, ok := stats[k]
			if !ok {
				continue
			}
			prod *= st.score
			sum += st.score
		}
		scored = append(scored, domain.CandidatePhrase{
			Text:  strings.Join(c.words, " "),
			Score: prod / (c.tf * (1 + sum)),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })

	out := make([]domain.CandidatePhrase, 0, opts.MaxTerms)
	for _, cand := range scored {
		if len(out) == opts.MaxTerms {
			break
		}
		if isDuplicate(cand.Text, out, opts.DedupThreshold) {
			continue
		}
		out = append(out, cand)
	}
	y.logger.Debug("extracted keyphrases", "candidates", len(scored), "kept", len(out))
	return out, nil
}

func withDefaults(opts ports.ExtractOptions) ports.ExtractOptions {
	if opts.MaxTerms <= 0 {
		opts.MaxTerms = defaultMaxTerms
	}
	if opts.SpanWidth <= 0 {
		opts.SpanWidth = defaultSpanWidth
	}
	if opts.DedupThreshold <= 0 || opts.DedupThreshold > 1 {
		opts.DedupThreshold = defaultDedup
	}
	return opts
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// keep decimals like 2.5 together
		if r == '.' && i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// tokenize splits a sentence into words. Punctuation breaks candidate spans and is
// represented by a token with an empty key.
func tokenize(sentence string, idx int) []token {
	var out []token
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		raw := b.String()
		b.Reset()
		key := strings.ToLower(raw)
		_, stop := stopWords[key]
		if len([]rune(key)) < 2 && !unicode.IsDigit([]rune(key)[0]) {
			stop = true
		}
		out = append(out, token{raw: raw, key: key, stop: stop, sentence: idx})
	}
	for _, r := range sentence {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			out = append(out, token{sentence: idx})
		}
	}
	flush()
	return out
}

func collectStats(sentences [][]token) map[string]*termStats {
	stats := make(map[string]*termStats)
	for _, toks := range sentences {
		for i, tok := range toks {
			if tok.key == "" || tok.stop || isNumeric(tok.key) {
				continue
			}
			st, ok := stats[tok.key]
			if !ok {
				st = &termStats{left: map[string]int{}, right: map[string]int{}}
				stats[tok.key] = st
			}
			st.tf++
			if isAcronym(tok.raw) {
				st.acronym++
			} else if i > 0 && unicode.IsUpper([]rune(tok.raw)[0]) {
				st.upper++
			}
			if n := len(st.sentences); n == 0 || st.sentences[n-1] != tok.sentence {
				st.sentences = append(st.sentences, tok.sentence)
			}
			if i > 0 && toks[i-1].key != "" {
				st.left[toks[i-1].key]++
				st.leftN++
			}
			if i+1 < len(toks) && toks[i+1].key != "" {
				st.right[toks[i+1].key]++
				st.rightN++
			}
		}
	}
	return stats
}

func scoreTerms(stats map[string]*termStats, sentenceCount int) {
	var sum, maxTF float64
	for _, st := range stats {
		sum += st.tf
		maxTF = math.Max(maxTF, st.tf)
	}
	mean := sum / float64(len(stats))
	var variance float64
	for _, st := range stats {
		variance += (st.tf - mean) * (st.tf - mean)
	}
	std := math.Sqrt(variance / float64(len(stats)))

	for _, st := range stats {
		tCase := math.Max(st.upper, st.acronym) / (1 + math.Log(st.tf))
		tPos := math.Log(math.Log(3 + median(st.sentences)))
		tFreq := st.tf / (mean + std)
		tRel := 1 + (dispersion(len(st.left), st.leftN)+dispersion(len(st.right), st.rightN))*st.tf/maxTF
		tSent := float64(len(st.sentences)) / float64(sentenceCount)
		st.score = tPos * tRel / (tCase + tFreq/tRel + tSent/tRel)
	}
}

func dispersion(distinct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(distinct) / float64(total)
}

func median(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(values[n/2])
	}
	return float64(values[n/2-1]+values[n/2]) / 2
}

// collectCandidates gathers stopword-bounded n-grams and their frequencies in first-seen order.
func collectCandidates(sentences [][]token, width int) (map[string]*candidate, []string) {
	candidates := make(map[string]*candidate)
	var order []string
	for _, toks := range sentences {
		for i := range toks {
			for n := 1; n <= width && i+n <= len(toks); n++ {
				span := toks[i : i+n]
				if !validSpan(span) {
					continue
				}
				keys := make([]string, n)
				words := make([]string, n)
				for j, tok := range span {
					keys[j] = tok.key
					words[j] = tok.raw
				}
				key := strings.Join(keys, " ")
				c, ok := candidates[key]
				if !ok {
					c = &candidate{words: words, keys: keys}
					candidates[key] = c
					order = append(order, key)
				}
				c.tf++
			}
		}
	}
	return candidates, order
}

func validSpan(span []token) bool {
	for _, tok := range span {
		if tok.key == "" {
			return false
		}
	}
	first, last := span[0], span[len(span)-1]
	if first.stop || last.stop || isNumeric(first.key) || isNumeric(last.key) {
		return false
	}
	return true
}

func isDuplicate(text string, kept []domain.CandidatePhrase, threshold float64) bool {
	folded := strings.ToLower(text)
	for _, k := range kept {
		if levenshteinRatio(folded, strings.ToLower(k.Text)) >= threshold {
			return true
		}
	}
	return false
}

// levenshteinRatio is 1 - distance/maxLen over runes.
func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return 1 - float64(prev[len(rb)])/float64(maxLen)
}

func isAcronym(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func isNumeric(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '-' && r != '.' {
			return false
		}
	}
	return true
}
