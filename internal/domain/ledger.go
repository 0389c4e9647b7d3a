package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// KeyphraseEntry records what the extractor proposed for one article.
type KeyphraseEntry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
}

// ConceptEntry records the phrases of one article that resolved to the knowledge base.
type ConceptEntry struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Concepts ConceptLinks `json:"concepts"`
}

// ConceptLinks is an insertion-ordered phrase -> link mapping, encoded as a JSON object.
type ConceptLinks struct {
	keys  []string
	links map[string]Link
}

// Set adds or replaces a phrase link, keeping first-insertion order.
func (c *ConceptLinks) Set(phrase string, link Link) {
	if c.links == nil {
		c.links = map[string]Link{}
	}
	if _, ok := c.links[phrase]; !ok {
		c.keys = append(c.keys, phrase)
	}
	c.links[phrase] = link
}

// Get returns the link stored for phrase.
func (c ConceptLinks) Get(phrase string) (Link, bool) {
	l, ok := c.links[phrase]
	return l, ok
}

// Len is the number of phrases.
func (c ConceptLinks) Len() int {
	return len(c.keys)
}

// Phrases returns phrases in insertion order.
func (c ConceptLinks) Phrases() []string {
	return append([]string(nil), c.keys...)
}

// Each visits phrases in insertion order.
func (c ConceptLinks) Each(fn func(phrase string, link Link)) {
	for _, k := range c.keys {
		fn(k, c.links[k])
	}
}

// MarshalJSON writes the mapping as an object preserving insertion order.
func (c ConceptLinks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.links[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping the key order found in the document.
func (c *ConceptLinks) UnmarshalJSON(data []byte) error {
	*c = ConceptLinks{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("concept links: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("concept links: expected string key, got %v", tok)
		}
		var link Link
		if err := dec.Decode(&link); err != nil {
			return fmt.Errorf("concept links %q: %w", key, err)
		}
		c.Set(key, link)
	}
	_, err = dec.Token()
	return err
}

// Ledgers is the in-memory state of both durable artifacts.
type Ledgers struct {
	Keyphrases []KeyphraseEntry
	Concepts   []ConceptEntry
}

// Contains reports whether an article already has a keyphrase entry.
func (l Ledgers) Contains(articleID string) bool {
	for _, e := range l.Keyphrases {
		if e.ID == articleID {
			return true
		}
	}
	return false
}

// PutKeyphrases replaces the entry with the same ID or appends a new one.
func (l *Ledgers) PutKeyphrases(entry KeyphraseEntry) {
	for i := range l.Keyphrases {
		if l.Keyphrases[i].ID == entry.ID {
			l.Keyphrases[i] = entry
			return
		}
	}
	l.Keyphrases = append(l.Keyphrases, entry)
}

// PutConcepts replaces the entry with the same ID or appends a new one.
// An entry without concepts removes any stored entry for that article.
func (l *Ledgers) PutConcepts(entry ConceptEntry) {
	for i := range l.Concepts {
		if l.Concepts[i].ID != entry.ID {
			continue
		}
		if entry.Concepts.Len() == 0 {
			l.Concepts = append(l.Concepts[:i], l.Concepts[i+1:]...)
		} else {
			l.Concepts[i] = entry
		}
		return
	}
	if entry.Concepts.Len() > 0 {
		l.Concepts = append(l.Concepts, entry)
	}
}

// Clone returns a copy whose slices can be appended to independently.
func (l Ledgers) Clone() Ledgers {
	return Ledgers{
		Keyphrases: append([]KeyphraseEntry(nil), l.Keyphrases...),
		Concepts:   append([]ConceptEntry(nil), l.Concepts...),
	}
}

// Checkpoint remembers how far a corpus has been processed.
type Checkpoint struct {
	Corpus    string    `json:"corpus"`
	LastIndex int       `json:"lastIndex"`
	RunID     string    `json:"runId"`
	UpdatedAt time.Time `json:"updatedAt"`
}
