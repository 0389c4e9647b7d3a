// Package dbpedia resolves phrases to knowledge-base resources through the
// DBpedia lookup API and scrapes resource pages for their abstracts.
package dbpedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

// Resolver implements ports.Resolver against a DBpedia lookup endpoint.
type Resolver struct {
	client     *http.Client
	searchURL  string
	categories []string
	maxResults int
	userAgent  string
	logger     *slog.Logger
}

var _ ports.Resolver = (*Resolver)(nil)

type lookupResponse struct {
	Docs []lookupDoc `json:"docs"`
}

type lookupDoc struct {
	Resource []string `json:"resource"`
	Category []string `json:"category"`
	TypeName []string `json:"typeName"`
	Type     []string `json:"type"`
}

// NewResolver wires an HTTP client; a nil client gets the configured timeout.
func NewResolver(cfg config.ResolverConfig, client *http.Client, logger *slog.Logger) *Resolver {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "ConceptEnricher/1.0"
	}
	return &Resolver{
		client:     client,
		searchURL:  cfg.SearchURL,
		categories: cfg.Categories,
		maxResults: cfg.MaxResults,
		userAgent:  userAgent,
		logger:     logger.With("component", "dbpedia"),
	}
}

// Search returns the first resource whose categories intersect the configured ones.
func (r *Resolver) Search(ctx context.Context, phrase string) (string, bool, error) {
	searchURL, err := r.buildSearchURL(phrase)
	if err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("lookup %q: %w", phrase, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("lookup %q returned %s", phrase, resp.Status)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, fmt.Errorf("decode lookup response: %w", err)
	}

	for _, doc := range payload.Docs {
		if len(doc.Resource) == 0 || strings.TrimSpace(doc.Resource[0]) == "" {
			continue
		}
		if r.matches(doc) {
			r.logger.Debug("lookup hit", "phrase", phrase, "uri", doc.Resource[0])
			return doc.Resource[0], true, nil
		}
	}
	r.logger.Debug("lookup miss", "phrase", phrase, "docs", len(payload.Docs))
	return "", false, nil
}

// Describe fetches the resource page and returns its English abstract.
func (r *Resolver) Describe(ctx context.Context, uri string) (string, error) {
	doc, err := r.fetchDocument(ctx, uri)
	if err != nil {
		return "", err
	}

	if lead := strings.TrimSpace(doc.Find("p.lead").First().Text()); lead != "" {
		return collapse(lead), nil
	}
	if abs := strings.TrimSpace(doc.Find(`span[property="dbo:abstract"][xml\:lang="en"]`).First().Text()); abs != "" {
		return collapse(abs), nil
	}
	return domain.DescriptionUnavailable, nil
}

func (r *Resolver) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request resource page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resource page %s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse resource page: %w", err)
	}
	return doc, nil
}

func (r *Resolver) buildSearchURL(phrase string) (string, error) {
	parsed, err := url.Parse(r.searchURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid search url %q", r.searchURL)
	}
	query := parsed.Query()
	query.Set("query", phrase)
	query.Set("format", "JSON")
	if r.maxResults > 0 {
		query.Set("maxResults", strconv.Itoa(r.maxResults))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// matches accepts any doc when no categories are configured. Values are compared
// by exact name or by the trailing segment of a URI.
func (r *Resolver) matches(doc lookupDoc) bool {
	if len(r.categories) == 0 {
		return true
	}
	for _, group := range [][]string{doc.Category, doc.TypeName, doc.Type} {
		for _, value := range group {
			name := value
			if i := strings.LastIndexAny(name, "/:#"); i >= 0 {
				name = name[i+1:]
			}
			for _, want := range r.categories {
				if strings.EqualFold(value, want) || strings.EqualFold(name, want) {
					return true
				}
			}
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
