package corpus

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/corpus"
	"ConceptEnricher/internal/domain"
)

const (
	arxivBaseURL     = "https://arxiv.org"
	defaultPageSize  = 200
	defaultMaxPages  = 10
	arxivDayOption   = "day"
	arxivPageSizeOpt = "pageSize"
	arxivMaxPagesOpt = "maxPages"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivReader crawls an arXiv listing page and turns each entry's abstract into a one-section article.
// Options: "day" (2006-01-02) keeps only that publication day, "pageSize" and "maxPages" bound the crawl.
type ArxivReader struct {
	client   *http.Client
	pageSize int
}

var _ corpus.Reader = (*ArxivReader)(nil)

// NewArxivReader wires an HTTP client; pageSize defaults to 200.
func NewArxivReader(client *http.Client) *ArxivReader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivReader{client: client, pageSize: defaultPageSize}
}

// Name identifies the reader inside the registry.
func (a *ArxivReader) Name() string {
	return "arxiv"
}

// Read walks listing pages from src.Path until a short page, the day boundary or maxPages.
func (a *ArxivReader) Read(ctx context.Context, src config.CorpusConfig) ([]domain.Article, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("corpus %s: listing url is empty", src.Name)
	}

	var targetDay *time.Time
	if raw := strings.TrimSpace(src.Options[arxivDayOption]); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: invalid day %q: %w", src.Name, raw, err)
		}
		targetDay = &day
	}
	pageSize := src.Int(arxivPageSizeOpt, a.pageSize)
	maxPages := src.Int(arxivMaxPagesOpt, defaultMaxPages)

	results := make([]domain.Article, 0)
	seen := map[string]struct{}{}
	skip := 0
	for page := 0; page < maxPages; page++ {
		pageURL, err := buildPageURL(src.Path, skip, pageSize)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w", src.Name, err)
		}

		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w", src.Name, err)
		}

		pageArticles, shouldContinue := extractArticles(doc, targetDay, pageSize, src.Name)
		for _, article := range pageArticles {
			if _, ok := seen[article.ID]; ok {
				continue
			}
			seen[article.ID] = struct{}{}
			results = append(results, article)
		}

		if !shouldContinue {
			break
		}
		skip += pageSize
	}

	return results, nil
}

func (a *ArxivReader) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ConceptEnricher/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractArticles(doc *goquery.Document, targetDay *time.Time, pageSize int, source string) ([]domain.Article, bool) {
	var (
		collected    []domain.Article
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		article, publishedAt := parseEntry(dt, dd, source)
		if targetDay == nil {
			collected = append(collected, article)
			return true
		}

		articleDay := publishedAt.UTC().Truncate(24 * time.Hour)
		if articleDay.Equal(*targetDay) {
			collected = append(collected, article)
		}
		if articleDay.Before(*targetDay) {
			continueScan = false
			return false
		}
		return true
	})

	if processed < pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, source string) (domain.Article, time.Time) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	id := strings.TrimSpace(link.Text())
	href, _ := link.Attr("href")
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}
	if id == "" {
		id = href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
	if title == "" {
		title = untitled
	}

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	publishedAt := time.Time{}
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	article := domain.Article{
		ID:     id,
		Title:  title,
		URL:    href,
		Source: source,
	}
	if summary != "" {
		article.Sections = [][]string{{summary}}
	}
	return article, publishedAt
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
