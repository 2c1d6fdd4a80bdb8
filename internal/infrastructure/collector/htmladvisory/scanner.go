package htmladvisory

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ThreatScanner/internal/collector"
	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/faults"
)

var (
	cvssExpr = regexp.MustCompile(`\b\d{1,2}(?:\.\d)?\b`)
	dateExpr = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// Scanner crawls an HTML advisory listing page and extracts candidate
// records for the collection cycle.
type Scanner struct {
	client *http.Client
}

var _ collector.Collector = (*Scanner)(nil)

// NewScanner wires an HTTP client; a nil client gets a bounded default.
func NewScanner(client *http.Client) *Scanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Scanner{client: client}
}

// SourceType identifies the strategy inside the registry.
func (s *Scanner) SourceType() string {
	return "html_advisory"
}

// Collect fetches the feed URL and parses every advisory entry on the page.
func (s *Scanner) Collect(ctx context.Context, feed domain.Feed) ([]domain.CandidateRecord, error) {
	if feed.URL == "" {
		return nil, fmt.Errorf("feed %s has no URL", feed.Name)
	}

	doc, err := s.fetchDocument(ctx, feed.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feed.Name, err)
	}

	var records []domain.CandidateRecord
	seen := map[string]struct{}{}

	doc.Find(".advisory, article.advisory, li.advisory").Each(func(i int, sel *goquery.Selection) {
		record := parseEntry(sel, feed.URL)
		if record.Title == "" {
			return
		}
		if _, ok := seen[record.Title]; ok {
			return
		}
		seen[record.Title] = struct{}{}
		records = append(records, record)
	})

	return records, nil
}

func (s *Scanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ThreatScanner/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, faults.NewHTTPError(resp)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func parseEntry(sel *goquery.Selection, baseURL string) domain.CandidateRecord {
	title := strings.TrimSpace(sel.Find(".title").First().Text())
	if title == "" {
		title = strings.TrimSpace(sel.Find("h2, h3").First().Text())
	}

	description := strings.TrimSpace(sel.Find(".summary, .description, p").First().Text())

	link := sel.Find("a").First()
	href, _ := link.Attr("href")
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(href, "/")
	}

	cveHint := strings.TrimSpace(sel.Find(".cve").First().Text())

	severity := strings.TrimSpace(sel.Find(".severity").First().Text())

	var cvss float64
	cvssText := strings.TrimSpace(sel.Find(".cvss").First().Text())
	if match := cvssExpr.FindString(cvssText); match != "" {
		if parsed, err := strconv.ParseFloat(match, 64); err == nil && parsed <= 10 {
			cvss = parsed
		}
	}

	publishedAt := time.Time{}
	dateText := strings.TrimSpace(sel.Find(".date, .published").First().Text())
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2006-01-02", match); err == nil {
			publishedAt = parsed
		}
	}

	return domain.CandidateRecord{
		Title:       title,
		Description: description,
		CVEHint:     cveHint,
		CVSSScore:   cvss,
		Severity:    severity,
		SourceURL:   href,
		PublishedAt: publishedAt,
	}
}
