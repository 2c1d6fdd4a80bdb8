package kevcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ThreatScanner/internal/collector"
	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/faults"
)

// Client pulls the known-exploited-vulnerabilities catalog, a JSON document
// in the CISA KEV shape.
type Client struct {
	http *http.Client
}

var _ collector.Collector = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a bounded default.
func NewClient(client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: client}
}

// SourceType identifies the strategy inside the registry.
func (c *Client) SourceType() string {
	return "kev_catalog"
}

type catalog struct {
	Vulnerabilities []struct {
		CVEID             string `json:"cveID"`
		VendorProject     string `json:"vendorProject"`
		Product           string `json:"product"`
		VulnerabilityName string `json:"vulnerabilityName"`
		DateAdded         string `json:"dateAdded"`
		ShortDescription  string `json:"shortDescription"`
	} `json:"vulnerabilities"`
}

// Collect fetches the catalog and converts each entry to a candidate record.
func (c *Client) Collect(ctx context.Context, feed domain.Feed) ([]domain.CandidateRecord, error) {
	if feed.URL == "" {
		return nil, fmt.Errorf("feed %s has no URL", feed.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, faults.NewHTTPError(resp)
	}

	var doc catalog
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	records := make([]domain.CandidateRecord, 0, len(doc.Vulnerabilities))
	for _, v := range doc.Vulnerabilities {
		if v.CVEID == "" {
			continue
		}

		title := v.VulnerabilityName
		if title == "" {
			title = fmt.Sprintf("%s %s %s", v.VendorProject, v.Product, v.CVEID)
		}

		publishedAt := time.Time{}
		if v.DateAdded != "" {
			if parsed, err := time.Parse("2006-01-02", v.DateAdded); err == nil {
				publishedAt = parsed
			}
		}

		records = append(records, domain.CandidateRecord{
			Title:       title,
			Description: v.ShortDescription,
			CVEHint:     v.CVEID,
			Severity:    "high",
			SourceURL:   feed.URL,
			PublishedAt: publishedAt,
		})
	}

	return records, nil
}
