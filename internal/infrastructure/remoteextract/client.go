package remoteextract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/faults"
	"ThreatScanner/internal/ports"
)

// Client talks to the external AI extraction service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.RemoteExtractor = (*Client)(nil)

// NewClient creates a reusable HTTP client with a bounded timeout.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	CVEs     []string `json:"cves"`
	Products []struct {
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
		Type    string `json:"type,omitempty"`
	} `json:"products"`
	TTPs []string `json:"ttps"`
	IOCs struct {
		IPs     []string `json:"ips"`
		Domains []string `json:"domains"`
		Hashes  []string `json:"hashes"`
	} `json:"iocs"`
	Confidence float64 `json:"confidence"`
}

// Extract posts the advisory text and decodes structured attributes.
func (c *Client) Extract(ctx context.Context, text string) (domain.ExtractedInfo, error) {
	var resp extractResponse
	if err := c.post(ctx, "/v1/extract", extractRequest{Text: text}, &resp); err != nil {
		return domain.ExtractedInfo{}, err
	}

	info := domain.ExtractedInfo{
		CVEs:       resp.CVEs,
		TTPs:       resp.TTPs,
		Confidence: resp.Confidence,
	}
	info.IOCs = domain.IOCSet{
		IPs:     resp.IOCs.IPs,
		Domains: resp.IOCs.Domains,
		Hashes:  resp.IOCs.Hashes,
	}
	for _, p := range resp.Products {
		productType := domain.ProductVendor
		if p.Type == string(domain.ProductSelfDeveloped) {
			productType = domain.ProductSelfDeveloped
		}
		info.Products = append(info.Products, domain.Product{
			Name:    p.Name,
			Version: p.Version,
			Type:    productType,
		})
	}
	return info, nil
}

// Healthy probes the service liveness endpoint. It never raises.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return faults.NewHTTPError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
