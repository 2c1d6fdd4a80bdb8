package remoteextract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/faults"
)

func TestExtractDecodesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text == "" {
			t.Error("request text must not be empty")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"cves": ["CVE-2024-1234"],
			"products": [
				{"name": "Apache", "version": "2.4.58", "type": "vendor"},
				{"name": "billing portal", "type": "self_developed"}
			],
			"ttps": ["T1190"],
			"iocs": {"ips": ["203.0.113.7"], "domains": ["evil.example.com"], "hashes": []},
			"confidence": 0.91
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second)
	info, err := client.Extract(context.Background(), "Apache 2.4.58 exploited via CVE-2024-1234")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(info.CVEs) != 1 || info.CVEs[0] != "CVE-2024-1234" {
		t.Fatalf("unexpected cves %v", info.CVEs)
	}
	if len(info.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(info.Products))
	}
	if info.Products[0].Type != domain.ProductVendor {
		t.Fatalf("unexpected product type %s", info.Products[0].Type)
	}
	if info.Products[1].Type != domain.ProductSelfDeveloped {
		t.Fatalf("unexpected product type %s", info.Products[1].Type)
	}
	if info.Confidence != 0.91 {
		t.Fatalf("unexpected confidence %v", info.Confidence)
	}
	if len(info.IOCs.IPs) != 1 || info.IOCs.IPs[0] != "203.0.113.7" {
		t.Fatalf("unexpected iocs %+v", info.IOCs)
	}
}

func TestExtractNonOKStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		kind   faults.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, faults.KindRateLimit},
		{"unauthorized", http.StatusUnauthorized, faults.KindAuthentication},
		{"server error", http.StatusInternalServerError, faults.KindUnknown},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "", time.Second)
			_, err := client.Extract(context.Background(), "text")
			if err == nil {
				t.Fatal("expected error")
			}

			var httpErr *faults.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected HTTPError, got %T", err)
			}
			if got := faults.Classify(err); got != tc.kind {
				t.Fatalf("Classify() = %s, want %s", got, tc.kind)
			}
		})
	}
}

func TestExtractMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	_, err := client.Extract(context.Background(), "text")
	if err == nil {
		t.Fatal("expected decode error")
	}
	if faults.Classify(err) != faults.KindDataFormat {
		t.Fatalf("expected data format classification, got %s", faults.Classify(err))
	}
}

func TestHealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	if !client.Healthy(context.Background()) {
		t.Fatal("expected healthy")
	}

	srv.Close()
	if client.Healthy(context.Background()) {
		t.Fatal("expected unhealthy after shutdown")
	}
}
