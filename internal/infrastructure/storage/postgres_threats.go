package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/ports"
)

// ThreatRepository persists threats keyed by feed + identity.
type ThreatRepository struct {
	db *sql.DB
}

var _ ports.ThreatRepository = (*ThreatRepository)(nil)

// NewThreatRepository wires a sql.DB implementation.
func NewThreatRepository(db *sql.DB) *ThreatRepository {
	return &ThreatRepository{db: db}
}

// Upsert saves the threat idempotently on (feed_id, identity).
func (r *ThreatRepository) Upsert(ctx context.Context, threat domain.Threat) error {
	query, args, err := psql.
		Insert("threats").
		Columns("id", "feed_id", "identity", "title", "description", "cve_id",
			"cvss_score", "cvss_vector", "severity", "status",
			"cves", "ttps", "ioc_ips", "ioc_domains", "ioc_hashes",
			"confidence", "provenance", "source_url", "published_at", "collected_at").
		Values(threat.ID, threat.FeedID, threat.Identity(), threat.Title, threat.Description,
			threat.CVEID, threat.CVSSScore, threat.CVSSVector, threat.Severity, string(threat.Status),
			pq.StringArray(threat.Extracted.CVEs),
			pq.StringArray(threat.Extracted.TTPs),
			pq.StringArray(threat.Extracted.IOCs.IPs),
			pq.StringArray(threat.Extracted.IOCs.Domains),
			pq.StringArray(threat.Extracted.IOCs.Hashes),
			threat.Extracted.Confidence, string(threat.Extracted.Provenance),
			threat.SourceURL, threat.PublishedAt, threat.CollectedAt).
		Suffix(`ON CONFLICT (feed_id, identity) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			cve_id = EXCLUDED.cve_id,
			cvss_score = EXCLUDED.cvss_score,
			cvss_vector = EXCLUDED.cvss_vector,
			severity = EXCLUDED.severity,
			cves = EXCLUDED.cves,
			ttps = EXCLUDED.ttps,
			ioc_ips = EXCLUDED.ioc_ips,
			ioc_domains = EXCLUDED.ioc_domains,
			ioc_hashes = EXCLUDED.ioc_hashes,
			confidence = EXCLUDED.confidence,
			provenance = EXCLUDED.provenance,
			source_url = EXCLUDED.source_url,
			published_at = EXCLUDED.published_at,
			collected_at = EXCLUDED.collected_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert threat: %w", err)
	}
	return nil
}

// Find loads the threat with the given identity inside a feed.
func (r *ThreatRepository) Find(ctx context.Context, feedID, identity string) (domain.Threat, bool, error) {
	query, args, err := psql.
		Select("id", "feed_id", "title", "description", "cve_id",
			"cvss_score", "cvss_vector", "severity", "status",
			"cves", "ttps", "ioc_ips", "ioc_domains", "ioc_hashes",
			"confidence", "provenance", "source_url", "published_at", "collected_at").
		From("threats").
		Where(sq.Eq{"feed_id": feedID, "identity": identity}).
		ToSql()
	if err != nil {
		return domain.Threat{}, false, fmt.Errorf("build query: %w", err)
	}

	var (
		threat     domain.Threat
		status     string
		provenance string
		cves       pq.StringArray
		ttps       pq.StringArray
		ips        pq.StringArray
		domains    pq.StringArray
		hashes     pq.StringArray
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&threat.ID, &threat.FeedID, &threat.Title, &threat.Description, &threat.CVEID,
		&threat.CVSSScore, &threat.CVSSVector, &threat.Severity, &status,
		&cves, &ttps, &ips, &domains, &hashes,
		&threat.Extracted.Confidence, &provenance,
		&threat.SourceURL, &threat.PublishedAt, &threat.CollectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Threat{}, false, nil
	}
	if err != nil {
		return domain.Threat{}, false, fmt.Errorf("query threat: %w", err)
	}

	threat.Status = domain.ThreatStatus(status)
	threat.Extracted.Provenance = domain.Provenance(provenance)
	threat.Extracted.CVEs = cves
	threat.Extracted.TTPs = ttps
	threat.Extracted.IOCs = domain.IOCSet{IPs: ips, Domains: domains, Hashes: hashes}
	return threat, true, nil
}
