package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// FeedRepository persists feed configuration and status in Postgres.
type FeedRepository struct {
	db *sql.DB
}

var _ ports.FeedRepository = (*FeedRepository)(nil)

// NewFeedRepository wires a sql.DB implementation.
func NewFeedRepository(db *sql.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// Get loads one feed by id.
func (r *FeedRepository) Get(ctx context.Context, id string) (domain.Feed, error) {
	query, args, err := psql.
		Select("id", "name", "source_type", "url", "priority", "frequency_seconds", "enabled",
			"last_status", "last_collected_at", "last_error", "last_record_count").
		From("feeds").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build query: %w", err)
	}

	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feed{}, fmt.Errorf("feed %s not found", id)
	}
	if err != nil {
		return domain.Feed{}, fmt.Errorf("query feed: %w", err)
	}
	return feed, nil
}

// List returns every configured feed.
func (r *FeedRepository) List(ctx context.Context) ([]domain.Feed, error) {
	query, args, err := psql.
		Select("id", "name", "source_type", "url", "priority", "frequency_seconds", "enabled",
			"last_status", "last_collected_at", "last_error", "last_record_count").
		From("feeds").
		OrderBy("priority", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return feeds, nil
}

// Save upserts the feed, including the orchestrator's status fields.
func (r *FeedRepository) Save(ctx context.Context, feed domain.Feed) error {
	var collectedAt any
	if !feed.LastCollectedAt.IsZero() {
		collectedAt = feed.LastCollectedAt
	}

	query, args, err := psql.
		Insert("feeds").
		Columns("id", "name", "source_type", "url", "priority", "frequency_seconds", "enabled",
			"last_status", "last_collected_at", "last_error", "last_record_count").
		Values(feed.ID, feed.Name, feed.SourceType, feed.URL, string(feed.Priority),
			int64(feed.Frequency/time.Second), feed.Enabled,
			string(feed.LastStatus), collectedAt, feed.LastError, feed.LastRecordCount).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			source_type = EXCLUDED.source_type,
			url = EXCLUDED.url,
			priority = EXCLUDED.priority,
			frequency_seconds = EXCLUDED.frequency_seconds,
			enabled = EXCLUDED.enabled,
			last_status = EXCLUDED.last_status,
			last_collected_at = EXCLUDED.last_collected_at,
			last_error = EXCLUDED.last_error,
			last_record_count = EXCLUDED.last_record_count`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert feed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (domain.Feed, error) {
	var (
		feed        domain.Feed
		priority    string
		status      sql.NullString
		frequency   int64
		collectedAt sql.NullTime
		lastError   sql.NullString
	)
	err := row.Scan(&feed.ID, &feed.Name, &feed.SourceType, &feed.URL, &priority,
		&frequency, &feed.Enabled, &status, &collectedAt, &lastError, &feed.LastRecordCount)
	if err != nil {
		return domain.Feed{}, err
	}
	feed.Priority = domain.SourcePriority(priority)
	feed.Frequency = time.Duration(frequency) * time.Second
	if status.Valid {
		feed.LastStatus = domain.CollectionStatus(status.String)
	}
	if collectedAt.Valid {
		feed.LastCollectedAt = collectedAt.Time
	}
	if lastError.Valid {
		feed.LastError = lastError.String
	}
	return feed, nil
}
