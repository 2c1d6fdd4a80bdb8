package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/ports"
)

// AssociationRepository reads the threat/asset association set maintained by
// the inventory subsystem.
type AssociationRepository struct {
	db *sql.DB
}

var _ ports.AssociationRepository = (*AssociationRepository)(nil)

// NewAssociationRepository wires a sql.DB implementation.
func NewAssociationRepository(db *sql.DB) *AssociationRepository {
	return &AssociationRepository{db: db}
}

// CountFor returns the number of assets associated with the threat.
func (r *AssociationRepository) CountFor(ctx context.Context, threatID string) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("threat_asset_associations").
		Where(sq.Eq{"threat_id": threatID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count associations: %w", err)
	}
	return count, nil
}

// ListAssets returns the assets associated with the threat.
func (r *AssociationRepository) ListAssets(ctx context.Context, threatID string) ([]domain.Asset, error) {
	query, args, err := psql.
		Select("a.id", "a.name", "a.data_sensitivity", "a.business_criticality").
		From("assets a").
		Join("threat_asset_associations taa ON taa.asset_id = a.id").
		Where(sq.Eq{"taa.threat_id": threatID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var (
			asset       domain.Asset
			sensitivity string
			criticality string
		)
		if err := rows.Scan(&asset.ID, &asset.Name, &sensitivity, &criticality); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		asset.DataSensitivity = domain.Tier(sensitivity)
		asset.BusinessCriticality = domain.Tier(criticality)
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return assets, nil
}

// RiskAssessmentRepository stores the current assessment per threat.
type RiskAssessmentRepository struct {
	db *sql.DB
}

var _ ports.RiskAssessmentRepository = (*RiskAssessmentRepository)(nil)

// NewRiskAssessmentRepository wires a sql.DB implementation.
func NewRiskAssessmentRepository(db *sql.DB) *RiskAssessmentRepository {
	return &RiskAssessmentRepository{db: db}
}

// Save upserts the assessment keyed by threat.
func (r *RiskAssessmentRepository) Save(ctx context.Context, a domain.RiskAssessment) error {
	query, args, err := psql.
		Insert("risk_assessments").
		Columns("id", "threat_id", "association_id", "base_score",
			"asset_importance_weight", "asset_count_weight", "pir_match_weight",
			"known_exploited_weight", "final_score", "level", "detail",
			"created_at", "updated_at").
		Values(a.ID, a.ThreatID, a.AssociationID, a.BaseScore,
			a.AssetImportanceWeight, a.AssetCountWeight, a.PIRMatchWeight,
			a.KnownExploitedWeight, a.FinalScore, string(a.Level), a.Detail,
			a.CreatedAt, a.UpdatedAt).
		Suffix(`ON CONFLICT (threat_id) DO UPDATE SET
			id = EXCLUDED.id,
			association_id = EXCLUDED.association_id,
			base_score = EXCLUDED.base_score,
			asset_importance_weight = EXCLUDED.asset_importance_weight,
			asset_count_weight = EXCLUDED.asset_count_weight,
			pir_match_weight = EXCLUDED.pir_match_weight,
			known_exploited_weight = EXCLUDED.known_exploited_weight,
			final_score = EXCLUDED.final_score,
			level = EXCLUDED.level,
			detail = EXCLUDED.detail,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert assessment: %w", err)
	}
	return nil
}

// RiskAssessmentHistoryRepository appends immutable calculation snapshots.
// It issues inserts only; rows are never updated or deleted.
type RiskAssessmentHistoryRepository struct {
	db *sql.DB
}

var _ ports.RiskAssessmentHistoryRepository = (*RiskAssessmentHistoryRepository)(nil)

// NewRiskAssessmentHistoryRepository wires a sql.DB implementation.
func NewRiskAssessmentHistoryRepository(db *sql.DB) *RiskAssessmentHistoryRepository {
	return &RiskAssessmentHistoryRepository{db: db}
}

// Append inserts one history row.
func (r *RiskAssessmentHistoryRepository) Append(ctx context.Context, entry domain.HistoryEntry) error {
	query, args, err := psql.
		Insert("risk_assessment_history").
		Columns("id", "assessment_id", "threat_id", "final_score", "level", "detail", "calculated_at").
		Values(entry.ID, entry.AssessmentID, entry.ThreatID, entry.FinalScore,
			string(entry.Level), entry.Detail, entry.CalculatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// PIRRepository lists prioritized-intelligence-requirement rules.
type PIRRepository struct {
	db *sql.DB
}

var _ ports.PIRRepository = (*PIRRepository)(nil)

// NewPIRRepository wires a sql.DB implementation.
func NewPIRRepository(db *sql.DB) *PIRRepository {
	return &PIRRepository{db: db}
}

// ListEnabled returns only enabled rules; disabled ones never reach the
// matcher.
func (r *PIRRepository) ListEnabled(ctx context.Context) ([]domain.PIR, error) {
	query, args, err := psql.
		Select("id", "name", "priority", "condition_type", "condition_value", "enabled").
		From("pirs").
		Where(sq.Eq{"enabled": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pirs: %w", err)
	}
	defer rows.Close()

	var pirs []domain.PIR
	for rows.Next() {
		var (
			rule          domain.PIR
			priority      string
			conditionType string
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &priority, &conditionType,
			&rule.ConditionValue, &rule.Enabled); err != nil {
			return nil, fmt.Errorf("scan pir: %w", err)
		}
		rule.Priority = domain.PIRPriority(priority)
		rule.ConditionType = domain.PIRConditionType(conditionType)
		pirs = append(pirs, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return pirs, nil
}
