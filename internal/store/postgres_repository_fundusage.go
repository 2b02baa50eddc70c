/**
 * @description
 * PostgreSQL queries for the fund-usage ledger: append-only expenditure entries
 * per campaign and the grouped transparency report. There is no delete or
 * update path; corrections are new negative-adjustment entries referencing the
 * original via `adjusts`.
 */

package store

import (
	"context"
	"fmt"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordFundUsage appends an expenditure entry and computes the post-insert
// over-logged condition in the same transaction. The campaign row is locked so
// the flag is consistent with the raised amount at commit time. Logging more
// than the campaign has raised is a warning, not an error: charities may spend
// from other funding sources.
func (r *PostgresRepository) RecordFundUsage(ctx context.Context, entry *domain.FundUsageEntry) (*domain.RecordFundUsageResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin fund usage tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var campaignStatus domain.CampaignStatus
	var raisedAmount int64
	err = tx.QueryRow(ctx,
		`SELECT status, raised_amount FROM campaigns WHERE id = $1 FOR UPDATE`,
		entry.CampaignID,
	).Scan(&campaignStatus, &raisedAmount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	if campaignStatus == domain.CampaignDraft {
		return nil, ErrCampaignDraft
	}
	if campaignStatus == domain.CampaignArchived {
		return nil, ErrCampaignArchived
	}

	if entry.Adjusts != nil {
		var adjustsCampaignID uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT campaign_id FROM fund_usage_entries WHERE id = $1`,
			*entry.Adjusts,
		).Scan(&adjustsCampaignID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrAdjustTargetNotFound
			}
			return nil, err
		}
		if adjustsCampaignID != entry.CampaignID {
			return nil, ErrAdjustTargetNotFound
		}
	}

	insertQuery := `
		INSERT INTO fund_usage_entries (
			id, campaign_id, category, amount, description, spent_at,
			attachment_reference, adjusts, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, insertQuery,
		entry.ID, entry.CampaignID, entry.Category, entry.Amount, entry.Description,
		entry.SpentAt, entry.AttachmentReference, entry.Adjusts,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert fund usage entry: %w", err)
	}

	var totalLogged int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM fund_usage_entries WHERE campaign_id = $1`,
		entry.CampaignID,
	).Scan(&totalLogged)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	result := &domain.RecordFundUsageResult{Entry: *entry}
	result.OverLogged, result.OverLoggedBy = overLogged(totalLogged, raisedAmount)
	return result, nil
}

// ListFundUsage returns all entries for a campaign, newest spend first.
func (r *PostgresRepository) ListFundUsage(ctx context.Context, campaignID uuid.UUID) ([]domain.FundUsageEntry, error) {
	query := `
		SELECT id, campaign_id, category, amount, description, spent_at,
		       attachment_reference, adjusts, created_at
		FROM fund_usage_entries
		WHERE campaign_id = $1
		ORDER BY spent_at DESC, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.FundUsageEntry
	for rows.Next() {
		var e domain.FundUsageEntry
		err := rows.Scan(
			&e.ID, &e.CampaignID, &e.Category, &e.Amount, &e.Description, &e.SpentAt,
			&e.AttachmentReference, &e.Adjusts, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FundUsageReport groups entries by category and flags the campaign as
// over-logged when the logged total exceeds the raised amount.
func (r *PostgresRepository) FundUsageReport(ctx context.Context, campaignID uuid.UUID) (*domain.FundUsageReport, error) {
	var raisedAmount int64
	err := r.db.QueryRow(ctx, `SELECT raised_amount FROM campaigns WHERE id = $1`, campaignID).Scan(&raisedAmount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*)
		FROM fund_usage_entries
		WHERE campaign_id = $1
		GROUP BY category
		ORDER BY category
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := &domain.FundUsageReport{
		CampaignID:   campaignID,
		RaisedAmount: raisedAmount,
	}
	for rows.Next() {
		var ct domain.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Entries); err != nil {
			return nil, err
		}
		report.ByCategory = append(report.ByCategory, ct)
		report.TotalLogged += ct.Total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.OverLogged, report.OverLoggedBy = overLogged(report.TotalLogged, raisedAmount)
	return report, nil
}

// overLogged returns the over-logged flag and overage for a campaign given its
// logged total and raised amount.
func overLogged(totalLogged, raisedAmount int64) (bool, int64) {
	if totalLogged > raisedAmount {
		return true, totalLogged - raisedAmount
	}
	return false, 0
}
