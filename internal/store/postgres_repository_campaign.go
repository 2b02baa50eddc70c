/**
 * @description
 * PostgreSQL queries for campaign records: lifecycle transitions and the
 * authoritative aggregate recompute used by the reconciliation path.
 */

package store

import (
	"context"
	"fmt"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const campaignColumns = `id, charity_id, title, description, target_amount, raised_amount,
	donor_count, status, start_date, end_date, version, created_at, updated_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.CharityID, &c.Title, &c.Description, &c.TargetAmount, &c.RaisedAmount,
		&c.DonorCount, &c.Status, &c.StartDate, &c.EndDate, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCampaign inserts a new campaign in `draft` with zeroed aggregates.
func (r *PostgresRepository) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	var charityExists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM charities WHERE id = $1)`, campaign.CharityID).Scan(&charityExists); err != nil {
		return err
	}
	if !charityExists {
		return ErrCharityNotFound
	}

	query := `
		INSERT INTO campaigns (
			id, charity_id, title, description, target_amount, raised_amount,
			donor_count, status, start_date, end_date, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7, $8, 0, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		campaign.ID, campaign.CharityID, campaign.Title, campaign.Description,
		campaign.TargetAmount, campaign.Status, campaign.StartDate, campaign.EndDate,
	).Scan(&campaign.CreatedAt, &campaign.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// FindCampaignByID retrieves a campaign with its derived aggregates.
func (r *PostgresRepository) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	campaign, err := scanCampaign(r.db.QueryRow(ctx, query, campaignID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return campaign, nil
}

// TransitionCampaignStatus applies a guarded lifecycle transition via
// compare-and-swap on the current status. A zero-row update means the campaign
// either does not exist or is not in the expected state.
func (r *PostgresRepository) TransitionCampaignStatus(ctx context.Context, campaignID uuid.UUID, from, to domain.CampaignStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidCampaignState
	}

	query := `UPDATE campaigns SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	result, err := r.db.Exec(ctx, query, campaignID, from, to)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM campaigns WHERE id = $1)`, campaignID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrCampaignNotFound
		}
		return ErrInvalidCampaignState
	}
	return nil
}

// RecomputeCampaignTotals recalculates raised_amount and donor_count from
// scratch over completed donations. It locks the campaign row for the duration
// so it cannot interleave with an incremental confirm update. Idempotent; this
// is the authoritative recovery operation after any suspected drift.
func (r *PostgresRepository) RecomputeCampaignTotals(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignTotals, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin recompute tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var version int64
	err = tx.QueryRow(ctx, `SELECT version FROM campaigns WHERE id = $1 FOR UPDATE`, campaignID).Scan(&version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, mapConcurrencyError(err)
	}

	var totals domain.CampaignTotals
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(DISTINCT donor_id)
		FROM donations
		WHERE campaign_id = $1 AND status = 'completed'
	`, campaignID).Scan(&totals.RaisedAmount, &totals.DonorCount)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE campaigns
		SET raised_amount = $2, donor_count = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`, campaignID, totals.RaisedAmount, totals.DonorCount)
	if err != nil {
		return nil, mapConcurrencyError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapConcurrencyError(err)
	}
	return &totals, nil
}
