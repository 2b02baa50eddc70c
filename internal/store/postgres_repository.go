/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for donation records. It contains the SQL for creating donations, attaching
 * proof evidence, and the confirm/reject transitions.
 *
 * The confirm and reject paths are the heart of the service: a single database
 * transaction performs a compare-and-swap on `status = 'pending'` and, for
 * confirmations against a campaign, updates the campaign's derived aggregates
 * in the same transaction. Exactly one concurrent caller wins the CAS; losers
 * observe ErrDonationAlreadyDecided.
 *
 * @dependencies
 * - context, errors, fmt, strings, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCharityNotFound         = errors.New("charity not found")
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrDonationNotFound        = errors.New("donation not found")
	ErrDonationAlreadyDecided  = errors.New("donation already decided")
	ErrCampaignNotAccepting    = errors.New("campaign is not accepting donations")
	ErrCampaignCharityMismatch = errors.New("campaign does not belong to charity")
	ErrCampaignDraft           = errors.New("campaign is still in draft")
	ErrCampaignArchived        = errors.New("campaign is archived and read-only")
	ErrInvalidCampaignState    = errors.New("campaign lifecycle transition not allowed")
	ErrAdjustTargetNotFound    = errors.New("adjusted fund-usage entry not found")
	ErrAggregateConflict       = errors.New("concurrent aggregate update conflict")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// isSerializationError reports whether err is a retryable concurrency failure
// (serialization failure or deadlock detected).
func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

// mapConcurrencyError converts retryable driver failures into the sentinel the
// service retries on; other errors pass through unchanged.
func mapConcurrencyError(err error) error {
	if isSerializationError(err) {
		return ErrAggregateConflict
	}
	return err
}

const donationColumns = `id, donor_id, charity_id, campaign_id, amount, currency, status,
	is_anonymous, is_recurring, recurring_interval, proof_reference, rejection_reason,
	decided_by, submitted_at, decided_at`

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(
		&d.ID, &d.DonorID, &d.CharityID, &d.CampaignID, &d.Amount, &d.Currency, &d.Status,
		&d.IsAnonymous, &d.IsRecurring, &d.RecurringInterval, &d.ProofReference, &d.RejectionReason,
		&d.DecidedBy, &d.SubmittedAt, &d.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CharityExists reports whether a charity record exists.
func (r *PostgresRepository) CharityExists(ctx context.Context, charityID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM charities WHERE id = $1)`, charityID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CreateDonation inserts a new donation in `pending`. The referential checks
// (charity exists; campaign exists, belongs to the charity and is published)
// run inside the insert transaction so a campaign cannot slip out of
// `published` between validation and insert.
func (r *PostgresRepository) CreateDonation(ctx context.Context, donation *domain.Donation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create donation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var charityExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM charities WHERE id = $1)`, donation.CharityID).Scan(&charityExists); err != nil {
		return err
	}
	if !charityExists {
		return ErrCharityNotFound
	}

	if donation.CampaignID != nil {
		var campaignCharityID uuid.UUID
		var campaignStatus domain.CampaignStatus
		err := tx.QueryRow(ctx,
			`SELECT charity_id, status FROM campaigns WHERE id = $1`,
			*donation.CampaignID,
		).Scan(&campaignCharityID, &campaignStatus)
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrCampaignNotFound
			}
			return err
		}
		if campaignCharityID != donation.CharityID {
			return ErrCampaignCharityMismatch
		}
		if !campaignStatus.AcceptsDonations() {
			return ErrCampaignNotAccepting
		}
	}

	query := `
		INSERT INTO donations (
			id, donor_id, charity_id, campaign_id, amount, currency, status,
			is_anonymous, is_recurring, recurring_interval, proof_reference, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING submitted_at
	`
	err = tx.QueryRow(ctx, query,
		donation.ID, donation.DonorID, donation.CharityID, donation.CampaignID,
		donation.Amount, donation.Currency, donation.Status,
		donation.IsAnonymous, donation.IsRecurring, donation.RecurringInterval, donation.ProofReference,
	).Scan(&donation.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}

	return tx.Commit(ctx)
}

// FindDonationByID retrieves a donation by its ID.
func (r *PostgresRepository) FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	donation, err := scanDonation(r.db.QueryRow(ctx, query, donationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return donation, nil
}

// AttachDonationProof sets the externally stored evidence reference on a
// pending donation. Evidence on a decided donation is meaningless, so the
// update is guarded by the same status check as the transitions.
func (r *PostgresRepository) AttachDonationProof(ctx context.Context, donationID uuid.UUID, proofReference string) error {
	query := `UPDATE donations SET proof_reference = $2 WHERE id = $1 AND status = 'pending'`
	result, err := r.db.Exec(ctx, query, donationID, proofReference)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return r.classifyMissedDonationUpdate(ctx, donationID)
	}
	return nil
}

// ConfirmDonation transitions a pending donation to completed and applies the
// campaign aggregate update in the same transaction. The campaign row is
// locked FOR UPDATE before the distinct-donor count runs: the count is a
// separate statement, so its snapshot is taken after any concurrent confirm
// holding the lock has committed and its donation is visible to the count.
func (r *PostgresRepository) ConfirmDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID) (*domain.Donation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	casQuery := `
		UPDATE donations
		SET status = 'completed', decided_at = NOW(), decided_by = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + donationColumns
	donation, err := scanDonation(tx.QueryRow(ctx, casQuery, donationID, reviewerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyMissedDonationUpdate(ctx, donationID)
		}
		return nil, mapConcurrencyError(err)
	}

	if donation.CampaignID != nil {
		var version int64
		err := tx.QueryRow(ctx,
			`SELECT version FROM campaigns WHERE id = $1 FOR UPDATE`,
			*donation.CampaignID,
		).Scan(&version)
		if err != nil {
			if err == pgx.ErrNoRows {
				// The insert-time referential check makes this unreachable short
				// of manual row deletion; refuse to confirm against a vanished
				// campaign.
				return nil, ErrCampaignNotFound
			}
			return nil, mapConcurrencyError(err)
		}

		var donorCount int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(DISTINCT donor_id) FROM donations WHERE campaign_id = $1 AND status = 'completed'`,
			*donation.CampaignID,
		).Scan(&donorCount)
		if err != nil {
			return nil, mapConcurrencyError(err)
		}

		aggregateQuery := `
			UPDATE campaigns
			SET raised_amount = raised_amount + $2,
			    donor_count = $3,
			    version = version + 1,
			    updated_at = NOW()
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, aggregateQuery, *donation.CampaignID, donation.Amount, donorCount); err != nil {
			return nil, mapConcurrencyError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapConcurrencyError(err)
	}
	return donation, nil
}

// RejectDonation transitions a pending donation to rejected with the reviewer's
// reason. Campaign aggregates are never touched by a rejection.
func (r *PostgresRepository) RejectDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID, reason string) (*domain.Donation, error) {
	query := `
		UPDATE donations
		SET status = 'rejected', decided_at = NOW(), decided_by = $2, rejection_reason = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + donationColumns
	donation, err := scanDonation(r.db.QueryRow(ctx, query, donationID, reviewerID, reason))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyMissedDonationUpdate(ctx, donationID)
		}
		return nil, mapConcurrencyError(err)
	}
	return donation, nil
}

// classifyMissedDonationUpdate distinguishes "no such donation" from "donation
// exists but is no longer pending" after a zero-row CAS update.
func (r *PostgresRepository) classifyMissedDonationUpdate(ctx context.Context, donationID uuid.UUID) error {
	var status domain.DonationStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM donations WHERE id = $1`, donationID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrDonationNotFound
		}
		return err
	}
	return ErrDonationAlreadyDecided
}

// ListPendingDonations returns the review queue for a charity: donations in
// the requested status (pending when unset) oldest-first, with the donor
// display name masked for anonymous donations. Search matches the display name
// or a donation id prefix.
func (r *PostgresRepository) ListPendingDonations(ctx context.Context, charityID uuid.UUID, filters domain.PendingDonationFilters) ([]domain.PendingDonation, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}
	status := filters.Status
	if status == "" {
		status = domain.DonationPending
	}

	query := `
		SELECT d.id,
		       CASE WHEN d.is_anonymous THEN $4 ELSE COALESCE(dn.full_name, 'Unknown donor') END AS donor_name,
		       d.charity_id, d.campaign_id, c.title, d.amount, d.currency, d.proof_reference, d.submitted_at
		FROM donations d
		LEFT JOIN donors dn ON dn.id = d.donor_id
		LEFT JOIN campaigns c ON c.id = d.campaign_id
		WHERE d.charity_id = $1 AND d.status = $5
	`
	args := []interface{}{charityID, limit, offset, domain.AnonymousDonorName, status}

	if pattern, ok := pendingSearchPattern(filters.Search); ok {
		query += `
		  AND (
		      (CASE WHEN d.is_anonymous THEN $4 ELSE COALESCE(dn.full_name, '') END) ILIKE $6
		      OR d.id::text ILIKE $6
		  )`
		args = append(args, pattern)
	}

	query += `
		ORDER BY d.submitted_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []domain.PendingDonation
	for rows.Next() {
		var p domain.PendingDonation
		err := rows.Scan(
			&p.ID, &p.DonorName, &p.CharityID, &p.CampaignID, &p.CampaignTitle,
			&p.Amount, &p.Currency, &p.ProofReference, &p.SubmittedAt,
		)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// ListRecentlyDecidedCampaignIDs returns campaign ids with at least one
// donation decided since the given time. The reconciler sweeps these.
func (r *PostgresRepository) ListRecentlyDecidedCampaignIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT campaign_id FROM donations
		WHERE campaign_id IS NOT NULL AND decided_at >= $1
	`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// pendingSearchPattern normalizes a free-text review-queue search term into an
// ILIKE pattern. Blank input disables the search clause; literal pattern
// characters are escaped so donor-supplied text cannot widen the match.
func pendingSearchPattern(search string) (string, bool) {
	trimmed := strings.TrimSpace(search)
	if trimmed == "" {
		return "", false
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(trimmed)
	return "%" + escaped + "%", true
}
