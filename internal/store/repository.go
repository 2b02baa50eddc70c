/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the donation-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation and handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the set of methods for interacting with the database.
//
// Donation status and campaign aggregates are only ever written through
// ConfirmDonation, RejectDonation and RecomputeCampaignTotals; each of those is
// a single atomic unit against the store.
type Repository interface {
	// Donation methods
	CreateDonation(ctx context.Context, donation *domain.Donation) error
	FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error)
	AttachDonationProof(ctx context.Context, donationID uuid.UUID, proofReference string) error
	ConfirmDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID) (*domain.Donation, error)
	RejectDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID, reason string) (*domain.Donation, error)
	ListPendingDonations(ctx context.Context, charityID uuid.UUID, filters domain.PendingDonationFilters) ([]domain.PendingDonation, error)

	// Charity methods
	CharityExists(ctx context.Context, charityID uuid.UUID) (bool, error)

	// Campaign methods
	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error
	FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	TransitionCampaignStatus(ctx context.Context, campaignID uuid.UUID, from, to domain.CampaignStatus) error
	RecomputeCampaignTotals(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignTotals, error)
	ListRecentlyDecidedCampaignIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)

	// Fund-usage methods
	RecordFundUsage(ctx context.Context, entry *domain.FundUsageEntry) (*domain.RecordFundUsageResult, error)
	ListFundUsage(ctx context.Context, campaignID uuid.UUID) ([]domain.FundUsageEntry, error)
	FundUsageReport(ctx context.Context, campaignID uuid.UUID) (*domain.FundUsageReport, error)
}
