/**
 * @description
 * This file contains the core business logic for the donation-service. The `Service`
 * struct orchestrates the donation verification flow, coordinating between the
 * database repository, the evidence blob store, and the message broker.
 *
 * Key features:
 * - Implements the main use cases: donation submission, proof attachment, and
 *   the reviewer confirm/reject transitions.
 * - Confirmation applies the campaign aggregate update atomically with the
 *   status transition; a bounded retry absorbs serialization conflicts.
 * - Publishes decision events to RabbitMQ for the notification dispatcher;
 *   publish failures are logged and swallowed, never rolled into ledger errors.
 *
 * @dependencies
 * - context, errors, log, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/givehub/donation-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

// aggregateConflictRetries bounds the automatic retry of confirm/recompute
// operations that fail on a serialization conflict. Conflict retries are safe:
// the donation CAS makes the transition itself at-most-once regardless.
const aggregateConflictRetries = 3

var (
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrReasonRequired           = errors.New("rejection reason is required")
	ErrInvalidCategory          = errors.New("unknown fund usage category")
	ErrInvalidRecurringInterval = errors.New("invalid recurring interval")
	ErrIntervalWithoutRecurring = errors.New("recurring interval set on a one-time donation")
	ErrTitleRequired            = errors.New("campaign title is required")
	ErrInvalidTargetAmount      = errors.New("campaign target amount must be greater than zero")
	ErrDescriptionRequired      = errors.New("fund usage description is required")
	ErrAdjustmentAmountInvalid  = errors.New("negative amounts are only valid for adjustment entries")
	ErrEmptyProof               = errors.New("proof upload is empty")
	ErrInvalidStatusFilter      = errors.New("unknown donation status filter")
	ErrSubmissionRateLimited    = errors.New("donation submission rate limit exceeded")
)

// BlobStore is the contract of the external evidence store consumed by the
// service. Satisfied by *blobstore.Client.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	URLFor(reference string) string
}

// SubmissionRateLimiter throttles donation submissions per donor. A nil
// limiter, or one without a backing client, allows everything.
type SubmissionRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the donation ledger.
type Service struct {
	repo          store.Repository
	blobStore     BlobStore
	eventProducer rabbitmq.Publisher

	rateLimiter          SubmissionRateLimiter
	submissionsPerMinute int
	defaultCurrency      string
}

// NewService creates a new donation service instance.
func NewService(repo store.Repository, blobStore BlobStore, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:          repo,
		blobStore:     blobStore,
		eventProducer: producer,
	}
}

// SetSubmissionRateLimiter attaches a per-donor submission limiter. Zero or
// negative limits disable throttling.
func (s *Service) SetSubmissionRateLimiter(limiter SubmissionRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.submissionsPerMinute = perMinute
}

// SetDefaultCurrency overrides the currency assigned to donations submitted
// without one.
func (s *Service) SetDefaultCurrency(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code != "" {
		s.defaultCurrency = code
	}
}

// SubmitDonation validates and records a new donation in `pending`. The
// campaign checks (existence, ownership, published status) run inside the
// store's insert transaction.
func (s *Service) SubmitDonation(ctx context.Context, donorID uuid.UUID, req domain.CreateDonationRequest) (*domain.Donation, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var interval *domain.RecurringInterval
	if req.IsRecurring {
		if req.RecurringInterval == nil {
			return nil, ErrInvalidRecurringInterval
		}
		candidate := domain.RecurringInterval(strings.ToLower(strings.TrimSpace(*req.RecurringInterval)))
		if !candidate.Valid() {
			return nil, ErrInvalidRecurringInterval
		}
		interval = &candidate
	} else if req.RecurringInterval != nil {
		return nil, ErrIntervalWithoutRecurring
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if currency == "" {
		currency = "PHP"
	}

	if s.rateLimiter != nil && s.submissionsPerMinute > 0 {
		count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "donation_submit", donorID.String(), s.submissionsPerMinute, time.Minute)
		if err != nil {
			// Throttling is best-effort; a limiter outage must not block donations.
			log.Printf("level=warn component=service op=submit_donation msg=\"rate limiter unavailable; allowing\" donor_id=%s err=%v", donorID, err)
		} else if count > s.submissionsPerMinute {
			log.Printf("level=warn component=service op=submit_donation outcome=rate_limited donor_id=%s retry_after_s=%d", donorID, retryAfter)
			return nil, ErrSubmissionRateLimited
		}
	}

	donation := &domain.Donation{
		ID:                uuid.New(),
		DonorID:           donorID,
		CharityID:         req.CharityID,
		CampaignID:        req.CampaignID,
		Amount:            req.Amount,
		Currency:          currency,
		Status:            domain.DonationPending,
		IsAnonymous:       req.IsAnonymous,
		IsRecurring:       req.IsRecurring,
		RecurringInterval: interval,
	}
	if err := s.repo.CreateDonation(ctx, donation); err != nil {
		return nil, err
	}

	log.Printf("level=info component=service op=submit_donation outcome=created donation_id=%s charity_id=%s amount=%d", donation.ID, donation.CharityID, donation.Amount)
	return donation, nil
}

// AttachProof uploads evidence bytes to the blob store and records the
// returned reference on the pending donation. The donation's status never
// changes here; a donation may legitimately stay pending with no evidence.
func (s *Service) AttachProof(ctx context.Context, donationID uuid.UUID, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyProof
	}

	reference, err := s.blobStore.Store(ctx, data, contentType)
	if err != nil {
		return "", err
	}

	if err := s.repo.AttachDonationProof(ctx, donationID, reference); err != nil {
		// The blob is orphaned but the ledger stays correct; the reference was
		// never persisted.
		return "", err
	}

	log.Printf("level=info component=service op=attach_proof outcome=attached donation_id=%s", donationID)
	return reference, nil
}

// ConfirmDonation drives the pending -> completed transition. Exactly one
// caller wins for any donation; the campaign rollup is updated in the same
// store transaction, so no intermediate state is ever observable. Serialization
// conflicts are retried a bounded number of times; an already-decided donation
// is never retried.
func (s *Service) ConfirmDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID) (*domain.Donation, error) {
	var donation *domain.Donation
	err := retryOnAggregateConflict("confirm_donation", func() error {
		var confirmErr error
		donation, confirmErr = s.repo.ConfirmDonation(ctx, donationID, reviewerID)
		return confirmErr
	})
	if err != nil {
		return nil, err
	}

	s.publishDecision(ctx, donation, rabbitmq.RoutingKeyDonationConfirmed)
	log.Printf("level=info component=service op=confirm_donation outcome=completed donation_id=%s reviewer_id=%s amount=%d", donation.ID, reviewerID, donation.Amount)
	return donation, nil
}

// RejectDonation drives the pending -> rejected transition. The reason is
// mandatory and preserved verbatim for the donor.
func (s *Service) RejectDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID, reason string) (*domain.Donation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	donation, err := s.repo.RejectDonation(ctx, donationID, reviewerID, reason)
	if err != nil {
		return nil, err
	}

	s.publishDecision(ctx, donation, rabbitmq.RoutingKeyDonationRejected)
	log.Printf("level=info component=service op=reject_donation outcome=rejected donation_id=%s reviewer_id=%s", donation.ID, reviewerID)
	return donation, nil
}

// publishDecision hands the decision to the notification dispatcher. Failures
// are logged and swallowed: the ledger transaction has already committed and
// must never be affected by notification delivery.
func (s *Service) publishDecision(ctx context.Context, donation *domain.Donation, routingKey string) {
	if s.eventProducer == nil {
		return
	}

	decidedAt := time.Now().UTC()
	if donation.DecidedAt != nil {
		decidedAt = *donation.DecidedAt
	}
	event := domain.DonationDecisionEvent{
		DonationID:      donation.ID,
		DonorID:         donation.DonorID,
		CharityID:       donation.CharityID,
		CampaignID:      donation.CampaignID,
		Amount:          donation.Amount,
		Status:          string(donation.Status),
		RejectionReason: donation.RejectionReason,
		DecidedAt:       decidedAt,
	}
	if err := s.eventProducer.Publish(ctx, rabbitmq.EventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=service op=publish_decision msg=\"event publish failed; decision stands\" donation_id=%s routing_key=%s err=%v", donation.ID, routingKey, err)
	}
}

// GetDonation retrieves a single donation.
func (s *Service) GetDonation(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	return s.repo.FindDonationByID(ctx, donationID)
}

// ListPendingDonations returns the review queue for a charity, oldest first.
// An explicit status filter narrows the queue to that status; the default is
// pending. Proof references are resolved to fetchable URLs for the reviewer UI.
func (s *Service) ListPendingDonations(ctx context.Context, charityID uuid.UUID, filters domain.PendingDonationFilters) ([]domain.PendingDonation, error) {
	if filters.Status != "" {
		status := domain.DonationStatus(strings.ToLower(strings.TrimSpace(string(filters.Status))))
		if !status.Valid() {
			return nil, ErrInvalidStatusFilter
		}
		filters.Status = status
	}

	pending, err := s.repo.ListPendingDonations(ctx, charityID, filters)
	if err != nil {
		return nil, err
	}
	if s.blobStore != nil {
		for i := range pending {
			if pending[i].ProofReference != nil {
				pending[i].ProofURL = s.blobStore.URLFor(*pending[i].ProofReference)
			}
		}
	}
	return pending, nil
}

// CreateCampaign records a new campaign in draft.
func (s *Service) CreateCampaign(ctx context.Context, req domain.CreateCampaignRequest) (*domain.Campaign, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if req.TargetAmount <= 0 {
		return nil, ErrInvalidTargetAmount
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}

	campaign := &domain.Campaign{
		ID:           uuid.New(),
		CharityID:    req.CharityID,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		TargetAmount: req.TargetAmount,
		Status:       domain.CampaignDraft,
		StartDate:    startDate,
		EndDate:      req.EndDate,
	}
	if err := s.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}

	log.Printf("level=info component=service op=create_campaign outcome=created campaign_id=%s charity_id=%s target=%d", campaign.ID, campaign.CharityID, campaign.TargetAmount)
	return campaign, nil
}

// GetCampaign retrieves a campaign with its derived aggregates.
func (s *Service) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	return s.repo.FindCampaignByID(ctx, campaignID)
}

// PublishCampaign opens a draft campaign for donations.
func (s *Service) PublishCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return s.repo.TransitionCampaignStatus(ctx, campaignID, domain.CampaignDraft, domain.CampaignPublished)
}

// CloseCampaign stops a published campaign from accepting new donations.
// Historical data and the fund-usage ledger remain writable.
func (s *Service) CloseCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return s.repo.TransitionCampaignStatus(ctx, campaignID, domain.CampaignPublished, domain.CampaignClosed)
}

// ArchiveCampaign makes a closed campaign read-only.
func (s *Service) ArchiveCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return s.repo.TransitionCampaignStatus(ctx, campaignID, domain.CampaignClosed, domain.CampaignArchived)
}

// RecordFundUsage appends an expenditure to the campaign's transparency log.
// Positive amounts are ordinary expenses; a negative amount is only legal for
// an adjustment entry that references the original via Adjusts.
func (s *Service) RecordFundUsage(ctx context.Context, campaignID uuid.UUID, req domain.RecordFundUsageRequest) (*domain.RecordFundUsageResult, error) {
	category := domain.UsageCategory(strings.ToLower(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrDescriptionRequired
	}
	if req.Adjusts == nil {
		if req.Amount < 0 {
			return nil, ErrAdjustmentAmountInvalid
		}
		if req.Amount == 0 {
			return nil, ErrInvalidAmount
		}
	} else if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	spentAt := req.SpentAt
	if spentAt.IsZero() {
		spentAt = time.Now().UTC()
	}

	entry := &domain.FundUsageEntry{
		ID:                  uuid.New(),
		CampaignID:          campaignID,
		Category:            category,
		Amount:              req.Amount,
		Description:         strings.TrimSpace(req.Description),
		SpentAt:             spentAt,
		AttachmentReference: req.AttachmentReference,
		Adjusts:             req.Adjusts,
	}

	result, err := s.repo.RecordFundUsage(ctx, entry)
	if err != nil {
		return nil, err
	}
	if result.OverLogged {
		log.Printf("level=warn component=service op=record_fund_usage msg=\"campaign over-logged\" campaign_id=%s over_by=%d", campaignID, result.OverLoggedBy)
	}
	return result, nil
}

// ListFundUsage returns the raw expenditure log for a campaign.
func (s *Service) ListFundUsage(ctx context.Context, campaignID uuid.UUID) ([]domain.FundUsageEntry, error) {
	return s.repo.ListFundUsage(ctx, campaignID)
}

// FundUsageReport returns the grouped transparency report for a campaign.
func (s *Service) FundUsageReport(ctx context.Context, campaignID uuid.UUID) (*domain.FundUsageReport, error) {
	return s.repo.FundUsageReport(ctx, campaignID)
}

// retryOnAggregateConflict runs fn, retrying on serialization conflicts with a
// small linear backoff.
func retryOnAggregateConflict(op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < aggregateConflictRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, store.ErrAggregateConflict) {
			return err
		}
		log.Printf("level=warn component=service op=%s msg=\"aggregate conflict; retrying\" attempt=%d", op, attempt+1)
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}
	return fmt.Errorf("%s: retries exhausted: %w", op, err)
}
