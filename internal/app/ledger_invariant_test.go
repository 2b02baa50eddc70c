package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/google/uuid"
)

// memoryLedgerRepo mirrors the store's transactional semantics in memory: the
// pending-status CAS on decisions, and the aggregate update applied under the
// same lock as the status transition. It lets the full confirm/reject flow run
// through Service without a database.
type memoryLedgerRepo struct {
	store.Repository

	mu        sync.Mutex
	donations map[uuid.UUID]*domain.Donation
	campaigns map[uuid.UUID]*domain.Campaign
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		donations: make(map[uuid.UUID]*domain.Donation),
		campaigns: make(map[uuid.UUID]*domain.Campaign),
	}
}

func (m *memoryLedgerRepo) addPublishedCampaign(charityID uuid.UUID) *domain.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign := &domain.Campaign{
		ID:           uuid.New(),
		CharityID:    charityID,
		Title:        "Trial Ledger Drive",
		TargetAmount: 1_000_000,
		Status:       domain.CampaignPublished,
	}
	m.campaigns[campaign.ID] = campaign
	return campaign
}

func (m *memoryLedgerRepo) CreateDonation(ctx context.Context, donation *domain.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if donation.CampaignID != nil {
		campaign, ok := m.campaigns[*donation.CampaignID]
		if !ok {
			return store.ErrCampaignNotFound
		}
		if campaign.CharityID != donation.CharityID {
			return store.ErrCampaignCharityMismatch
		}
		if !campaign.Status.AcceptsDonations() {
			return store.ErrCampaignNotAccepting
		}
	}
	copied := *donation
	m.donations[donation.ID] = &copied
	return nil
}

func (m *memoryLedgerRepo) FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	donation, ok := m.donations[donationID]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	copied := *donation
	return &copied, nil
}

func (m *memoryLedgerRepo) ConfirmDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID) (*domain.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	donation, ok := m.donations[donationID]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	if donation.Status != domain.DonationPending {
		return nil, store.ErrDonationAlreadyDecided
	}

	donation.Status = domain.DonationCompleted
	donation.DecidedBy = &reviewerID

	if donation.CampaignID != nil {
		campaign, ok := m.campaigns[*donation.CampaignID]
		if !ok {
			return nil, store.ErrCampaignNotFound
		}
		campaign.RaisedAmount += donation.Amount
		campaign.DonorCount = m.distinctCompletedDonorsLocked(campaign.ID)
		campaign.Version++
	}

	copied := *donation
	return &copied, nil
}

func (m *memoryLedgerRepo) RejectDonation(ctx context.Context, donationID uuid.UUID, reviewerID uuid.UUID, reason string) (*domain.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	donation, ok := m.donations[donationID]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	if donation.Status != domain.DonationPending {
		return nil, store.ErrDonationAlreadyDecided
	}

	donation.Status = domain.DonationRejected
	donation.DecidedBy = &reviewerID
	donation.RejectionReason = &reason

	copied := *donation
	return &copied, nil
}

func (m *memoryLedgerRepo) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.campaigns[campaignID]
	if !ok {
		return nil, store.ErrCampaignNotFound
	}
	copied := *campaign
	return &copied, nil
}

func (m *memoryLedgerRepo) RecomputeCampaignTotals(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.campaigns[campaignID]
	if !ok {
		return nil, store.ErrCampaignNotFound
	}

	var raised int64
	for _, donation := range m.donations {
		if donation.CampaignID != nil && *donation.CampaignID == campaignID && donation.Status == domain.DonationCompleted {
			raised += donation.Amount
		}
	}
	campaign.RaisedAmount = raised
	campaign.DonorCount = m.distinctCompletedDonorsLocked(campaignID)
	campaign.Version++
	return &domain.CampaignTotals{RaisedAmount: campaign.RaisedAmount, DonorCount: campaign.DonorCount}, nil
}

func (m *memoryLedgerRepo) distinctCompletedDonorsLocked(campaignID uuid.UUID) int {
	donors := make(map[uuid.UUID]struct{})
	for _, donation := range m.donations {
		if donation.CampaignID != nil && *donation.CampaignID == campaignID && donation.Status == domain.DonationCompleted {
			donors[donation.DonorID] = struct{}{}
		}
	}
	return len(donors)
}

// completedSum is the authoritative value the campaign row must agree with.
func (m *memoryLedgerRepo) completedSum(campaignID uuid.UUID) (int64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var raised int64
	for _, donation := range m.donations {
		if donation.CampaignID != nil && *donation.CampaignID == campaignID && donation.Status == domain.DonationCompleted {
			raised += donation.Amount
		}
	}
	return raised, m.distinctCompletedDonorsLocked(campaignID)
}

func submitToCampaign(t *testing.T, svc *Service, donorID uuid.UUID, campaign *domain.Campaign, amount int64) *domain.Donation {
	t.Helper()
	donation, err := svc.SubmitDonation(context.Background(), donorID, domain.CreateDonationRequest{
		CharityID:  campaign.CharityID,
		CampaignID: &campaign.ID,
		Amount:     amount,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return donation
}

func assertCampaignMatchesLedger(t *testing.T, repo *memoryLedgerRepo, svc *Service, campaignID uuid.UUID) {
	t.Helper()
	campaign, err := svc.GetCampaign(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	wantRaised, wantDonors := repo.completedSum(campaignID)
	if campaign.RaisedAmount != wantRaised {
		t.Fatalf("raised_amount drifted: campaign says %d, completed donations sum to %d", campaign.RaisedAmount, wantRaised)
	}
	if campaign.DonorCount != wantDonors {
		t.Fatalf("donor_count drifted: campaign says %d, distinct completed donors are %d", campaign.DonorCount, wantDonors)
	}
}

func TestConfirmRejectFlow_CampaignAggregatesTrackCompletedDonations(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil)
	reviewerID := uuid.New()

	campaign := repo.addPublishedCampaign(uuid.New())
	repeatDonor := uuid.New()
	otherDonor := uuid.New()
	thirdDonor := uuid.New()

	first := submitToCampaign(t, svc, repeatDonor, campaign, 1000)
	second := submitToCampaign(t, svc, repeatDonor, campaign, 2000)
	third := submitToCampaign(t, svc, otherDonor, campaign, 3000)
	stillPending := submitToCampaign(t, svc, thirdDonor, campaign, 4000)
	toReject := submitToCampaign(t, svc, otherDonor, campaign, 5000)

	for _, d := range []*domain.Donation{first, second, third} {
		if _, err := svc.ConfirmDonation(context.Background(), d.ID, reviewerID); err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
	}
	if _, err := svc.RejectDonation(context.Background(), toReject.ID, reviewerID, "amount mismatch"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	campaignRow, err := svc.GetCampaign(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaignRow.RaisedAmount != 6000 {
		t.Fatalf("expected raised_amount 6000 (pending and rejected excluded), got %d", campaignRow.RaisedAmount)
	}
	if campaignRow.DonorCount != 2 {
		t.Fatalf("expected donor_count 2 (repeat donor counted once), got %d", campaignRow.DonorCount)
	}

	// A second confirm of a decided donation must change nothing.
	if _, err := svc.ConfirmDonation(context.Background(), first.ID, reviewerID); !errors.Is(err, store.ErrDonationAlreadyDecided) {
		t.Fatalf("expected ErrDonationAlreadyDecided on re-confirm, got %v", err)
	}
	// A rejected donation can never be confirmed afterwards.
	if _, err := svc.ConfirmDonation(context.Background(), toReject.ID, reviewerID); !errors.Is(err, store.ErrDonationAlreadyDecided) {
		t.Fatalf("expected ErrDonationAlreadyDecided on confirm-after-reject, got %v", err)
	}
	assertCampaignMatchesLedger(t, repo, svc, campaign.ID)

	// Deciding the remaining donation keeps the aggregates in lockstep.
	if _, err := svc.ConfirmDonation(context.Background(), stillPending.ID, reviewerID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	assertCampaignMatchesLedger(t, repo, svc, campaign.ID)
}

func TestConcurrentConfirms_BothDonorsCounted(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil)
	campaign := repo.addPublishedCampaign(uuid.New())

	first := submitToCampaign(t, svc, uuid.New(), campaign, 1500)
	second := submitToCampaign(t, svc, uuid.New(), campaign, 2500)

	var wg sync.WaitGroup
	for _, d := range []*domain.Donation{first, second} {
		wg.Add(1)
		go func(donationID uuid.UUID) {
			defer wg.Done()
			if _, err := svc.ConfirmDonation(context.Background(), donationID, uuid.New()); err != nil {
				t.Errorf("confirm failed: %v", err)
			}
		}(d.ID)
	}
	wg.Wait()

	campaignRow, err := svc.GetCampaign(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaignRow.RaisedAmount != 4000 {
		t.Fatalf("expected raised_amount 4000 after both confirms, got %d", campaignRow.RaisedAmount)
	}
	if campaignRow.DonorCount != 2 {
		t.Fatalf("expected both donors counted, got donor_count %d", campaignRow.DonorCount)
	}
}

func TestRandomizedDecisions_RecomputeAgreesWithIncrementalTotals(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil)
	reviewerID := uuid.New()
	campaign := repo.addPublishedCampaign(uuid.New())

	rng := rand.New(rand.NewSource(1))
	donors := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	for i := 0; i < 40; i++ {
		donor := donors[rng.Intn(len(donors))]
		donation := submitToCampaign(t, svc, donor, campaign, int64(rng.Intn(10000)+1))
		switch rng.Intn(3) {
		case 0:
			if _, err := svc.ConfirmDonation(context.Background(), donation.ID, reviewerID); err != nil {
				t.Fatalf("confirm failed: %v", err)
			}
		case 1:
			if _, err := svc.RejectDonation(context.Background(), donation.ID, reviewerID, "spot check failed"); err != nil {
				t.Fatalf("reject failed: %v", err)
			}
		}
	}

	assertCampaignMatchesLedger(t, repo, svc, campaign.ID)

	before, err := svc.GetCampaign(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	totals, err := svc.ReconcileCampaign(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if totals.RaisedAmount != before.RaisedAmount || totals.DonorCount != before.DonorCount {
		t.Fatalf("recompute disagreed with incremental totals: incremental %d/%d, recomputed %d/%d",
			before.RaisedAmount, before.DonorCount, totals.RaisedAmount, totals.DonorCount)
	}
}
