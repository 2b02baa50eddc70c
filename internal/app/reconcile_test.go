package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/google/uuid"
)

type reconcileRepoStub struct {
	store.Repository

	campaign *domain.Campaign
	totals   map[uuid.UUID]*domain.CampaignTotals

	recomputeErrs  map[uuid.UUID]error
	recomputeCalls []uuid.UUID

	recentIDs []uuid.UUID
}

func (s *reconcileRepoStub) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	if s.campaign == nil {
		return nil, store.ErrCampaignNotFound
	}
	return s.campaign, nil
}

func (s *reconcileRepoStub) RecomputeCampaignTotals(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignTotals, error) {
	s.recomputeCalls = append(s.recomputeCalls, campaignID)
	if err, ok := s.recomputeErrs[campaignID]; ok {
		return nil, err
	}
	if totals, ok := s.totals[campaignID]; ok {
		return totals, nil
	}
	return &domain.CampaignTotals{}, nil
}

func (s *reconcileRepoStub) ListRecentlyDecidedCampaignIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	return s.recentIDs, nil
}

func TestReconcileCampaign_ReturnsRecomputedTotals(t *testing.T) {
	campaignID := uuid.New()
	repo := &reconcileRepoStub{
		campaign: &domain.Campaign{
			ID:           campaignID,
			Status:       domain.CampaignPublished,
			RaisedAmount: 9000, // drifted; ledger says 12000
			DonorCount:   2,
		},
		totals: map[uuid.UUID]*domain.CampaignTotals{
			campaignID: {RaisedAmount: 12000, DonorCount: 3},
		},
	}
	svc := NewService(repo, nil, nil)

	totals, err := svc.ReconcileCampaign(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("expected reconcile to succeed, got %v", err)
	}
	if totals.RaisedAmount != 12000 || totals.DonorCount != 3 {
		t.Fatalf("expected recomputed totals, got %+v", totals)
	}
}

func TestReconcileCampaign_UnknownCampaign(t *testing.T) {
	svc := NewService(&reconcileRepoStub{}, nil, nil)

	_, err := svc.ReconcileCampaign(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestReconcileRecentlyActive_ContinuesPastFailures(t *testing.T) {
	healthy := uuid.New()
	broken := uuid.New()
	repo := &reconcileRepoStub{
		campaign:  &domain.Campaign{Status: domain.CampaignPublished},
		recentIDs: []uuid.UUID{broken, healthy},
		totals: map[uuid.UUID]*domain.CampaignTotals{
			healthy: {RaisedAmount: 500, DonorCount: 1},
		},
		recomputeErrs: map[uuid.UUID]error{
			broken: errors.New("connection reset"),
		},
	}
	svc := NewService(repo, nil, nil)

	reconciled, err := svc.ReconcileRecentlyActive(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("expected sweep to succeed, got %v", err)
	}
	if reconciled != 1 {
		t.Fatalf("expected 1 campaign reconciled, got %d", reconciled)
	}

	sawHealthy := false
	for _, id := range repo.recomputeCalls {
		if id == healthy {
			sawHealthy = true
		}
	}
	if !sawHealthy {
		t.Fatal("expected sweep to continue to the healthy campaign after a failure")
	}
}
