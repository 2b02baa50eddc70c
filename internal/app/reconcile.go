/**
 * @description
 * Reconciliation path of the aggregation engine. The incremental update inside
 * ConfirmDonation is the preferred mode; these operations are the recovery
 * path, recomputing a campaign's raised_amount and donor_count from scratch
 * over its completed donations. Recompute is idempotent and authoritative
 * after any suspected drift.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
)

// ReconcileCampaign recomputes a single campaign's aggregates from the
// donation ledger. Repaired drift is logged; a no-op recompute is silent.
func (s *Service) ReconcileCampaign(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignTotals, error) {
	before, err := s.repo.FindCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var totals *domain.CampaignTotals
	err = retryOnAggregateConflict("reconcile_campaign", func() error {
		var recomputeErr error
		totals, recomputeErr = s.repo.RecomputeCampaignTotals(ctx, campaignID)
		return recomputeErr
	})
	if err != nil {
		return nil, err
	}

	if totals.RaisedAmount != before.RaisedAmount || totals.DonorCount != before.DonorCount {
		log.Printf("level=warn component=service op=reconcile_campaign msg=\"drift repaired\" campaign_id=%s raised_before=%d raised_after=%d donors_before=%d donors_after=%d",
			campaignID, before.RaisedAmount, totals.RaisedAmount, before.DonorCount, totals.DonorCount)
	}
	return totals, nil
}

// ReconcileRecentlyActive recomputes every campaign with a donation decided
// inside the lookback window. Individual failures are logged and do not stop
// the sweep.
func (s *Service) ReconcileRecentlyActive(ctx context.Context, lookback time.Duration) (reconciled int, err error) {
	since := time.Now().UTC().Add(-lookback)
	campaignIDs, err := s.repo.ListRecentlyDecidedCampaignIDs(ctx, since)
	if err != nil {
		return 0, err
	}

	for _, campaignID := range campaignIDs {
		if _, err := s.ReconcileCampaign(ctx, campaignID); err != nil {
			log.Printf("level=error component=service op=reconcile_sweep msg=\"campaign reconcile failed\" campaign_id=%s err=%v", campaignID, err)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}
