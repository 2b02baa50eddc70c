/**
 * @description
 * HTTP handlers for campaign lifecycle, the fund-usage ledger, and the
 * operator reconciliation endpoint.
 */

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/givehub/donation-service/internal/domain"
	"github.com/google/uuid"
)

// CreateCampaignHandler creates a campaign in draft.
func (h *DonationHandlers) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	campaign, err := h.service.CreateCampaign(r.Context(), req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_campaign outcome=failed charity_id=%s err=%v", req.CharityID, err)
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, campaign)
}

// GetCampaignHandler returns a campaign including its derived aggregates.
func (h *DonationHandlers) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	campaign, err := h.service.GetCampaign(r.Context(), campaignID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, campaign)
}

// PublishCampaignHandler transitions draft -> published.
func (h *DonationHandlers) PublishCampaignHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionCampaign(w, r, h.service.PublishCampaign)
}

// CloseCampaignHandler transitions published -> closed.
func (h *DonationHandlers) CloseCampaignHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionCampaign(w, r, h.service.CloseCampaign)
}

// ArchiveCampaignHandler transitions closed -> archived.
func (h *DonationHandlers) ArchiveCampaignHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionCampaign(w, r, h.service.ArchiveCampaign)
}

func (h *DonationHandlers) transitionCampaign(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, campaignID uuid.UUID) error) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	if err := transition(r.Context(), campaignID); err != nil {
		log.Printf("level=warn component=api endpoint=campaign_transition outcome=failed campaign_id=%s err=%v", campaignID, err)
		h.writeDomainError(w, err)
		return
	}

	campaign, err := h.service.GetCampaign(r.Context(), campaignID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, campaign)
}

// RecordFundUsageHandler appends a fund-usage entry to a campaign. The
// over-logged condition is returned alongside the created entry as a warning,
// never as a failure.
func (h *DonationHandlers) RecordFundUsageHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	var req domain.RecordFundUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.service.RecordFundUsage(r.Context(), campaignID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=record_fund_usage outcome=failed campaign_id=%s err=%v", campaignID, err)
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// ListFundUsageHandler returns the expenditure log, or the grouped
// transparency report when groupBy=category is requested.
func (h *DonationHandlers) ListFundUsageHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	if strings.EqualFold(r.URL.Query().Get("groupBy"), "category") {
		report, err := h.service.FundUsageReport(r.Context(), campaignID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, report)
		return
	}

	entries, err := h.service.ListFundUsage(r.Context(), campaignID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.FundUsageEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// ReconcileCampaignHandler recomputes a campaign's aggregates from scratch.
// Operator recovery endpoint; safe to call at any time.
func (h *DonationHandlers) ReconcileCampaignHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	totals, err := h.service.ReconcileCampaign(r.Context(), campaignID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=reconcile_campaign outcome=failed campaign_id=%s err=%v", campaignID, err)
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, totals)
}
