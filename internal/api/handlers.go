/**
 * @description
 * This file contains the HTTP handlers for the donation endpoints. Handlers are
 * responsible for parsing incoming requests, calling the appropriate methods on
 * the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 * - pkg/blobstore: For the evidence store error sentinel.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/givehub/donation-service/internal/app"
	"github.com/givehub/donation-service/internal/domain"
	"github.com/givehub/donation-service/internal/store"
	"github.com/givehub/donation-service/pkg/blobstore"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxProofUploadBytes caps evidence uploads; anything larger belongs on a
// different ingestion path than a JSON API.
const maxProofUploadBytes = 10 << 20

// DonationHandlers holds the application service that handlers will use.
type DonationHandlers struct {
	service *app.Service
}

// NewDonationHandlers creates a new instance of DonationHandlers.
func NewDonationHandlers(service *app.Service) *DonationHandlers {
	return &DonationHandlers{service: service}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *DonationHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *DonationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

// subjectUUID extracts the authenticated subject from the request context as a UUID.
func (h *DonationHandlers) subjectUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	subject, ok := GetSubjectID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get subject from context")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		log.Printf("level=warn component=api outcome=reject reason=invalid_subject subject=%s", subject)
		h.writeError(w, http.StatusBadRequest, "Invalid subject id format")
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// writeDomainError maps service and store sentinels onto HTTP statuses. The
// already-decided case gets a specific message so a reviewer's UI does not
// imply lost work.
func (h *DonationHandlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrDonationAlreadyDecided):
		h.writeError(w, http.StatusConflict, "Donation has already been processed")
	case errors.Is(err, store.ErrDonationNotFound):
		h.writeError(w, http.StatusNotFound, "Donation not found")
	case errors.Is(err, store.ErrCharityNotFound):
		h.writeError(w, http.StatusNotFound, "Charity not found")
	case errors.Is(err, store.ErrCampaignNotFound):
		h.writeError(w, http.StatusNotFound, "Campaign not found")
	case errors.Is(err, store.ErrAdjustTargetNotFound):
		h.writeError(w, http.StatusNotFound, "Adjusted fund usage entry not found")
	case errors.Is(err, store.ErrCampaignNotAccepting),
		errors.Is(err, store.ErrCampaignCharityMismatch):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrCampaignDraft),
		errors.Is(err, store.ErrCampaignArchived),
		errors.Is(err, store.ErrInvalidCampaignState):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrAggregateConflict):
		h.writeError(w, http.StatusServiceUnavailable, "Concurrent update conflict; please retry")
	case errors.Is(err, blobstore.ErrStoreUnavailable):
		h.writeError(w, http.StatusBadGateway, "Evidence store unavailable")
	case errors.Is(err, app.ErrSubmissionRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Too many donation submissions; please wait")
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrReasonRequired),
		errors.Is(err, app.ErrInvalidCategory),
		errors.Is(err, app.ErrInvalidRecurringInterval),
		errors.Is(err, app.ErrIntervalWithoutRecurring),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, app.ErrInvalidTargetAmount),
		errors.Is(err, app.ErrDescriptionRequired),
		errors.Is(err, app.ErrAdjustmentAmountInvalid),
		errors.Is(err, app.ErrEmptyProof),
		errors.Is(err, app.ErrInvalidStatusFilter):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// CreateDonationHandler handles new donation submissions.
func (h *DonationHandlers) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}

	var req domain.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_donation outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	donation, err := h.service.SubmitDonation(r.Context(), donorID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_donation outcome=failed donor_id=%s err=%v", donorID, err)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, donation)
}

// GetDonationHandler returns a single donation.
func (h *DonationHandlers) GetDonationHandler(w http.ResponseWriter, r *http.Request) {
	donationID, err := pathUUID(r, "donationID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid donation id")
		return
	}

	donation, err := h.service.GetDonation(r.Context(), donationID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, donation)
}

// AttachProofHandler stores uploaded evidence bytes and attaches the returned
// reference to the donation. The donation status is untouched.
func (h *DonationHandlers) AttachProofHandler(w http.ResponseWriter, r *http.Request) {
	donationID, err := pathUUID(r, "donationID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid donation id")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxProofUploadBytes+1))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Could not read upload body")
		return
	}
	if len(data) > maxProofUploadBytes {
		h.writeError(w, http.StatusRequestEntityTooLarge, "Proof upload exceeds size limit")
		return
	}

	reference, err := h.service.AttachProof(r.Context(), donationID, data, r.Header.Get("Content-Type"))
	if err != nil {
		log.Printf("level=warn component=api endpoint=attach_proof outcome=failed donation_id=%s err=%v", donationID, err)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"proof_reference": reference})
}

// ConfirmDonationHandler handles a reviewer confirming a pending donation.
func (h *DonationHandlers) ConfirmDonationHandler(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}
	donationID, err := pathUUID(r, "donationID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid donation id")
		return
	}

	donation, err := h.service.ConfirmDonation(r.Context(), donationID, reviewerID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=confirm_donation outcome=failed donation_id=%s reviewer_id=%s err=%v", donationID, reviewerID, err)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, donation)
}

// RejectDonationHandler handles a reviewer rejecting a pending donation.
func (h *DonationHandlers) RejectDonationHandler(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := h.subjectUUID(w, r)
	if !ok {
		return
	}
	donationID, err := pathUUID(r, "donationID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid donation id")
		return
	}

	var req domain.RejectDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	donation, err := h.service.RejectDonation(r.Context(), donationID, reviewerID, req.Reason)
	if err != nil {
		log.Printf("level=warn component=api endpoint=reject_donation outcome=failed donation_id=%s reviewer_id=%s err=%v", donationID, reviewerID, err)
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, donation)
}

// ListPendingDonationsHandler returns the review queue for a charity.
func (h *DonationHandlers) ListPendingDonationsHandler(w http.ResponseWriter, r *http.Request) {
	charityID, err := uuid.Parse(r.URL.Query().Get("charity_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "charity_id query parameter is required")
		return
	}

	filters := domain.PendingDonationFilters{
		Search: r.URL.Query().Get("search"),
		Status: domain.DonationStatus(r.URL.Query().Get("status")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filters.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filters.Offset = offset
		}
	}

	pending, err := h.service.ListPendingDonations(r.Context(), charityID, filters)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if pending == nil {
		pending = []domain.PendingDonation{}
	}
	h.writeJSON(w, http.StatusOK, pending)
}
