/**
 * @description
 * This file defines the core domain models for the donation-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit (cents), which avoids floating-point inaccuracies with financial data.
 * - Donation status is a closed type; the only code paths that change it are the
 *   repository's Confirm/Reject operations, never direct field assignment.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// DonationStatus enumerates the lifecycle states of a donation.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationRejected  DonationStatus = "rejected"
)

// Valid reports whether the status is one of the known states.
func (s DonationStatus) Valid() bool {
	switch s {
	case DonationPending, DonationCompleted, DonationRejected:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s DonationStatus) Terminal() bool {
	return s == DonationCompleted || s == DonationRejected
}

// CanTransitionTo reports whether a transition from s to next is legal.
// The only legal exits are pending -> completed and pending -> rejected.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	if s != DonationPending {
		return false
	}
	return next == DonationCompleted || next == DonationRejected
}

// RecurringInterval enumerates the supported recurrence cadences.
type RecurringInterval string

const (
	IntervalWeekly    RecurringInterval = "weekly"
	IntervalMonthly   RecurringInterval = "monthly"
	IntervalQuarterly RecurringInterval = "quarterly"
	IntervalAnnually  RecurringInterval = "annually"
)

// Valid reports whether the interval is one of the supported cadences.
func (i RecurringInterval) Valid() bool {
	switch i {
	case IntervalWeekly, IntervalMonthly, IntervalQuarterly, IntervalAnnually:
		return true
	}
	return false
}

// Donation represents a single pledge from a donor to a charity, optionally
// earmarked for a campaign. This struct maps directly to the `donations` table.
//
// DonorID is always retained, even for anonymous donations; anonymity is a
// display concern handled by projections (see PendingDonation), never by
// nulling the underlying reference.
type Donation struct {
	ID                uuid.UUID          `json:"id"`
	DonorID           uuid.UUID          `json:"donor_id"`
	CharityID         uuid.UUID          `json:"charity_id"`
	CampaignID        *uuid.UUID         `json:"campaign_id,omitempty"`
	Amount            int64              `json:"amount"` // in cents
	Currency          string             `json:"currency"`
	Status            DonationStatus     `json:"status"`
	IsAnonymous       bool               `json:"is_anonymous"`
	IsRecurring       bool               `json:"is_recurring"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty"`
	ProofReference    *string            `json:"proof_reference,omitempty"`
	RejectionReason   *string            `json:"rejection_reason,omitempty"`
	DecidedBy         *uuid.UUID         `json:"decided_by,omitempty"`
	SubmittedAt       time.Time          `json:"submitted_at"`
	DecidedAt         *time.Time         `json:"decided_at,omitempty"`
}

// CreateDonationRequest is the DTO for incoming donation submissions.
type CreateDonationRequest struct {
	CharityID         uuid.UUID  `json:"charity_id"`
	CampaignID        *uuid.UUID `json:"campaign_id,omitempty"`
	Amount            int64      `json:"amount"` // in cents
	Currency          string     `json:"currency"`
	IsAnonymous       bool       `json:"is_anonymous"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurringInterval *string    `json:"recurring_interval,omitempty"`
}

// RejectDonationRequest is the DTO for a reviewer rejection. Reason is mandatory.
type RejectDonationRequest struct {
	Reason string `json:"reason"`
}

// PendingDonation is the review-queue projection of a pending donation. The
// donor's display name is masked when the donation is anonymous; the underlying
// donor id is intentionally absent from this projection.
type PendingDonation struct {
	ID             uuid.UUID  `json:"id"`
	DonorName      string     `json:"donor_name"`
	CharityID      uuid.UUID  `json:"charity_id"`
	CampaignID     *uuid.UUID `json:"campaign_id,omitempty"`
	CampaignTitle  *string    `json:"campaign_title,omitempty"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	ProofReference *string    `json:"proof_reference,omitempty"`
	ProofURL       string     `json:"proof_url,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
}

// PendingDonationFilters controls the review-queue listing. Search matches the
// donor display name and the donation id prefix. Status narrows the queue to a
// single donation status; empty means pending.
type PendingDonationFilters struct {
	Search string
	Status DonationStatus
	Limit  int
	Offset int
}

// AnonymousDonorName is the display name projected for anonymous donations.
const AnonymousDonorName = "Anonymous"
