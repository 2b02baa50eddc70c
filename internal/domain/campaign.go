package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus enumerates the lifecycle states of a fundraising campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignPublished CampaignStatus = "published"
	CampaignClosed    CampaignStatus = "closed"
	CampaignArchived  CampaignStatus = "archived"
)

// Valid reports whether the status is one of the known states.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignPublished, CampaignClosed, CampaignArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether a lifecycle transition is legal.
// draft -> published -> closed -> archived; archived is terminal and read-only.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	switch s {
	case CampaignDraft:
		return next == CampaignPublished
	case CampaignPublished:
		return next == CampaignClosed
	case CampaignClosed:
		return next == CampaignArchived
	}
	return false
}

// AcceptsDonations reports whether new donations may reference the campaign.
func (s CampaignStatus) AcceptsDonations() bool {
	return s == CampaignPublished
}

// Campaign represents a fundraising campaign owned by a charity. RaisedAmount
// and DonorCount are derived aggregates: they must always equal the sum/distinct
// count over completed donations for the campaign and are written only by the
// repository's confirm and recompute operations. Version is bumped on every
// aggregate write and backs the optimistic-concurrency check in recompute.
type Campaign struct {
	ID           uuid.UUID      `json:"id"`
	CharityID    uuid.UUID      `json:"charity_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	TargetAmount int64          `json:"target_amount"` // in cents
	RaisedAmount int64          `json:"raised_amount"` // derived, in cents
	DonorCount   int            `json:"donor_count"`   // derived
	Status       CampaignStatus `json:"status"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      *time.Time     `json:"end_date,omitempty"`
	Version      int64          `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateCampaignRequest is the DTO for creating a campaign. Campaigns are
// always created in draft.
type CreateCampaignRequest struct {
	CharityID    uuid.UUID  `json:"charity_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TargetAmount int64      `json:"target_amount"` // in cents
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// CampaignTotals is the recomputed aggregate pair returned by reconciliation.
type CampaignTotals struct {
	RaisedAmount int64 `json:"raised_amount"`
	DonorCount   int   `json:"donor_count"`
}
