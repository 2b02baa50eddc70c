package domain

import (
	"time"

	"github.com/google/uuid"
)

// DonationDecisionEvent is the message payload published to RabbitMQ after a
// reviewer decision so the notification dispatcher can inform the donor.
// Publishing is fire-and-forget; a publish failure never rolls back the ledger.
type DonationDecisionEvent struct {
	DonationID      uuid.UUID  `json:"donation_id"`
	DonorID         uuid.UUID  `json:"donor_id"`
	CharityID       uuid.UUID  `json:"charity_id"`
	CampaignID      *uuid.UUID `json:"campaign_id,omitempty"`
	Amount          int64      `json:"amount"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	DecidedAt       time.Time  `json:"decided_at"`
}
