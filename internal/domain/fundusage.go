package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsageCategory enumerates the reporting categories for fund-usage entries.
type UsageCategory string

const (
	UsageSupplies   UsageCategory = "supplies"
	UsageStaffing   UsageCategory = "staffing"
	UsageTransport  UsageCategory = "transport"
	UsageOperations UsageCategory = "operations"
	UsageOther      UsageCategory = "other"
)

// Valid reports whether the category is one of the known values.
func (c UsageCategory) Valid() bool {
	switch c {
	case UsageSupplies, UsageStaffing, UsageTransport, UsageOperations, UsageOther:
		return true
	}
	return false
}

// FundUsageEntry is one expenditure logged by a charity against a campaign for
// transparency reporting. The log is append-only: corrections are new entries
// with a negative amount referencing the original via Adjusts, never edits.
type FundUsageEntry struct {
	ID                  uuid.UUID     `json:"id"`
	CampaignID          uuid.UUID     `json:"campaign_id"`
	Category            UsageCategory `json:"category"`
	Amount              int64         `json:"amount"` // in cents; negative only for adjustments
	Description         string        `json:"description"`
	SpentAt             time.Time     `json:"spent_at"`
	AttachmentReference *string       `json:"attachment_reference,omitempty"`
	Adjusts             *uuid.UUID    `json:"adjusts,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

// RecordFundUsageRequest is the DTO for appending a fund-usage entry.
type RecordFundUsageRequest struct {
	Category            string     `json:"category"`
	Amount              int64      `json:"amount"` // in cents
	Description         string     `json:"description"`
	SpentAt             time.Time  `json:"spent_at"`
	AttachmentReference *string    `json:"attachment_reference,omitempty"`
	Adjusts             *uuid.UUID `json:"adjusts,omitempty"`
}

// RecordFundUsageResult is the insert outcome. OverLogged is a reporting-level
// warning, not an error: charities may draw on funding sources outside the
// campaign, so logged usage exceeding the raised amount is surfaced, not
// rejected.
type RecordFundUsageResult struct {
	Entry        FundUsageEntry `json:"entry"`
	OverLogged   bool           `json:"over_logged"`
	OverLoggedBy int64          `json:"over_logged_by,omitempty"` // in cents
}

// CategoryTotal is one row of the grouped transparency report.
type CategoryTotal struct {
	Category UsageCategory `json:"category"`
	Total    int64         `json:"total"` // in cents
	Entries  int           `json:"entries"`
}

// FundUsageReport is the per-campaign transparency report.
type FundUsageReport struct {
	CampaignID   uuid.UUID       `json:"campaign_id"`
	RaisedAmount int64           `json:"raised_amount"`
	TotalLogged  int64           `json:"total_logged"`
	OverLogged   bool            `json:"over_logged"`
	OverLoggedBy int64           `json:"over_logged_by,omitempty"`
	ByCategory   []CategoryTotal `json:"by_category"`
}
