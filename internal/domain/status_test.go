package domain

import "testing"

func TestDonationStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from DonationStatus
		to   DonationStatus
		want bool
	}{
		{"pending to completed", DonationPending, DonationCompleted, true},
		{"pending to rejected", DonationPending, DonationRejected, true},
		{"completed is terminal", DonationCompleted, DonationRejected, false},
		{"rejected is terminal", DonationRejected, DonationCompleted, false},
		{"no self transition", DonationPending, DonationPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("expected %t for %s -> %s, got %t", tt.want, tt.from, tt.to, got)
			}
		})
	}
}

func TestDonationStatusTerminal(t *testing.T) {
	if DonationPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
	if !DonationCompleted.Terminal() || !DonationRejected.Terminal() {
		t.Fatal("completed and rejected must be terminal")
	}
}

func TestCampaignStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from CampaignStatus
		to   CampaignStatus
		want bool
	}{
		{"draft to published", CampaignDraft, CampaignPublished, true},
		{"published to closed", CampaignPublished, CampaignClosed, true},
		{"closed to archived", CampaignClosed, CampaignArchived, true},
		{"no skip from draft to closed", CampaignDraft, CampaignClosed, false},
		{"no reopen after close", CampaignClosed, CampaignPublished, false},
		{"archived is final", CampaignArchived, CampaignPublished, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("expected %t for %s -> %s, got %t", tt.want, tt.from, tt.to, got)
			}
		})
	}
}

func TestCampaignAcceptsDonations(t *testing.T) {
	for _, status := range []CampaignStatus{CampaignDraft, CampaignClosed, CampaignArchived} {
		if status.AcceptsDonations() {
			t.Fatalf("%s must not accept donations", status)
		}
	}
	if !CampaignPublished.AcceptsDonations() {
		t.Fatal("published campaigns must accept donations")
	}
}

func TestRecurringIntervalValid(t *testing.T) {
	for _, interval := range []RecurringInterval{IntervalWeekly, IntervalMonthly, IntervalQuarterly, IntervalAnnually} {
		if !interval.Valid() {
			t.Fatalf("expected %q to be valid", interval)
		}
	}
	if RecurringInterval("fortnightly").Valid() {
		t.Fatal("expected unknown interval to be invalid")
	}
}

func TestUsageCategoryValid(t *testing.T) {
	for _, category := range []UsageCategory{UsageSupplies, UsageStaffing, UsageTransport, UsageOperations, UsageOther} {
		if !category.Valid() {
			t.Fatalf("expected %q to be valid", category)
		}
	}
	if UsageCategory("marketing").Valid() {
		t.Fatal("expected unknown category to be invalid")
	}
}
