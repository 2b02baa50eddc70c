package store

import "testing"

func TestPendingSearchPattern(t *testing.T) {
	tests := []struct {
		name        string
		search      string
		wantPattern string
		wantOK      bool
	}{
		{
			name:        "blank search disables the clause",
			search:      "   ",
			wantPattern: "",
			wantOK:      false,
		},
		{
			name:        "plain term is wrapped",
			search:      "Maria",
			wantPattern: "%Maria%",
			wantOK:      true,
		},
		{
			name:        "surrounding whitespace is trimmed",
			search:      "  Maria Cruz ",
			wantPattern: "%Maria Cruz%",
			wantOK:      true,
		},
		{
			name:        "percent is escaped",
			search:      "100%",
			wantPattern: `%100\%%`,
			wantOK:      true,
		},
		{
			name:        "underscore is escaped",
			search:      "donor_7",
			wantPattern: `%donor\_7%`,
			wantOK:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPattern, gotOK := pendingSearchPattern(tt.search)
			if gotOK != tt.wantOK {
				t.Fatalf("expected ok=%t, got %t", tt.wantOK, gotOK)
			}
			if gotPattern != tt.wantPattern {
				t.Fatalf("expected pattern=%q, got %q", tt.wantPattern, gotPattern)
			}
		})
	}
}

func TestOverLogged(t *testing.T) {
	tests := []struct {
		name       string
		logged     int64
		raised     int64
		wantFlag   bool
		wantAmount int64
	}{
		{name: "under raised", logged: 50000, raised: 100000, wantFlag: false, wantAmount: 0},
		{name: "exactly raised", logged: 100000, raised: 100000, wantFlag: false, wantAmount: 0},
		{name: "over raised", logged: 120000, raised: 100000, wantFlag: true, wantAmount: 20000},
		{name: "nothing raised", logged: 1, raised: 0, wantFlag: true, wantAmount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFlag, gotAmount := overLogged(tt.logged, tt.raised)
			if gotFlag != tt.wantFlag {
				t.Fatalf("expected flag=%t, got %t", tt.wantFlag, gotFlag)
			}
			if gotAmount != tt.wantAmount {
				t.Fatalf("expected overage=%d, got %d", tt.wantAmount, gotAmount)
			}
		})
	}
}
