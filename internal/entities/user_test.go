package entities

import "testing"

func TestSplitQuotaFirst(t *testing.T) {
	tests := []struct {
		name            string
		creditsLeft     float64
		cost            float64
		wantFromQuota   float64
		wantFromBalance float64
	}{
		{"quota absorbs all", 10, 4, 4, 0},
		{"exact quota", 4, 4, 4, 0},
		{"spill into balance", 5, 8, 5, 3},
		{"empty quota", 0, 8, 0, 8},
		{"negative quota treated as empty", -2, 8, 0, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fromQuota, fromBalance := SplitQuotaFirst(tt.creditsLeft, tt.cost)
			if fromQuota != tt.wantFromQuota || fromBalance != tt.wantFromBalance {
				t.Errorf("SplitQuotaFirst(%v, %v) = (%v, %v), want (%v, %v)",
					tt.creditsLeft, tt.cost, fromQuota, fromBalance,
					tt.wantFromQuota, tt.wantFromBalance)
			}
		})
	}
}

func TestUSNumber(t *testing.T) {
	if !(&User{PhoneNumber: "+15551234567"}).USNumber() {
		t.Error("+1 number should be US")
	}
	if (&User{PhoneNumber: "+358401234567"}).USNumber() {
		t.Error("+358 number should not be US")
	}
}
