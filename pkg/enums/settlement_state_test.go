package enums

import "testing"

func TestSettlementStateRankIsMonotonic(t *testing.T) {
	if !(SettlementStateNone.Rank() < SettlementStateAdvancePaid.Rank()) {
		t.Fatal("advance_paid must outrank none")
	}
	if !(SettlementStateAdvancePaid.Rank() < SettlementStateFullyPaid.Rank()) {
		t.Fatal("fully_paid must outrank advance_paid")
	}
	if SettlementState("bogus").Rank() != 0 {
		t.Fatal("unknown states rank as none")
	}
}

func TestParseSettlementState(t *testing.T) {
	state, err := ParseSettlementState("advance_paid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != SettlementStateAdvancePaid {
		t.Fatalf("got %s", state)
	}
	if _, err := ParseSettlementState("ADVANCE_PAID"); err == nil {
		t.Fatal("parse must match the stored lowercase values exactly")
	}
}

func TestParsePaymentTypeAndStatus(t *testing.T) {
	for _, raw := range []string{"advance", "balance", "full"} {
		if _, err := ParsePaymentType(raw); err != nil {
			t.Fatalf("payment type %q should parse: %v", raw, err)
		}
	}
	if _, err := ParsePaymentType("deposit"); err == nil {
		t.Fatal("unknown payment type must not parse")
	}

	if _, err := ParsePaymentStatus("paid"); err != nil {
		t.Fatalf("paid should parse: %v", err)
	}
	if PaymentStatus("refunded").IsValid() {
		t.Fatal("refunded is not a tracked status")
	}
}
