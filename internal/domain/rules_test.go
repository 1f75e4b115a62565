package domain

import (
	"testing"
	"time"
)

func TestResolvePrice_FirstMatchWins(t *testing.T) {
	paris := DepartmentLocation("75")
	saturday := time.Date(2024, 3, 16, 20, 0, 0, 0, paris)
	stock := &Stock{BeginningDatetime: &saturday}

	rules := []PriceRule{
		{Kind: PriceRuleWeekday, Price: 6},
		{Kind: PriceRuleWeekend, Price: 8},
		{Kind: PriceRuleDefault, Price: 10},
	}

	price, err := ResolvePrice(rules, stock, paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 8 {
		t.Errorf("expected weekend price 8, got %v", price)
	}

	// Same rules, default first: default always wins.
	price, err = ResolvePrice([]PriceRule{rules[2], rules[1]}, stock, paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 10 {
		t.Errorf("expected default price 10, got %v", price)
	}
}

func TestResolvePrice_NoMatchIsBusinessError(t *testing.T) {
	monday := time.Date(2024, 3, 18, 20, 0, 0, 0, time.UTC)
	stock := &Stock{BeginningDatetime: &monday}

	for name, rules := range map[string][]PriceRule{
		"empty":    nil,
		"no match": {{Kind: PriceRuleWeekend, Price: 8}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ResolvePrice(rules, stock, time.UTC)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !IsBusinessRule(err) {
				t.Errorf("expected business rule error, got %T", err)
			}
		})
	}
}

func TestPriceRule_WeekendUsesVenueTimezone(t *testing.T) {
	// Friday 23:30 in Tahiti is Saturday 09:30 UTC.
	tahiti := DepartmentLocation("987")
	start := time.Date(2024, 3, 15, 23, 30, 0, 0, tahiti).UTC()
	stock := &Stock{BeginningDatetime: &start}

	if (PriceRule{Kind: PriceRuleWeekend}).Matches(stock, tahiti) {
		t.Error("expected friday evening in Tahiti not to match weekend")
	}
	if !(PriceRule{Kind: PriceRuleWeekend}).Matches(stock, time.UTC) {
		t.Error("expected saturday UTC to match weekend")
	}
}

func TestStatusFromApplicationState(t *testing.T) {
	tests := map[ApplicationState]BankInformationStatus{
		ApplicationRefused:             BankInformationRejected,
		ApplicationWithoutContinuation: BankInformationRejected,
		ApplicationClosed:              BankInformationAccepted,
		ApplicationReceived:            BankInformationDraft,
		ApplicationInitiated:           BankInformationDraft,
	}

	for state, expected := range tests {
		got, err := StatusFromApplicationState(state)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", state, err)
		}
		if got != expected {
			t.Errorf("StatusFromApplicationState(%s) = %s, want %s", state, got, expected)
		}
	}

	if _, err := StatusFromApplicationState("archived"); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestFormatIBANOrBIC(t *testing.T) {
	got := FormatIBANOrBIC(" fr76 3000 6000 0112 3456 7890 189 ")
	if got == nil || *got != "FR7630006000011234567890189" {
		t.Errorf("unexpected formatted iban: %v", got)
	}
	if FormatIBANOrBIC("   ") != nil {
		t.Error("expected nil for blank value")
	}
}

func TestDepartmentTimezone(t *testing.T) {
	tests := map[string]string{
		"75":  "Europe/Paris",
		"973": "America/Cayenne",
		"974": "Indian/Reunion",
		"":    "Europe/Paris",
	}
	for code, expected := range tests {
		if got := DepartmentTimezone(code); got != expected {
			t.Errorf("DepartmentTimezone(%q) = %s, want %s", code, got, expected)
		}
	}
}

func TestLocalToUTC(t *testing.T) {
	wall := time.Date(2019, 12, 3, 20, 0, 0, 0, time.UTC)

	got := LocalToUTC(wall, DepartmentLocation("93"))
	expected := time.Date(2019, 12, 3, 19, 0, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("LocalToUTC() = %v, want %v", got, expected)
	}

	got = LocalToUTC(wall, DepartmentLocation("974"))
	expected = time.Date(2019, 12, 3, 16, 0, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("LocalToUTC() Reunion = %v, want %v", got, expected)
	}
}

func TestScope_Key(t *testing.T) {
	if got := VenueProviderScope(12).Key(); got != "venue_provider:12" {
		t.Errorf("unexpected key %q", got)
	}
	if got := ApplicationScope(42).Key(); got != "application:42" {
		t.Errorf("unexpected key %q", got)
	}
	if got := ProcedureScope().Key(); got != "procedure" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestSyncState_Resolve(t *testing.T) {
	state := NewSyncState()
	state.Resolve(KindProduct, "movie-1", 10)
	state.Resolve(KindOffer, "movie-1%123-VO", 20)
	state.Resolve(KindOffer, "ignored", 0)

	if id, ok := state.ResolvedID(KindProduct, "movie-1"); !ok || id != 10 {
		t.Errorf("unexpected product id %d (%v)", id, ok)
	}
	if _, ok := state.ResolvedID(KindOffer, "ignored"); ok {
		t.Error("zero ids must not be recorded")
	}
	if id, ok := state.LastResolved(KindOffer); !ok || id != 20 {
		t.Errorf("unexpected last offer id %d", id)
	}
}
