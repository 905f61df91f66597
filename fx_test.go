package portfolio

import (
	"errors"
	"testing"
	"time"
)

func day(d int) time.Time { return time.Date(2025, time.March, d, 12, 0, 0, 0, time.UTC) }

func TestRateBookIdentity(t *testing.T) {
	b := NewRateBook("EUR", nil)
	r, err := b.Rate("USD", "USD")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("1")) {
		t.Errorf("got %s, want 1", r)
	}
}

func TestRateBookDirectBeatsInverse(t *testing.T) {
	b := NewRateBook("EUR", []FxRate{
		RateAt("USD", "EUR", 0.9, day(1)),
		RateAt("EUR", "USD", 1.2, day(1)),
	})
	r, err := b.Rate("USD", "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("0.9")) {
		t.Errorf("direct rate: got %s, want 0.9", r)
	}
}

func TestRateBookLatestWins(t *testing.T) {
	b := NewRateBook("EUR", []FxRate{
		RateAt("USD", "EUR", 0.8, day(1)),
		RateAt("USD", "EUR", 0.9, day(5)),
		RateAt("USD", "EUR", 0.85, day(3)),
	})
	r, err := b.Rate("USD", "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("0.9")) {
		t.Errorf("got %s, want newest rate 0.9", r)
	}
}

func TestRateBookInverse(t *testing.T) {
	b := NewRateBook("EUR", []FxRate{RateAt("EUR", "USD", 1.25, day(1))})
	r, err := b.Rate("USD", "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("0.8")) {
		t.Errorf("got %s, want 0.8", r)
	}
}

func TestRateBookInverseZeroRate(t *testing.T) {
	b := NewRateBook("EUR", []FxRate{RateAt("EUR", "USD", 0, day(1))})
	_, err := b.Rate("USD", "EUR")
	var rnf *RateNotFoundError
	if !errors.As(err, &rnf) {
		t.Fatalf("got %v, want RateNotFoundError", err)
	}
}

func TestRateBookTriangulation(t *testing.T) {
	// USD->EUR and EUR->GBP exist; USD->GBP pivots through EUR.
	b := NewRateBook("EUR", []FxRate{
		RateAt("USD", "EUR", 0.9, day(1)),
		RateAt("EUR", "GBP", 0.8, day(1)),
	})
	r, err := b.Rate("USD", "GBP")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("0.72")) {
		t.Errorf("got %s, want 0.72", r)
	}
}

func TestRateBookTriangulationUsesInverseLegs(t *testing.T) {
	b := NewRateBook("EUR", []FxRate{
		RateAt("EUR", "USD", 1.25, day(1)), // USD->EUR = 0.8 by inverse
		RateAt("EUR", "GBP", 0.5, day(1)),
	})
	r, err := b.Rate("USD", "GBP")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("0.4")) {
		t.Errorf("got %s, want 0.4", r)
	}
}

func TestRateBookNoPathThroughNonReporting(t *testing.T) {
	// USD->CHF and CHF->GBP exist but the pivot is EUR, so USD->GBP fails.
	b := NewRateBook("EUR", []FxRate{
		RateAt("USD", "CHF", 0.95, day(1)),
		RateAt("CHF", "GBP", 0.85, day(1)),
	})
	_, err := b.Rate("USD", "GBP")
	var rnf *RateNotFoundError
	if !errors.As(err, &rnf) {
		t.Fatalf("got %v, want RateNotFoundError", err)
	}
	if rnf.Base != "USD" || rnf.Quote != "GBP" {
		t.Errorf("error pair: got %s/%s", rnf.Base, rnf.Quote)
	}
}

func TestRateBookIgnoresCase(t *testing.T) {
	b := NewRateBook("eur", []FxRate{RateAt("usd", "eur", 0.9, day(1))})
	r, err := b.Rate("USD", "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("0.9")) {
		t.Errorf("got %s, want 0.9", r)
	}
	// Mixed-case observations collapse onto the same pair.
	b.Record(RateAt("Usd", "Eur", 0.95, day(2)))
	r, err = b.Rate("usd", "eur")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(dec("0.95")) {
		t.Errorf("got %s, want 0.95", r)
	}
}

func TestConvertSameCurrencyNeedsNoRate(t *testing.T) {
	b := NewRateBook("EUR", nil)
	v, err := b.Convert(M(42.5, "USD"), "USD")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != M(42.5, "USD").String() {
		t.Errorf("got %s", v)
	}
}

func TestConvertOrZeroDegrades(t *testing.T) {
	b := NewRateBook("EUR", nil)
	v := b.ConvertOrZero(M(100, "JPY"), "EUR")
	if !v.Decimal().IsZero() || v.Currency() != "EUR" {
		t.Errorf("got %s, want zero EUR", v)
	}
}

func TestRecordReplacesOnlyWhenNewer(t *testing.T) {
	b := NewRateBook("EUR", []FxRate{RateAt("USD", "EUR", 0.9, day(5))})
	b.Record(RateAt("USD", "EUR", 0.5, day(2)))
	r, _ := b.Rate("USD", "EUR")
	if !r.Equal(dec("0.9")) {
		t.Errorf("stale record replaced newer rate: got %s", r)
	}
	b.Record(RateAt("USD", "EUR", 0.95, day(9)))
	r, _ = b.Rate("USD", "EUR")
	if !r.Equal(dec("0.95")) {
		t.Errorf("newer record ignored: got %s", r)
	}
}
