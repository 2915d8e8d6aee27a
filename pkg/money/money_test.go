package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatterGroupsByLocale(t *testing.T) {
	cases := []struct {
		locale, currency, amount, want string
	}{
		{locale: "en-US", currency: "USD", amount: "3850", want: "USD 3,850.00"},
		{locale: "en-US", currency: "usd", amount: "0", want: "USD 0.00"},
		{locale: "de-DE", currency: "EUR", amount: "3850", want: "EUR 3.850,00"},
		{locale: "en-GB", currency: "GBP", amount: "1234567.5", want: "GBP 1,234,567.50"},
	}
	for _, tc := range cases {
		f, err := NewFormatter(tc.locale, tc.currency)
		if err != nil {
			t.Fatalf("NewFormatter(%q, %q): %v", tc.locale, tc.currency, err)
		}
		if got := f.Format(decimal.RequireFromString(tc.amount)); got != tc.want {
			t.Fatalf("%s/%s: expected %q, got %q", tc.locale, tc.currency, tc.want, got)
		}
	}
}

func TestFormatterRoundsToMinorUnit(t *testing.T) {
	f := MustFormatter("en-US", "USD")
	if got := f.FormatNumber(decimal.RequireFromString("99.999")); got != "100.00" {
		t.Fatalf("expected 100.00, got %q", got)
	}
	if got := f.FormatNumber(decimal.RequireFromString("3150.004")); got != "3,150.00" {
		t.Fatalf("expected 3,150.00, got %q", got)
	}
}

func TestFormatterKeepsEveryDigitOfLargeAmounts(t *testing.T) {
	cases := []struct {
		locale, currency, amount, want string
	}{
		{locale: "en-US", currency: "USD", amount: "12345678901234567.89", want: "USD 12,345,678,901,234,567.89"},
		{locale: "en-US", currency: "USD", amount: "123456789012345678901234.5", want: "USD 123,456,789,012,345,678,901,234.50"},
		{locale: "de-DE", currency: "EUR", amount: "123456789012345678901234.5", want: "EUR 123.456.789.012.345.678.901.234,50"},
		{locale: "en-US", currency: "USD", amount: "-1234.05", want: "USD -1,234.05"},
	}
	for _, tc := range cases {
		f := MustFormatter(tc.locale, tc.currency)
		if got := f.Format(decimal.RequireFromString(tc.amount)); got != tc.want {
			t.Fatalf("%s %s: expected %q, got %q", tc.locale, tc.amount, tc.want, got)
		}
	}
}

func TestNewFormatterRejectsUnknownInput(t *testing.T) {
	if _, err := NewFormatter("en-US", "BTC"); err == nil {
		t.Fatal("expected unsupported currency to be rejected")
	}
	if _, err := NewFormatter("not a locale!", "USD"); err == nil {
		t.Fatal("expected malformed locale to be rejected")
	}
}

func TestFormatterAccessors(t *testing.T) {
	f := MustFormatter("de-DE", "EUR")
	if f.Currency() != "EUR" {
		t.Fatalf("unexpected currency %s", f.Currency())
	}
	if f.Locale() != "de-DE" {
		t.Fatalf("unexpected locale %s", f.Locale())
	}
}
