// Package money renders decimal amounts for people. Arithmetic stays in
// shopspring/decimal; this package only formats.
package money

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/angelmondragon/rentquote-backend/pkg/enums"
)

// Formatter prints amounts with locale-aware grouping and the currency's
// minor-unit precision, prefixed by the ISO code.
type Formatter struct {
	printer    *message.Printer
	decimalSep string
	groupSep   string
	unit       currency.Unit
	code       enums.Currency
	scale      int
	localeID   string
}

// NewFormatter builds a formatter for a BCP 47 locale and ISO 4217 currency.
func NewFormatter(locale string, code string) (*Formatter, error) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	cur, err := enums.ParseCurrency(code)
	if err != nil {
		return nil, err
	}
	unit, err := currency.ParseISO(cur.String())
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)

	printer := message.NewPrinter(tag)
	return &Formatter{
		printer:    printer,
		decimalSep: separator(printer.Sprintf("%v", number.Decimal(1.5, number.Scale(1)))),
		groupSep:   separator(printer.Sprintf("%v", number.Decimal(1000000))),
		unit:       unit,
		code:       cur,
		scale:      scale,
		localeID:   tag.String(),
	}, nil
}

// MustFormatter is NewFormatter for static configuration known to be valid.
func MustFormatter(locale, code string) *Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

// Currency returns the configured ISO code.
func (f *Formatter) Currency() enums.Currency {
	return f.code
}

// Locale returns the canonical locale identifier.
func (f *Formatter) Locale() string {
	return f.localeID
}

// Format rounds amount to the currency's minor unit and renders it, e.g. "USD 3,850.00".
func (f *Formatter) Format(amount decimal.Decimal) string {
	return f.unit.String() + " " + f.FormatNumber(amount)
}

// FormatNumber renders the amount without the currency code. Digits come from
// the exact decimal string, so amounts beyond float64 precision keep every
// digit.
func (f *Formatter) FormatNumber(amount decimal.Decimal) string {
	fixed := amount.StringFixed(int32(f.scale))
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	out := sign + f.formatWhole(whole)
	if frac == "" {
		return out
	}
	return out + f.decimalSep + f.digits(frac)
}

// formatWhole groups the integer digits. Values that fit an int64 use the
// locale's own grouping; larger ones are grouped in threes.
func (f *Formatter) formatWhole(whole string) string {
	if v, err := strconv.ParseInt(whole, 10, 64); err == nil {
		return f.printer.Sprintf("%v", number.Decimal(v))
	}
	head := len(whole) % 3
	if head == 0 {
		head = 3
	}
	parts := []string{f.digits(whole[:head])}
	for i := head; i < len(whole); i += 3 {
		parts = append(parts, f.digits(whole[i:i+3]))
	}
	return strings.Join(parts, f.groupSep)
}

// digits renders a short run of ASCII digits in the locale's numbering
// system, keeping leading zeros.
func (f *Formatter) digits(run string) string {
	v, err := strconv.ParseInt(run, 10, 64)
	if err != nil {
		return run
	}
	return f.printer.Sprintf("%v", number.Decimal(v, number.MinIntegerDigits(len(run)), number.NoSeparator()))
}

// separator returns the first run of non-digit runes in a formatted sample.
func separator(sample string) string {
	start := strings.IndexFunc(sample, func(r rune) bool { return !unicode.IsDigit(r) })
	if start < 0 {
		return ""
	}
	rest := sample[start:]
	if end := strings.IndexFunc(rest, unicode.IsDigit); end >= 0 {
		return rest[:end]
	}
	return rest
}
