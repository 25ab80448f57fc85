package payments

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders minor-unit amounts and timestamps for display.
type Formatter struct {
	symbol   string
	printer  *message.Printer
	zero     string
	location *time.Location
}

// NewFormatter builds a formatter for a currency symbol and BCP 47 locale.
// An unparsable locale falls back to English; a nil location means time.Local.
func NewFormatter(symbol, locale string, loc *time.Location) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	if loc == nil {
		loc = time.Local
	}
	p := message.NewPrinter(tag)
	return &Formatter{
		symbol:   symbol,
		printer:  p,
		zero:     p.Sprintf("%v", number.Decimal(0)),
		location: loc,
	}
}

// Amount formats minor units as a grouped major amount with two decimals,
// e.g. 123456 -> "₹1,234.56". Negative amounts get a leading minus.
// Digits, grouping and the decimal separator follow the locale.
func (f *Formatter) Amount(minor int64) string {
	sign := ""
	abs := uint64(minor)
	if minor < 0 {
		sign = "-"
		// Two's complement negation is exact for math.MinInt64 too.
		abs = -abs
	}
	major := abs / 100
	frac := abs % 100

	// The fraction is rendered as a localized "0.dd" with the leading zero
	// cut off, which keeps the locale's separator and digits.
	fraction := f.printer.Sprintf("%v", number.Decimal(float64(frac)/100, number.Scale(2)))

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(f.symbol)
	b.WriteString(f.printer.Sprintf("%v", number.Decimal(major)))
	b.WriteString(strings.TrimPrefix(fraction, f.zero))
	return b.String()
}

// Signed formats an amount with an explicit "+" for non-negative values.
func (f *Formatter) Signed(minor int64) string {
	if minor < 0 {
		return f.Amount(minor)
	}
	return "+" + f.Amount(minor)
}

// Date renders the calendar date, e.g. "Aug 27, 2025".
func (f *Formatter) Date(t time.Time) string {
	return t.In(f.location).Format("Jan 2, 2006")
}

// ShortDate renders the numeric date, e.g. "8/27/2025".
func (f *Formatter) ShortDate(t time.Time) string {
	return t.In(f.location).Format("1/2/2006")
}

// Time renders hours and minutes, e.g. "03:04 PM".
func (f *Formatter) Time(t time.Time) string {
	return t.In(f.location).Format("03:04 PM")
}
