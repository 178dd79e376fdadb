package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/zombor/receipt-ledger/internal/receipt"
)

// Locale selects labels and date rendering for derived views
type Locale string

const (
	LocaleThai    Locale = "th"
	LocaleEnglish Locale = "en"
)

// buddhistEraOffset converts a Gregorian year to the Thai solar calendar
const buddhistEraOffset = 543

var monthLabels = map[Locale][12]string{
	LocaleThai:    {"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.", "ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค."},
	LocaleEnglish: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// ParseLocale accepts "th" or "en", case-insensitively
func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := monthLabels[l]; !ok {
		return "", fmt.Errorf("unknown locale %q", s)
	}
	return l, nil
}

func (l Locale) thai() bool {
	return l != LocaleEnglish
}

// MonthLabel returns the short month name
func (l Locale) MonthLabel(m time.Month) string {
	labels, ok := monthLabels[l]
	if !ok {
		labels = monthLabels[LocaleThai]
	}
	return labels[m-1]
}

// FormatDate renders day/month/year without padding. The Thai locale uses
// the Buddhist era year.
func (l Locale) FormatDate(t time.Time) string {
	year := t.Year()
	if l.thai() {
		year += buddhistEraOffset
	}
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), year)
}

// CategoryLabel returns the display label for an aggregation category key
func (l Locale) CategoryLabel(key string) string {
	switch key {
	case NoCategory:
		return NoCategory
	case Uncategorized:
		if l.thai() {
			return "ไม่ระบุ"
		}
		return "Uncategorized"
	}
	return receipt.Category(key).Label(l.thai())
}
