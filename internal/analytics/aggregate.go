package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ledger/internal/receipt"
)

const (
	// NoCategory is the top category of a view with no positive spending
	NoCategory = "-"
	// Uncategorized groups records saved without a category
	Uncategorized = "uncategorized"

	// MonthWindow is the number of monthly buckets, ending at the current month
	MonthWindow = 6
	// TopReceiptsSize caps the largest-receipts ranking
	TopReceiptsSize = 3
)

// MonthBucket is the spending of one calendar month
type MonthBucket struct {
	Year   int             `json:"year"`
	Month  time.Month      `json:"month"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// View is the aggregation of one record set snapshot
type View struct {
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	Count            int               `json:"count"`
	Average          decimal.Decimal   `json:"average"`
	TopCategory      string            `json:"top_category"`
	TopCategoryLabel string            `json:"top_category_label"`
	TopCategoryTotal decimal.Decimal   `json:"top_category_total"`
	Monthly          []MonthBucket     `json:"monthly"`
	TopReceipts      []*receipt.Record `json:"top_receipts"`
}

type options struct {
	locale        Locale
	legacyMonthly bool
}

// Option configures Aggregate
type Option func(*options)

// WithLocale sets the month and category labels
func WithLocale(l Locale) Option {
	return func(o *options) {
		o.locale = l
	}
}

// WithLegacyMonthMatching buckets records by month name alone, so the same
// month of an earlier year lands in the current window
func WithLegacyMonthMatching() Option {
	return func(o *options) {
		o.legacyMonthly = true
	}
}

// Aggregate computes the view of records as of now. It reads records without
// modifying them and returns the same view for the same input.
func Aggregate(records []*receipt.Record, now time.Time, opts ...Option) View {
	o := options{locale: LocaleThai}
	for _, opt := range opts {
		opt(&o)
	}

	v := View{
		TotalAmount: decimal.Zero,
		Count:       len(records),
		Average:     decimal.Zero,
		TopCategory: NoCategory,
		Monthly:     monthWindow(now, o.locale),
		TopReceipts: topReceipts(records),
	}

	var order []string
	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		v.TotalAmount = v.TotalAmount.Add(r.Total)

		key := string(r.Category)
		if key == "" {
			key = Uncategorized
		}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
		}
		sums[key] = sums[key].Add(r.Total)

		date := r.IssueDate.In(now.Location())
		for i := range v.Monthly {
			b := &v.Monthly[i]
			if b.Month == date.Month() && (o.legacyMonthly || b.Year == date.Year()) {
				b.Amount = b.Amount.Add(r.Total)
				break
			}
		}
	}

	if v.Count > 0 {
		v.Average = v.TotalAmount.Div(decimal.NewFromInt(int64(v.Count)))
	}

	v.TopCategoryTotal = decimal.Zero
	for _, key := range order {
		if sums[key].GreaterThan(v.TopCategoryTotal) {
			v.TopCategory = key
			v.TopCategoryTotal = sums[key]
		}
	}
	v.TopCategoryLabel = o.locale.CategoryLabel(v.TopCategory)
	return v
}

// monthWindow returns MonthWindow empty buckets, oldest first
func monthWindow(now time.Time, l Locale) []MonthBucket {
	buckets := make([]MonthBucket, MonthWindow)
	for i := range buckets {
		t := time.Date(now.Year(), now.Month()-time.Month(MonthWindow-1-i), 1, 0, 0, 0, 0, now.Location())
		buckets[i] = MonthBucket{
			Year:   t.Year(),
			Month:  t.Month(),
			Label:  l.MonthLabel(t.Month()),
			Amount: decimal.Zero,
		}
	}
	return buckets
}

// topReceipts sorts a copy by total, largest first, keeping input order for ties
func topReceipts(records []*receipt.Record) []*receipt.Record {
	sorted := append([]*receipt.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total.GreaterThan(sorted[j].Total)
	})
	if len(sorted) > TopReceiptsSize {
		sorted = sorted[:TopReceiptsSize]
	}
	if sorted == nil {
		sorted = []*receipt.Record{}
	}
	return sorted
}
