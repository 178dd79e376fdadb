package analytics

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/zombor/receipt-ledger/internal/receipt"
)

// PreviewSize is how many records an empty search returns
const PreviewSize = 3

// Search returns the records whose shop name, total or issue date contains
// query, ignoring case. The total is matched in plain decimal form ("250", not
// "250.00") and the date as the locale renders it. An empty query returns the
// first PreviewSize records. Input order is kept.
func Search(records []*receipt.Record, query string, l Locale) []*receipt.Record {
	query = strings.TrimSpace(query)
	if query == "" {
		n := min(len(records), PreviewSize)
		return append([]*receipt.Record{}, records[:n]...)
	}

	fold := cases.Fold()
	q := fold.String(query)

	out := []*receipt.Record{}
	for _, r := range records {
		if strings.Contains(fold.String(r.ShopName), q) ||
			strings.Contains(r.Total.String(), q) ||
			strings.Contains(l.FormatDate(r.IssueDate), q) {
			out = append(out, r)
		}
	}
	return out
}
