package receipt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fields is a loosely typed bag of receipt values, as produced by extraction or
// decoded from a client request
type Fields map[string]any

// Synonym keys per canonical field, highest priority first
var (
	shopNameKeys    = []string{"shopName", "store", "seller"}
	shopAddressKeys = []string{"shopAddress", "address"}
	shopPhoneKeys   = []string{"shopPhone", "phone"}
	shopTaxIDKeys   = []string{"shopTaxId", "taxId", "sellerTaxId"}
	receiptNoKeys   = []string{"receiptNo", "no"}
	refNoKeys       = []string{"refNo", "reference"}
	totalKeys       = []string{"total", "netTotal", "amount"}
	vatKeys         = []string{"vatAmount", "vat"}
	discountKeys    = []string{"discountTotal", "discount"}
	serviceKeys     = []string{"serviceCharge"}
	shippingKeys    = []string{"shippingFee", "shipping"}
	attachmentKeys  = []string{"attachment", "imageUri"}
	itemQtyKeys     = []string{"qty", "quantity"}
	itemPriceKeys   = []string{"price", "unitPrice"}
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
}

// Normalize maps partial input into a canonical draft. For each field the first
// non-empty synonym wins. Unresolved text fields are empty, a missing item list
// becomes one blank row, and the derived totals are recomputed. Normalizing the
// Fields of a normalized draft yields the same draft.
func Normalize(f Fields) *Draft {
	d := &Draft{
		ID:              f.str("id"),
		ShopName:        f.str(shopNameKeys...),
		ShopBranch:      f.str("shopBranch"),
		ShopAddress:     f.str(shopAddressKeys...),
		ShopPhone:       f.str(shopPhoneKeys...),
		ShopTaxID:       f.str(shopTaxIDKeys...),
		VATRegistered:   f.boolean("isVatRegistered", true),
		CustomerName:    f.str("customerName"),
		CustomerAddress: f.str("customerAddress"),
		CustomerPhone:   f.str("customerPhone"),
		CustomerTaxID:   f.str("customerTaxId"),
		ReceiptNo:       f.str(receiptNoKeys...),
		RefNo:           f.str(refNoKeys...),
		Adjustments: Adjustments{
			DiscountTotal: f.str(discountKeys...),
			ServiceCharge: f.str(serviceKeys...),
			ShippingFee:   f.str(shippingKeys...),
			VATAmount:     f.str(vatKeys...),
		},
		Attachment:  f.str(attachmentKeys...),
		ContentType: f.str("contentType"),
	}
	if raw := f.str("category"); raw != "" {
		d.SetCategory(raw)
	}
	if t, ok := resolveDate(f["date"]); ok {
		d.SetDate(t)
	}
	d.Items = resolveItems(f["items"])

	d.TotalOverride = f.str(totalKeys...)
	d.Recalculate()
	return d
}

// NormalizeRecord prepares a stored record for editing
func NormalizeRecord(r *Record) *Draft {
	return Normalize(RecordFields(r))
}

// Fields renders the draft in canonical form
func (d *Draft) Fields() Fields {
	items := make([]any, len(d.Items))
	for i, it := range d.Items {
		items[i] = map[string]any{
			"name":  it.Name,
			"qty":   it.Quantity,
			"unit":  it.Unit,
			"price": it.UnitPrice,
		}
	}
	f := Fields{
		"id":              d.ID,
		"category":        string(d.Category),
		"shopName":        d.ShopName,
		"shopBranch":      d.ShopBranch,
		"shopAddress":     d.ShopAddress,
		"shopPhone":       d.ShopPhone,
		"shopTaxId":       d.ShopTaxID,
		"isVatRegistered": d.VATRegistered,
		"customerName":    d.CustomerName,
		"customerAddress": d.CustomerAddress,
		"customerPhone":   d.CustomerPhone,
		"customerTaxId":   d.CustomerTaxID,
		"receiptNo":       d.ReceiptNo,
		"refNo":           d.RefNo,
		"items":           items,
		"discountTotal":   d.DiscountTotal,
		"serviceCharge":   d.ServiceCharge,
		"shippingFee":     d.ShippingFee,
		"vatAmount":       d.VATAmount,
		"attachment":      d.Attachment,
		"contentType":     d.ContentType,
	}
	if d.TotalOverride != "" {
		f["total"] = d.TotalOverride
	}
	if d.DateSet {
		f["date"] = d.IssueDate
	}
	return f
}

// RecordFields renders a stored record as normalizer input
func RecordFields(r *Record) Fields {
	items := make([]any, len(r.Items))
	for i, li := range r.Items {
		items[i] = map[string]any{
			"name":  li.Name,
			"qty":   li.Quantity,
			"unit":  li.Unit,
			"price": li.UnitPrice,
		}
	}
	f := Fields{
		"id":              r.ID,
		"category":        string(r.Category),
		"shopName":        r.ShopName,
		"shopBranch":      r.ShopBranch,
		"shopAddress":     r.ShopAddress,
		"shopPhone":       r.ShopPhone,
		"shopTaxId":       r.ShopTaxID,
		"isVatRegistered": r.VATRegistered,
		"customerName":    r.CustomerName,
		"customerAddress": r.CustomerAddress,
		"customerPhone":   r.CustomerPhone,
		"customerTaxId":   r.CustomerTaxID,
		"receiptNo":       r.ReceiptNo,
		"refNo":           r.RefNo,
		"items":           items,
		"discountTotal":   r.DiscountTotal,
		"serviceCharge":   r.ServiceCharge,
		"shippingFee":     r.ShippingFee,
		"vatAmount":       r.VATAmount,
		"total":           r.Total,
		"attachment":      r.Attachment,
		"contentType":     r.ContentType,
	}
	if !r.IssueDate.IsZero() {
		f["date"] = r.IssueDate
	}
	return f
}

// str returns the first non-empty value among keys
func (f Fields) str(keys ...string) string {
	for _, k := range keys {
		if s := stringify(f[k]); s != "" {
			return s
		}
	}
	return ""
}

func (f Fields) boolean(key string, def bool) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// stringify renders scalar values as editable text. Zero numbers render empty,
// matching how a blank numeric field round-trips through the editor.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return stringify(string(t))
	case decimal.Decimal:
		if t.IsZero() {
			return ""
		}
		return t.String()
	case *decimal.Decimal:
		if t == nil {
			return ""
		}
		return stringify(*t)
	case float64:
		if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return decimal.NewFromFloat(t).String()
	case float32:
		return stringify(float64(t))
	case int:
		return stringify(int64(t))
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return ""
	}
}

func resolveItems(v any) []ItemInput {
	var rows []map[string]any
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
	case []map[string]any:
		rows = t
	case []ItemInput:
		items := append([]ItemInput(nil), t...)
		if len(items) == 0 {
			return []ItemInput{{}}
		}
		return items
	}
	if len(rows) == 0 {
		return []ItemInput{{}}
	}

	items := make([]ItemInput, len(rows))
	for i, m := range rows {
		row := Fields(m)
		items[i] = ItemInput{
			Name:      row.str("name"),
			Quantity:  row.str(itemQtyKeys...),
			Unit:      row.str("unit"),
			UnitPrice: row.str(itemPriceKeys...),
		}
	}
	return items
}

// resolveDate accepts a time value, a parseable date string, a unix timestamp
// (seconds or milliseconds) or a {seconds, nanoseconds} timestamp object
func resolveDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return resolveDate(n)
		}
	case json.Number:
		return resolveDate(string(t))
	case float64:
		if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return time.Time{}, false
		}
		if t > 1e11 {
			return time.UnixMilli(int64(t)).UTC(), true
		}
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return resolveDate(float64(t))
	case int:
		return resolveDate(float64(t))
	case map[string]any:
		for _, key := range []string{"seconds", "_seconds"} {
			if secs, ok := t[key].(float64); ok && secs > 0 {
				nanos, _ := t["nanoseconds"].(float64)
				if nanos == 0 {
					nanos, _ = t["_nanoseconds"].(float64)
				}
				return time.Unix(int64(secs), int64(nanos)).UTC(), true
			}
		}
	}
	return time.Time{}, false
}
