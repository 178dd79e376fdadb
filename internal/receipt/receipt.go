package receipt

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the document type of a receipt. Only the values in Categories are valid.
type Category string

const (
	CategoryGeneral               Category = "general_receipt"
	CategoryFullTaxInvoice        Category = "full_tax_invoice"
	CategoryAbbreviatedTaxInvoice Category = "abbreviated_tax_invoice"
)

// Categories lists the closed set of document types in display order
var Categories = []Category{
	CategoryGeneral,
	CategoryFullTaxInvoice,
	CategoryAbbreviatedTaxInvoice,
}

var categoryLabels = map[Category][2]string{
	CategoryGeneral:               {"General receipt", "ใบเสร็จรับเงินทั่วไป"},
	CategoryFullTaxInvoice:        {"Full tax invoice", "ใบกำกับภาษีแบบเต็มรูป"},
	CategoryAbbreviatedTaxInvoice: {"Abbreviated tax invoice", "ใบกำกับภาษีอย่างย่อ"},
}

// Valid reports whether c is a member of the fixed category set
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the English or Thai label for the category
func (c Category) Label(thai bool) string {
	labels, ok := categoryLabels[c]
	if !ok {
		return string(c)
	}
	if thai {
		return labels[1]
	}
	return labels[0]
}

// ParseCategory resolves a slug or either label to a Category.
// Matching ignores case and surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, c := range Categories {
		labels := categoryLabels[c]
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, labels[0]) || s == labels[1] {
			return c, true
		}
	}
	return "", false
}

// LineItem is one persisted row of a receipt
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"qty"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Total returns quantity * unit price at full precision
func (li LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Record is the canonical persisted receipt
type Record struct {
	ID       string   `json:"id,omitempty"`
	OwnerID  string   `json:"owner_id"`
	Category Category `json:"category"`

	ShopName      string `json:"shop_name"`
	ShopBranch    string `json:"shop_branch"`
	ShopAddress   string `json:"shop_address"`
	ShopPhone     string `json:"shop_phone"`
	ShopTaxID     string `json:"shop_tax_id"`
	VATRegistered bool   `json:"is_vat_registered"`

	CustomerName    string `json:"customer_name"`
	CustomerAddress string `json:"customer_address"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerTaxID   string `json:"customer_tax_id"`

	ReceiptNo string    `json:"receipt_no"`
	RefNo     string    `json:"ref_no"`
	IssueDate time.Time `json:"issue_date"`

	Items []LineItem `json:"items"`

	DiscountTotal decimal.Decimal `json:"discount_total"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	Total         decimal.Decimal `json:"total"`

	// Attachment is the storage path of the captured image or PDF, if any
	Attachment  string `json:"attachment,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemsSubtotal sums the line totals at full precision
func (r *Record) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range r.Items {
		sum = sum.Add(li.Total())
	}
	return sum
}

// merge copies the editable fields of src into r, keeping identity and ownership
func (r *Record) merge(src *Record) {
	id, owner, created := r.ID, r.OwnerID, r.CreatedAt
	attachment, contentType := r.Attachment, r.ContentType
	*r = *src
	r.ID, r.OwnerID, r.CreatedAt = id, owner, created
	if r.Attachment == "" {
		r.Attachment, r.ContentType = attachment, contentType
	}
	r.Items = append([]LineItem(nil), src.Items...)
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	c := *r
	c.Items = append([]LineItem(nil), r.Items...)
	return &c
}
