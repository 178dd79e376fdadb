package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemField names an editable column of an item row
type ItemField string

const (
	ItemName      ItemField = "name"
	ItemQuantity  ItemField = "qty"
	ItemUnit      ItemField = "unit"
	ItemUnitPrice ItemField = "price"
)

// AdjustmentKind names one of the adjustment amounts
type AdjustmentKind string

const (
	AdjustDiscount      AdjustmentKind = "discount_total"
	AdjustServiceCharge AdjustmentKind = "service_charge"
	AdjustShippingFee   AdjustmentKind = "shipping_fee"
	AdjustVAT           AdjustmentKind = "vat_amount"
)

// Draft is the state of one editing session. It is owned by a single editor and
// is never shared. TotalPrice, NetTotal and LineTotals are derived and get
// overwritten by every recomputation.
type Draft struct {
	ID       string   `json:"id,omitempty"`
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
	DateSet   bool      `json:"date_set"`

	Items []ItemInput `json:"items"`
	Adjustments

	// TotalOverride is a manually entered total. It only applies while no item
	// row carries a price; see Recalculate.
	TotalOverride string `json:"total_override,omitempty"`

	Attachment  string `json:"attachment,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	LineTotals []string `json:"line_totals"`
	TotalPrice string   `json:"total_price"`
	NetTotal   string   `json:"net_total"`
}

// NewDraft returns an empty draft with one blank item row
func NewDraft() *Draft {
	d := &Draft{
		VATRegistered: true,
		Items:         []ItemInput{{}},
	}
	d.Recalculate()
	return d
}

// Totals recomputes the draft's totals from its current items and adjustments
func (d *Draft) Totals() Totals {
	return Calculate(d.Items, d.Adjustments)
}

// Recalculate refreshes the derived display fields from scratch. A manual
// override is discarded once the items produce a subtotal, when it equals the
// computed net total, or when it is not a valid amount.
func (d *Draft) Recalculate() {
	t := d.Totals()
	d.LineTotals = make([]string, len(t.Lines))
	for i, line := range t.Lines {
		d.LineTotals[i] = DisplayAmount(line)
	}
	d.TotalPrice = DisplayAmount(t.ItemsSubtotal)
	d.NetTotal = DisplayNet(t.NetTotal)

	if d.TotalOverride != "" {
		if _, ok := d.override(t); !ok {
			d.TotalOverride = ""
		}
	}
}

// override returns the manual total when it applies to t
func (d *Draft) override(t Totals) (decimal.Decimal, bool) {
	if d.TotalOverride == "" || !t.ItemsSubtotal.IsZero() {
		return decimal.Zero, false
	}
	amount, ok := parseSignedAmount(d.TotalOverride)
	if !ok || amount.IsNegative() || amount.Equal(t.NetTotal) {
		return decimal.Zero, false
	}
	return amount, true
}

// EffectiveTotal is the amount persisted as the record total
func (d *Draft) EffectiveTotal() decimal.Decimal {
	t := d.Totals()
	if amount, ok := d.override(t); ok {
		return amount
	}
	return t.NetTotal
}

// AddItem appends a blank item row
func (d *Draft) AddItem() {
	d.Items = append(d.Items, ItemInput{})
	d.Recalculate()
}

// UpdateItem sets one column of the row at index i
func (d *Draft) UpdateItem(i int, field ItemField, value string) error {
	if i < 0 || i >= len(d.Items) {
		return fmt.Errorf("updating item %d: %w", i, ErrItemIndex)
	}
	it := &d.Items[i]
	switch field {
	case ItemName:
		it.Name = value
	case ItemQuantity:
		it.Quantity = value
	case ItemUnit:
		it.Unit = value
	case ItemUnitPrice:
		it.UnitPrice = value
	default:
		return fmt.Errorf("unknown item field %q", field)
	}
	d.Recalculate()
	return nil
}

// RemoveItem deletes the row at index i. Removing the last row leaves one blank row.
func (d *Draft) RemoveItem(i int) error {
	if i < 0 || i >= len(d.Items) {
		return fmt.Errorf("removing item %d: %w", i, ErrItemIndex)
	}
	items := make([]ItemInput, 0, len(d.Items)-1)
	items = append(items, d.Items[:i]...)
	items = append(items, d.Items[i+1:]...)
	if len(items) == 0 {
		items = []ItemInput{{}}
	}
	d.Items = items
	d.Recalculate()
	return nil
}

// SetAdjustment sets one adjustment amount
func (d *Draft) SetAdjustment(kind AdjustmentKind, value string) error {
	switch kind {
	case AdjustDiscount:
		d.DiscountTotal = value
	case AdjustServiceCharge:
		d.ServiceCharge = value
	case AdjustShippingFee:
		d.ShippingFee = value
	case AdjustVAT:
		d.VATAmount = value
	default:
		return fmt.Errorf("unknown adjustment %q", kind)
	}
	d.Recalculate()
	return nil
}

// SetCategory resolves raw to a known category. Unknown input is kept as-is and
// rejected when the draft is saved.
func (d *Draft) SetCategory(raw string) {
	if c, ok := ParseCategory(raw); ok {
		d.Category = c
		return
	}
	d.Category = Category(strings.TrimSpace(raw))
}

// SetDate marks the issue date as chosen
func (d *Draft) SetDate(t time.Time) {
	d.IssueDate = t
	d.DateSet = true
}

// ClearDate returns the issue date to the unset state
func (d *Draft) ClearDate() {
	d.IssueDate = time.Time{}
	d.DateSet = false
}

// OverrideTotal records a manually entered total
func (d *Draft) OverrideTotal(value string) {
	d.TotalOverride = strings.TrimSpace(value)
	d.Recalculate()
}

// Validate checks the fields that must be present before a save
func (d *Draft) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(d.ShopName) == "" {
		verr.add("shop_name", "is required")
	}
	switch {
	case d.Category == "":
		verr.add("category", "is required")
	case !d.Category.Valid():
		verr.add("category", fmt.Sprintf("%q is not a known category", d.Category))
	}
	return verr.orNil()
}

// Record validates the draft and builds the record to persist. Fully blank item
// rows are dropped and an unset date falls back to now. The draft is not modified.
func (d *Draft) Record(ownerID string, now time.Time) (*Record, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrNoOwner
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	date := d.IssueDate
	if !d.DateSet {
		date = now
	}

	items := make([]LineItem, 0, len(d.Items))
	for _, it := range d.Items {
		if it.Blank() {
			continue
		}
		items = append(items, LineItem{
			Name:      strings.TrimSpace(it.Name),
			Quantity:  ParseAmount(it.Quantity),
			Unit:      strings.TrimSpace(it.Unit),
			UnitPrice: ParseAmount(it.UnitPrice),
		})
	}

	return &Record{
		ID:              d.ID,
		OwnerID:         ownerID,
		Category:        d.Category,
		ShopName:        strings.TrimSpace(d.ShopName),
		ShopBranch:      d.ShopBranch,
		ShopAddress:     d.ShopAddress,
		ShopPhone:       d.ShopPhone,
		ShopTaxID:       d.ShopTaxID,
		VATRegistered:   d.VATRegistered,
		CustomerName:    d.CustomerName,
		CustomerAddress: d.CustomerAddress,
		CustomerPhone:   d.CustomerPhone,
		CustomerTaxID:   d.CustomerTaxID,
		ReceiptNo:       d.ReceiptNo,
		RefNo:           d.RefNo,
		IssueDate:       date,
		Items:           items,
		DiscountTotal:   ParseAmount(d.DiscountTotal),
		ServiceCharge:   ParseAmount(d.ServiceCharge),
		ShippingFee:     ParseAmount(d.ShippingFee),
		VATAmount:       ParseAmount(d.VATAmount),
		Total:           d.EffectiveTotal(),
		Attachment:      d.Attachment,
		ContentType:     d.ContentType,
	}, nil
}

// ShareText renders the one-line summary used when sharing a receipt
func ShareText(r *Record) string {
	ref := r.RefNo
	if ref == "" {
		ref = "-"
	}
	return fmt.Sprintf("%s total %s (Ref: %s)", r.ShopName, r.Total.StringFixed(2), ref)
}
