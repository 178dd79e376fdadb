package receipt

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Draft", func() {
	var d *Draft

	BeforeEach(func() {
		d = NewDraft()
	})

	Describe("NewDraft", func() {
		It("should start with one blank row and zero totals", func() {
			Expect(d.Items).To(Equal([]ItemInput{{}}))
			Expect(d.TotalPrice).To(Equal("0.00"))
			Expect(d.NetTotal).To(Equal("0.00"))
			Expect(d.VATRegistered).To(BeTrue())
			Expect(d.DateSet).To(BeFalse())
		})
	})

	Describe("item editing", func() {
		It("should recompute after every change", func() {
			Expect(d.UpdateItem(0, ItemQuantity, "2")).To(Succeed())
			Expect(d.UpdateItem(0, ItemUnitPrice, "2100")).To(Succeed())
			Expect(d.TotalPrice).To(Equal("4200.00"))

			d.AddItem()
			Expect(d.UpdateItem(1, ItemQuantity, "1")).To(Succeed())
			Expect(d.UpdateItem(1, ItemUnitPrice, "690")).To(Succeed())
			Expect(d.LineTotals).To(Equal([]string{"4200.00", "690.00"}))
			Expect(d.NetTotal).To(Equal("4890.00"))

			Expect(d.RemoveItem(0)).To(Succeed())
			Expect(d.NetTotal).To(Equal("690.00"))
		})

		It("should leave a blank row when the last row is removed", func() {
			Expect(d.UpdateItem(0, ItemName, "coffee")).To(Succeed())
			Expect(d.RemoveItem(0)).To(Succeed())
			Expect(d.Items).To(Equal([]ItemInput{{}}))
		})

		It("should reject an out of range index", func() {
			Expect(errors.Is(d.UpdateItem(3, ItemName, "x"), ErrItemIndex)).To(BeTrue())
			Expect(errors.Is(d.RemoveItem(-1), ErrItemIndex)).To(BeTrue())
		})

		It("should reject an unknown field", func() {
			Expect(d.UpdateItem(0, ItemField("colour"), "red")).To(HaveOccurred())
		})
	})

	Describe("SetAdjustment", func() {
		BeforeEach(func() {
			Expect(d.UpdateItem(0, ItemQuantity, "1")).To(Succeed())
			Expect(d.UpdateItem(0, ItemUnitPrice, "100")).To(Succeed())
		})

		It("should apply each kind", func() {
			Expect(d.SetAdjustment(AdjustServiceCharge, "10")).To(Succeed())
			Expect(d.SetAdjustment(AdjustShippingFee, "5")).To(Succeed())
			Expect(d.SetAdjustment(AdjustDiscount, "15")).To(Succeed())
			Expect(d.SetAdjustment(AdjustVAT, "7")).To(Succeed())
			Expect(d.NetTotal).To(Equal("100.00"))
		})

		It("should clamp a negative net for display", func() {
			Expect(d.SetAdjustment(AdjustDiscount, "250")).To(Succeed())
			Expect(d.NetTotal).To(Equal("0.00"))
			Expect(d.Totals().NetTotal.Equal(dec("-150"))).To(BeTrue())
		})

		It("should reject an unknown kind", func() {
			Expect(d.SetAdjustment(AdjustmentKind("tip"), "1")).To(HaveOccurred())
		})
	})

	Describe("OverrideTotal", func() {
		It("should hold while there are no priced items", func() {
			d.OverrideTotal("250")
			Expect(d.TotalOverride).To(Equal("250"))
			Expect(d.EffectiveTotal().Equal(dec("250"))).To(BeTrue())
		})

		It("should be cleared once items produce a subtotal", func() {
			d.OverrideTotal("250")
			Expect(d.UpdateItem(0, ItemQuantity, "1")).To(Succeed())
			Expect(d.UpdateItem(0, ItemUnitPrice, "40")).To(Succeed())
			Expect(d.TotalOverride).To(BeEmpty())
			Expect(d.EffectiveTotal().Equal(dec("40"))).To(BeTrue())
		})

		It("should be dropped when it equals the computed net", func() {
			Expect(d.SetAdjustment(AdjustShippingFee, "30")).To(Succeed())
			d.OverrideTotal("30.00")
			Expect(d.TotalOverride).To(BeEmpty())
		})

		It("should be dropped when it equals a negative net", func() {
			Expect(d.SetAdjustment(AdjustDiscount, "10")).To(Succeed())
			d.OverrideTotal("-10")
			Expect(d.TotalOverride).To(BeEmpty())
			Expect(d.EffectiveTotal().Equal(dec("-10"))).To(BeTrue())
		})

		It("should be dropped when it is not an amount", func() {
			Expect(d.SetAdjustment(AdjustShippingFee, "30")).To(Succeed())
			d.OverrideTotal("abc")
			Expect(d.TotalOverride).To(BeEmpty())
			Expect(d.EffectiveTotal().Equal(dec("30"))).To(BeTrue())
		})

		It("should be ignored by EffectiveTotal when set directly and not applicable", func() {
			Expect(d.SetAdjustment(AdjustDiscount, "10")).To(Succeed())
			d.TotalOverride = "-5"
			Expect(d.EffectiveTotal().Equal(dec("-10"))).To(BeTrue())
		})
	})

	Describe("SetCategory", func() {
		DescribeTable("resolves labels and slugs",
			func(raw string, expected Category) {
				d.SetCategory(raw)
				Expect(d.Category).To(Equal(expected))
			},
			Entry("slug", "full_tax_invoice", CategoryFullTaxInvoice),
			Entry("english label", "general receipt", CategoryGeneral),
			Entry("thai label", "ใบกำกับภาษีอย่างย่อ", CategoryAbbreviatedTaxInvoice),
			Entry("unknown kept as typed", " Groceries ", Category("Groceries")),
		)
	})

	Describe("Validate", func() {
		It("should list every missing field", func() {
			err := d.Validate()
			Expect(errors.Is(err, ErrValidation)).To(BeTrue())

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Fields).To(ConsistOf(
				FieldError{Field: "shop_name", Message: "is required"},
				FieldError{Field: "category", Message: "is required"},
			))
		})

		It("should reject an unknown category", func() {
			d.ShopName = "Foo"
			d.SetCategory("Groceries")
			err := d.Validate()
			Expect(err).To(MatchError(ContainSubstring("not a known category")))
		})

		It("should pass with a shop name and a valid category", func() {
			d.ShopName = "Foo"
			d.SetCategory(string(CategoryGeneral))
			Expect(d.Validate()).To(Succeed())
		})
	})

	Describe("Record", func() {
		var now time.Time

		BeforeEach(func() {
			now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
			d.ShopName = " ร้านน้องดรีม "
			d.SetCategory(string(CategoryAbbreviatedTaxInvoice))
			d.RefNo = "0180706060"
			Expect(d.UpdateItem(0, ItemName, "แท่งไฟ nct v.2")).To(Succeed())
			Expect(d.UpdateItem(0, ItemQuantity, "2")).To(Succeed())
			Expect(d.UpdateItem(0, ItemUnitPrice, "2,100")).To(Succeed())
			d.AddItem()
			Expect(d.SetAdjustment(AdjustDiscount, "-20")).To(Succeed())
		})

		It("should build the record", func() {
			r, err := d.Record("owner-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.OwnerID).To(Equal("owner-1"))
			Expect(r.ShopName).To(Equal("ร้านน้องดรีม"))
			Expect(r.Items).To(HaveLen(1))
			Expect(r.Items[0].UnitPrice.Equal(dec("2100"))).To(BeTrue())
			Expect(r.DiscountTotal.IsZero()).To(BeTrue())
			Expect(r.Total.Equal(dec("4200"))).To(BeTrue())
		})

		It("should fall back to now for an unset date", func() {
			r, err := d.Record("owner-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.IssueDate).To(Equal(now))
		})

		It("should keep a chosen date", func() {
			chosen := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
			d.SetDate(chosen)
			r, err := d.Record("owner-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.IssueDate).To(Equal(chosen))

			d.ClearDate()
			r, err = d.Record("owner-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.IssueDate).To(Equal(now))
		})

		It("should not modify the draft", func() {
			before := *d
			before.Items = append([]ItemInput(nil), d.Items...)
			_, err := d.Record("owner-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Items).To(Equal(before.Items))
			Expect(d.ShopName).To(Equal(before.ShopName))
		})

		It("should require an owner", func() {
			_, err := d.Record(" ", now)
			Expect(err).To(MatchError(ErrNoOwner))
		})

		It("should report validation failures", func() {
			d.ShopName = ""
			_, err := d.Record("owner-1", now)
			Expect(errors.Is(err, ErrValidation)).To(BeTrue())
		})
	})

	Describe("ShareText", func() {
		It("should render the shop, total and reference", func() {
			r := &Record{ShopName: "Foo", Total: dec("250"), RefNo: "R1"}
			Expect(ShareText(r)).To(Equal("Foo total 250.00 (Ref: R1)"))
		})

		It("should use a dash without a reference", func() {
			Expect(ShareText(&Record{ShopName: "Foo", Total: dec("1.5")})).To(Equal("Foo total 1.50 (Ref: -)"))
		})
	})
})
