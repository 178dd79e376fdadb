package receipt

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalize", func() {
	var (
		input Fields
		d     *Draft
	)

	JustBeforeEach(func() {
		d = Normalize(input)
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			input = Fields{}
		})

		It("should produce an empty draft with one blank row", func() {
			Expect(d.ShopName).To(BeEmpty())
			Expect(d.Items).To(Equal([]ItemInput{{}}))
			Expect(d.DateSet).To(BeFalse())
			Expect(d.TotalOverride).To(BeEmpty())
			Expect(d.EffectiveTotal().IsZero()).To(BeTrue())
			Expect(d.VATRegistered).To(BeTrue())
		})
	})

	When("fields arrive under synonyms", func() {
		BeforeEach(func() {
			input = Fields{
				"store":     "",
				"seller":    "Seller Co",
				"address":   "1 Main Rd",
				"taxId":     "0105556000000",
				"no":        "INV-9",
				"reference": "R-77",
				"discount":  "5",
				"shipping":  12.5,
				"imageUri":  "abc_receipt.jpg",
				"items": []any{
					map[string]any{"name": "Tea", "quantity": 2, "unitPrice": "35"},
				},
			}
		})

		It("should take the first non-empty synonym", func() {
			Expect(d.ShopName).To(Equal("Seller Co"))
			Expect(d.ShopAddress).To(Equal("1 Main Rd"))
			Expect(d.ShopTaxID).To(Equal("0105556000000"))
			Expect(d.ReceiptNo).To(Equal("INV-9"))
			Expect(d.RefNo).To(Equal("R-77"))
			Expect(d.DiscountTotal).To(Equal("5"))
			Expect(d.ShippingFee).To(Equal("12.5"))
			Expect(d.Attachment).To(Equal("abc_receipt.jpg"))
			Expect(d.Items).To(Equal([]ItemInput{{Name: "Tea", Quantity: "2", UnitPrice: "35"}}))
			Expect(d.NetTotal).To(Equal("77.50"))
		})

		It("should prefer the canonical key", func() {
			input["shopName"] = "Canonical"
			d = Normalize(input)
			Expect(d.ShopName).To(Equal("Canonical"))
		})
	})

	Describe("total fallback", func() {
		When("only netTotal is present and there are no items", func() {
			BeforeEach(func() {
				input = Fields{"netTotal": "120"}
			})

			It("should keep it as a manual total", func() {
				Expect(d.TotalOverride).To(Equal("120"))
				Expect(d.EffectiveTotal().Equal(dec("120"))).To(BeTrue())
			})
		})

		When("only amount is present", func() {
			BeforeEach(func() {
				input = Fields{"amount": json.Number("99.95")}
			})

			It("should use it", func() {
				Expect(d.EffectiveTotal().Equal(dec("99.95"))).To(BeTrue())
			})
		})

		When("items disagree with the extracted total", func() {
			BeforeEach(func() {
				input = Fields{
					"total": 5232.3,
					"items": []any{
						map[string]any{"name": "แท่งไฟ nct v.2", "qty": "2", "unit": "แท่ง", "price": "2100"},
						map[string]any{"name": "เสื้อ md", "qty": "1", "unit": "ตัว", "price": "690"},
					},
				}
			})

			It("should recompute from the items", func() {
				Expect(d.TotalOverride).To(BeEmpty())
				Expect(d.NetTotal).To(Equal("4890.00"))
				Expect(d.EffectiveTotal().Equal(dec("4890"))).To(BeTrue())
			})
		})
	})

	Describe("date resolution", func() {
		DescribeTable("accepted forms",
			func(v any, expected time.Time) {
				d := Normalize(Fields{"date": v})
				Expect(d.DateSet).To(BeTrue())
				Expect(d.IssueDate.Equal(expected)).To(BeTrue(), "got %s", d.IssueDate)
			},
			Entry("ISO date", "2026-08-25", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)),
			Entry("RFC3339", "2026-08-25T10:30:00Z", time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)),
			Entry("day first", "25/08/2026", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)),
			Entry("time value", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
			Entry("unix seconds", float64(1756080000), time.Unix(1756080000, 0)),
			Entry("unix millis", float64(1756080000000), time.Unix(1756080000, 0)),
			Entry("timestamp object", map[string]any{"seconds": float64(1756080000), "nanoseconds": float64(0)}, time.Unix(1756080000, 0)),
			Entry("underscored timestamp object", map[string]any{"_seconds": float64(1756080000)}, time.Unix(1756080000, 0)),
		)

		DescribeTable("unset forms",
			func(v any) {
				d := Normalize(Fields{"date": v})
				Expect(d.DateSet).To(BeFalse())
				Expect(d.IssueDate.IsZero()).To(BeTrue())
			},
			Entry("missing", nil),
			Entry("empty string", ""),
			Entry("garbage", "next tuesday"),
			Entry("zero time", time.Time{}),
			Entry("negative number", float64(-1)),
		)
	})

	Describe("idempotence", func() {
		BeforeEach(func() {
			input = Fields{
				"seller":          "  ร้านน้องดรีม ",
				"category":        "ใบกำกับภาษีอย่างย่อ",
				"isVatRegistered": "false",
				"date":            "2026-08-25",
				"refNo":           float64(180706060),
				"discountTotal":   "10",
				"items": []any{
					map[string]any{"name": " แท่งไฟ ", "qty": "2", "unit": "แท่ง", "price": 2100},
					map[string]any{},
				},
				"total": "1",
			}
		})

		It("should reach a fixed point after one pass", func() {
			again := Normalize(d.Fields())
			Expect(again).To(Equal(d))
			Expect(Normalize(again.Fields())).To(Equal(d))
		})

		It("should be stable for a manual-total draft", func() {
			manual := Normalize(Fields{"shopName": "Foo", "total": "250"})
			Expect(Normalize(manual.Fields())).To(Equal(manual))
		})

		It("should be stable for a negative net", func() {
			neg := Normalize(Fields{"shopName": "Foo", "discountTotal": "10"})
			Expect(Normalize(neg.Fields())).To(Equal(neg))
		})
	})

	Describe("NormalizeRecord", func() {
		It("should round-trip a stored record into an equivalent draft", func() {
			r := &Record{
				ID:            "r-1",
				OwnerID:       "owner-1",
				Category:      CategoryFullTaxInvoice,
				ShopName:      "Foo",
				VATRegistered: true,
				IssueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				Items: []LineItem{
					{Name: "Tea", Quantity: dec("2"), Unit: "cup", UnitPrice: dec("35")},
				},
				ShippingFee: dec("10"),
				Total:       dec("80"),
				Attachment:  "a.jpg",
			}

			d := NormalizeRecord(r)
			Expect(d.ID).To(Equal("r-1"))
			Expect(d.Category).To(Equal(CategoryFullTaxInvoice))
			Expect(d.DateSet).To(BeTrue())
			Expect(d.Items).To(Equal([]ItemInput{{Name: "Tea", Quantity: "2", Unit: "cup", UnitPrice: "35"}}))
			Expect(d.NetTotal).To(Equal("80.00"))
			Expect(d.Attachment).To(Equal("a.jpg"))

			back, err := d.Record("owner-1", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(back.Total.Equal(r.Total)).To(BeTrue())
			Expect(back.IssueDate).To(Equal(r.IssueDate))
			Expect(NormalizeRecord(back)).To(Equal(d))
		})

		It("should keep a negative net total when an edited record is saved again", func() {
			now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
			first, err := Normalize(Fields{
				"shopName":      "Foo",
				"category":      "general_receipt",
				"discountTotal": "10",
			}).Record("owner-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Total.Equal(dec("-10"))).To(BeTrue())

			edit := NormalizeRecord(first)
			Expect(edit.TotalOverride).To(BeEmpty())

			again, err := edit.Record("owner-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Total.Equal(first.Total)).To(BeTrue(), "re-saved total %s", again.Total)
		})
	})
})
