package analytics

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-ledger/internal/receipt"
)

var _ = Describe("Aggregate", func() {
	var (
		now     time.Time
		records []*receipt.Record
		view    View
		opts    []Option
	)

	BeforeEach(func() {
		now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
		records = nil
		opts = nil
	})

	JustBeforeEach(func() {
		view = Aggregate(records, now, opts...)
	})

	When("there are no records", func() {
		It("should return a zero view", func() {
			Expect(view.Count).To(Equal(0))
			Expect(view.TotalAmount.IsZero()).To(BeTrue())
			Expect(view.Average.IsZero()).To(BeTrue())
			Expect(view.TopCategory).To(Equal(NoCategory))
			Expect(view.TopCategoryLabel).To(Equal("-"))
			Expect(view.TopReceipts).To(BeEmpty())
			Expect(view.TopReceipts).NotTo(BeNil())
			Expect(view.Monthly).To(HaveLen(MonthWindow))
			for _, b := range view.Monthly {
				Expect(b.Amount.IsZero()).To(BeTrue())
			}
		})
	})

	When("categories are weighted by amount, not count", func() {
		BeforeEach(func() {
			records = []*receipt.Record{
				rec("one", "100", "A", now),
				rec("two", "300", "B", now),
				rec("three", "300", "A", now),
			}
		})

		It("should pick the category with the highest sum", func() {
			Expect(view.TopCategory).To(Equal("A"))
			Expect(view.TopCategoryTotal.Equal(dec("400"))).To(BeTrue())
		})

		It("should total and average the records", func() {
			Expect(view.TotalAmount.Equal(dec("700"))).To(BeTrue())
			Expect(view.Count).To(Equal(3))
			Expect(view.Average.StringFixed(2)).To(Equal("233.33"))
		})

		It("should rank the largest receipts with ties in input order", func() {
			Expect(view.TopReceipts).To(HaveLen(3))
			Expect(view.TopReceipts[0].ShopName).To(Equal("two"))
			Expect(view.TopReceipts[1].ShopName).To(Equal("three"))
			Expect(view.TopReceipts[2].ShopName).To(Equal("one"))
		})

		It("should not reorder the input", func() {
			Expect(records[0].ShopName).To(Equal("one"))
		})
	})

	When("categories tie", func() {
		BeforeEach(func() {
			records = []*receipt.Record{
				rec("one", "50", receipt.CategoryFullTaxInvoice, now),
				rec("two", "50", receipt.CategoryGeneral, now),
			}
		})

		It("should keep the first encountered", func() {
			Expect(view.TopCategory).To(Equal(string(receipt.CategoryFullTaxInvoice)))
			Expect(view.TopCategoryLabel).To(Equal("ใบกำกับภาษีแบบเต็มรูป"))
		})
	})

	When("every total is zero", func() {
		BeforeEach(func() {
			records = []*receipt.Record{rec("free", "0", receipt.CategoryGeneral, now)}
		})

		It("should report no top category", func() {
			Expect(view.TopCategory).To(Equal(NoCategory))
			Expect(view.Count).To(Equal(1))
		})
	})

	When("a record has no category", func() {
		BeforeEach(func() {
			records = []*receipt.Record{rec("x", "10", "", now)}
			opts = []Option{WithLocale(LocaleEnglish)}
		})

		It("should group it as uncategorized", func() {
			Expect(view.TopCategory).To(Equal(Uncategorized))
			Expect(view.TopCategoryLabel).To(Equal("Uncategorized"))
		})
	})

	Describe("TopReceipts", func() {
		BeforeEach(func() {
			for _, t := range []string{"5", "80", "12", "80", "7"} {
				records = append(records, rec("shop "+t, t, receipt.CategoryGeneral, now))
			}
		})

		It("should keep min(3, count) records sorted descending", func() {
			Expect(view.TopReceipts).To(HaveLen(3))
			for i := 1; i < len(view.TopReceipts); i++ {
				Expect(view.TopReceipts[i-1].Total.GreaterThanOrEqual(view.TopReceipts[i].Total)).To(BeTrue())
			}
			Expect(view.TopReceipts[2].Total.Equal(dec("12"))).To(BeTrue())
		})
	})

	Describe("Monthly", func() {
		BeforeEach(func() {
			records = []*receipt.Record{
				rec("oct", "100", receipt.CategoryGeneral, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)),
				rec("may", "40", receipt.CategoryGeneral, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)),
				rec("old may", "25", receipt.CategoryGeneral, time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)),
				rec("april", "9", receipt.CategoryGeneral, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)),
			}
		})

		It("should cover the six months ending now, oldest first", func() {
			labels := make([]string, len(view.Monthly))
			for i, b := range view.Monthly {
				labels[i] = b.Label
			}
			Expect(labels).To(Equal([]string{"พ.ค.", "มิ.ย.", "ก.ค.", "ส.ค.", "ก.ย.", "ต.ค."}))
			Expect(view.Monthly[0].Year).To(Equal(2026))
			Expect(view.Monthly[0].Month).To(Equal(time.May))
		})

		It("should bucket by year and month", func() {
			Expect(view.Monthly[0].Amount.Equal(dec("40"))).To(BeTrue())
			Expect(view.Monthly[5].Amount.Equal(dec("100"))).To(BeTrue())
			Expect(view.TotalAmount.Equal(dec("174"))).To(BeTrue())
		})

		When("legacy month matching is enabled", func() {
			BeforeEach(func() {
				opts = []Option{WithLegacyMonthMatching(), WithLocale(LocaleEnglish)}
			})

			It("should merge the same month of other years", func() {
				Expect(view.Monthly[0].Label).To(Equal("May"))
				Expect(view.Monthly[0].Amount.Equal(dec("65"))).To(BeTrue())
			})
		})

		When("the window crosses a year boundary", func() {
			BeforeEach(func() {
				now = time.Date(2027, 2, 10, 0, 0, 0, 0, time.UTC)
			})

			It("should roll back into the previous year", func() {
				Expect(view.Monthly[0].Year).To(Equal(2026))
				Expect(view.Monthly[0].Month).To(Equal(time.September))
				Expect(view.Monthly[1].Amount.Equal(dec("100"))).To(BeTrue())
				Expect(view.Monthly[5].Year).To(Equal(2027))
			})
		})
	})

	It("should return the same view for the same input", func() {
		input := []*receipt.Record{rec("a", "1", receipt.CategoryGeneral, now), rec("b", "2", receipt.CategoryGeneral, now)}
		Expect(Aggregate(input, now)).To(Equal(Aggregate(input, now)))
	})
})
