package scanning

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Sample", func() {
	It("should return the fixed extraction regardless of input", func() {
		fields, err := NewSample().ScanReceipt(context.Background(), nil, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(HaveKeyWithValue("shopName", "ร้านน้องดรีม"))
		Expect(fields).To(HaveKeyWithValue("refNo", "0180706060"))
		Expect(fields["items"]).To(HaveLen(2))
	})

	It("should hand out independent copies", func() {
		s := NewSample()
		first, _ := s.ScanReceipt(context.Background(), nil, "")
		first["shopName"] = "changed"
		second, _ := s.ScanReceipt(context.Background(), nil, "")
		Expect(second).To(HaveKeyWithValue("shopName", "ร้านน้องดรีม"))
	})

	It("should honor a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewSample().ScanReceipt(ctx, nil, "")
		Expect(err).To(MatchError(context.Canceled))
	})
})
