package scanning

import (
	"context"
	"time"
)

// Sample is a Scanner that ignores its input and returns a fixed extraction.
// It stands in for a real extraction backend during development and demos.
type Sample struct{}

// NewSample creates a Sample scanner
func NewSample() *Sample {
	return &Sample{}
}

// ScanReceipt returns a fresh copy of the sample fields
func (s *Sample) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SampleFields(), nil
}

// Close is a no-op
func (s *Sample) Close() error {
	return nil
}

// SampleFields is the fixed extraction used by Sample. Its item lines add up to
// 4890.00 while the claimed total is 5232.3, so the editor visibly recomputes it.
func SampleFields() map[string]any {
	return map[string]any{
		"shopName":        "ร้านน้องดรีม",
		"shopAddress":     "25 ม.7 ต.หมากฝรั่ง อ.กยู จ.ต้นหอม",
		"shopPhone":       "025-080-2016",
		"shopTaxId":       "2232361322525",
		"isVatRegistered": true,
		"customerName":    "มาร์ค ลี",
		"customerAddress": "2 ม.7 ต.พริกหยวก อ.ซีตาร์ จ.แคนาดา",
		"customerPhone":   "060-228-1999",
		"customerTaxId":   "-",
		"receiptNo":       "01270",
		"refNo":           "0180706060",
		"date":            time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC),
		"category":        "ใบกำกับภาษีอย่างย่อ",
		"items": []any{
			map[string]any{"name": "แท่งไฟ nct v.2", "qty": "2", "unit": "แท่ง", "price": "2100"},
			map[string]any{"name": "เสื้อ md", "qty": "1", "unit": "ตัว", "price": "690"},
		},
		"total": 5232.3,
	}
}
