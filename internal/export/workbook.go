package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/receipt-ledger/internal/analytics"
	"github.com/zombor/receipt-ledger/internal/receipt"
)

const (
	ReceiptsSheet = "Receipts"
	SummarySheet  = "Summary"
)

var receiptHeaders = []any{"Date", "Category", "Shop", "Receipt No", "Ref No", "Items", "Total"}

// WorkbookXLSX renders records and their aggregation as an XLSX workbook.
// Amounts are written as numbers so the sheet can be summed.
func WorkbookXLSX(records []*receipt.Record, view analytics.View, l analytics.Locale) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReceiptsSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if err := writeReceipts(f, records, l); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}
	if err := writeSummary(f, view, l); err != nil {
		return nil, err
	}

	idx, err := f.GetSheetIndex(ReceiptsSheet)
	if err != nil {
		return nil, fmt.Errorf("finding sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeReceipts(f *excelize.File, records []*receipt.Record, l analytics.Locale) error {
	if err := f.SetSheetRow(ReceiptsSheet, "A1", &receiptHeaders); err != nil {
		return fmt.Errorf("writing headers: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			l.FormatDate(r.IssueDate),
			l.CategoryLabel(string(r.Category)),
			r.ShopName,
			r.ReceiptNo,
			r.RefNo,
			len(r.Items),
			r.Total.InexactFloat64(),
		}
		if err := f.SetSheetRow(ReceiptsSheet, cell, &row); err != nil {
			return fmt.Errorf("writing receipt %s: %w", r.ID, err)
		}
	}

	_ = f.SetColWidth(ReceiptsSheet, "A", "A", 12)
	_ = f.SetColWidth(ReceiptsSheet, "B", "B", 24)
	_ = f.SetColWidth(ReceiptsSheet, "C", "C", 32)
	_ = f.SetColWidth(ReceiptsSheet, "D", "E", 16)
	_ = f.SetColWidth(ReceiptsSheet, "G", "G", 14)
	return nil
}

func writeSummary(f *excelize.File, v analytics.View, l analytics.Locale) error {
	rows := [][]any{
		{"Total", v.TotalAmount.InexactFloat64()},
		{"Count", v.Count},
		{"Average", v.Average.Round(2).InexactFloat64()},
		{"Top category", v.TopCategoryLabel},
		{},
		{"Month", "Amount"},
	}
	for _, b := range v.Monthly {
		rows = append(rows, []any{fmt.Sprintf("%s %d", b.Label, b.Year), b.Amount.InexactFloat64()})
	}
	rows = append(rows, []any{}, []any{"Top receipts", "Total", "Date"})
	for _, r := range v.TopReceipts {
		rows = append(rows, []any{r.ShopName, r.Total.InexactFloat64(), l.FormatDate(r.IssueDate)})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 28)
	return nil
}
