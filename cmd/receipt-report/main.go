package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-ledger/internal/analytics"
	"github.com/zombor/receipt-ledger/internal/export"
	"github.com/zombor/receipt-ledger/internal/receipt"
)

func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("receipt-report")
	var (
		owner   = fs.StringLong("owner", "", "Owner whose receipts are reported (required)")
		store   = fs.StringLong("store", "bolt", "Storage backend: 'bolt', 'sqlite' or 'postgres'")
		dbPath  = fs.StringLong("db", "receipts.db", "Database file path (bolt, sqlite) or connection string (postgres)")
		locale  = fs.StringLong("locale", "th", "Display locale: 'th' or 'en'")
		legacy  = fs.BoolLong("legacy-monthly", "Match months by month number only, ignoring the year")
		search  = fs.StringLong("search", "", "Only report receipts matching this text")
		xlsx    = fs.StringLong("xlsx", "", "Also write an XLSX workbook to this path")
		asOf    = fs.StringLong("as-of", "", "Report as of this date (YYYY-MM-DD); defaults to today")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *owner == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --owner is required")
		os.Exit(1)
	}

	loc, err := analytics.ParseLocale(*locale)
	if err != nil {
		slog.Error("Invalid locale", "locale", *locale, "error", err)
		os.Exit(1)
	}

	now := time.Now()
	if *asOf != "" {
		now, err = time.ParseInLocation("2006-01-02", *asOf, time.Local)
		if err != nil {
			slog.Error("Invalid --as-of date", "value", *asOf, "error", err)
			os.Exit(1)
		}
	}

	opts := []analytics.Option{analytics.WithLocale(loc)}
	if *legacy {
		opts = append(opts, analytics.WithLegacyMonthMatching())
	}

	ctx := context.Background()
	db, err := openDB(ctx, *store, *dbPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	records, err := receipt.NewFeed(db).Query(ctx, receipt.Query{OwnerID: *owner, OrderBy: receipt.OrderByDate})
	if err != nil {
		slog.Error("Failed to load receipts", "owner", *owner, "error", err)
		os.Exit(1)
	}
	if *search != "" {
		records = analytics.Search(records, *search, loc)
	}

	view := analytics.Aggregate(records, now, opts...)
	printReport(os.Stdout, view, loc)

	if *xlsx != "" {
		data, err := export.WorkbookXLSX(records, view, loc)
		if err != nil {
			slog.Error("Failed to build workbook", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsx, data, 0644); err != nil {
			slog.Error("Failed to write workbook", "path", *xlsx, "error", err)
			os.Exit(1)
		}
		slog.Info("Workbook written", "path", *xlsx, "receipts", len(records))
	}
}

func openDB(ctx context.Context, store, path string) (receipt.DB, error) {
	switch store {
	case "bolt":
		return receipt.NewBoltDB(path)
	case "sqlite":
		return receipt.NewSQLDB(ctx, receipt.DriverSQLite, path)
	case "postgres":
		return receipt.NewSQLDB(ctx, receipt.DriverPostgres, path)
	}
	return nil, fmt.Errorf("invalid store %q: valid stores are bolt, sqlite and postgres", store)
}

func printReport(w io.Writer, v analytics.View, loc analytics.Locale) {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Total", "Count", "Average", "Top category", "Top category total"})
	summary.Append([]string{
		v.TotalAmount.StringFixed(2),
		fmt.Sprint(v.Count),
		v.Average.StringFixed(2),
		v.TopCategoryLabel,
		v.TopCategoryTotal.StringFixed(2),
	})
	summary.Render()
	fmt.Fprintln(w)

	monthly := tablewriter.NewWriter(w)
	monthly.SetHeader([]string{"Month", "Amount"})
	for _, b := range v.Monthly {
		monthly.Append([]string{fmt.Sprintf("%s %d", b.Label, b.Year), b.Amount.StringFixed(2)})
	}
	monthly.Render()
	fmt.Fprintln(w)

	if len(v.TopReceipts) == 0 {
		fmt.Fprintln(w, "No receipts.")
		return
	}
	top := tablewriter.NewWriter(w)
	top.SetHeader([]string{"Date", "Shop", "Category", "Total"})
	for _, r := range v.TopReceipts {
		top.Append([]string{
			loc.FormatDate(r.IssueDate),
			r.ShopName,
			loc.CategoryLabel(string(r.Category)),
			r.Total.StringFixed(2),
		})
	}
	top.Render()
}
