package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ledger/internal/analytics"
	"github.com/zombor/receipt-ledger/internal/export"
	"github.com/zombor/receipt-ledger/internal/receipt"
)

type categoryResponse struct {
	Slug    receipt.Category `json:"slug"`
	LabelEN string           `json:"label_en"`
	LabelTH string           `json:"label_th"`
}

type receiptDetail struct {
	*receipt.Record
	ItemsSubtotal decimal.Decimal `json:"items_subtotal"`
	VATIncluded   decimal.Decimal `json:"vat_included"`
	BeforeVAT     decimal.Decimal `json:"before_vat"`
	ShareText     string          `json:"share_text"`
	CategoryLabel string          `json:"category_label"`
	DisplayDate   string          `json:"display_date"`
}

func (s *Server) detail(r *receipt.Record) receiptDetail {
	vat, before := receipt.VATBreakdown(r.Total, receipt.DefaultVATRate)
	return receiptDetail{
		Record:        r,
		ItemsSubtotal: r.ItemsSubtotal(),
		VATIncluded:   vat.Round(2),
		BeforeVAT:     before.Round(2),
		ShareText:     receipt.ShareText(r),
		CategoryLabel: s.cfg.Locale.CategoryLabel(string(r.Category)),
		DisplayDate:   s.cfg.Locale.FormatDate(r.IssueDate),
	}
}

func (s *Server) aggregateOptions() []analytics.Option {
	opts := []analytics.Option{analytics.WithLocale(s.cfg.Locale)}
	if s.cfg.LegacyMonthly {
		opts = append(opts, analytics.WithLegacyMonthMatching())
	}
	return opts
}

// queryFrom reads the category and order parameters
func queryFrom(r *http.Request) (receipt.Query, error) {
	q := receipt.Query{OwnerID: ownerFrom(r.Context())}
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, ok := receipt.ParseCategory(raw)
		if !ok {
			return q, fmt.Errorf("unknown category %q", raw)
		}
		q.Category = c
	}
	order, err := receipt.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		return q, err
	}
	q.OrderBy = order
	return q, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.UseNumber()
	return dec.Decode(v)
}

// handleCategories lists the fixed category set
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := make([]categoryResponse, len(receipt.Categories))
	for i, c := range receipt.Categories {
		out[i] = categoryResponse{Slug: c, LabelEN: c.Label(false), LabelTH: c.Label(true)}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNormalizeDraft turns loose fields into a canonical draft
func (s *Server) handleNormalizeDraft(w http.ResponseWriter, r *http.Request) {
	var fields receipt.Fields
	if err := decodeBody(r, &fields); err != nil {
		badRequest(w, "Invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.service.NewDraft(fields))
}

// handleCalculateDraft recomputes the derived totals of a draft
func (s *Server) handleCalculateDraft(w http.ResponseWriter, r *http.Request) {
	var d receipt.Draft
	if err := decodeBody(r, &d); err != nil {
		badRequest(w, "Invalid JSON body")
		return
	}
	if len(d.Items) == 0 {
		d.Items = []receipt.ItemInput{{}}
	}
	d.Recalculate()
	writeJSON(w, http.StatusOK, &d)
}

// handleScan stores an upload and returns the extracted draft
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		badRequest(w, fmt.Sprintf("Error parsing form. Maximum size is %dMB.", s.cfg.MaxUploadBytes>>20))
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, err)
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(header.Filename)
	}

	d, err := s.service.Scan(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Could not read the receipt. Please fill it in manually."})
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

// handleListReceipts returns the owner's receipts, optionally filtered
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	q, err := queryFrom(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	records, err := s.service.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	if text := r.URL.Query().Get("q"); strings.TrimSpace(text) != "" {
		records = analytics.Search(records, text, s.cfg.Locale)
	}
	writeJSON(w, http.StatusOK, records)
}

// handleSaveReceipt creates or updates a receipt from a draft
func (s *Server) handleSaveReceipt(w http.ResponseWriter, r *http.Request) {
	var d receipt.Draft
	if err := decodeBody(r, &d); err != nil {
		badRequest(w, "Invalid JSON body")
		return
	}
	d.Recalculate()
	rec, created, err := s.service.Save(r.Context(), ownerFrom(r.Context()), &d)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, s.detail(rec))
}

// handleGetReceipt returns a receipt with its derived details
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.detail(rec))
}

// handleEditDraft returns a stored receipt as an editable draft
func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.EditDraft(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleGetReceiptFile serves the captured image or PDF
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.File(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("Error writing file", "error", err)
	}
}

// handleDeleteReceipt removes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), ownerFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch filters the date-ordered receipts
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.List(r.Context(), receipt.Query{
		OwnerID: ownerFrom(r.Context()),
		OrderBy: receipt.OrderByDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Search(records, r.URL.Query().Get("q"), s.cfg.Locale))
}

// handleStats returns the aggregation view
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q, err := queryFrom(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	records, err := s.service.List(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Aggregate(records, s.now(), s.aggregateOptions()...))
}

// handleExport streams an XLSX workbook of the owner's receipts
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.List(r.Context(), receipt.Query{
		OwnerID: ownerFrom(r.Context()),
		OrderBy: receipt.OrderByDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	view := analytics.Aggregate(records, s.now(), s.aggregateOptions()...)
	data, err := export.WorkbookXLSX(records, view, s.cfg.Locale)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	http.ServeContent(w, r, "receipts.xlsx", s.now(), bytes.NewReader(data))
}
