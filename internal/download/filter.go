// Package download fetches issued invoice PDFs listed in the invoice link log
package download

import (
	"strconv"

	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// FilterLatest keeps one entry per invoice number, the one with the newest timestamp.
// The first occurrence order of invoice numbers is preserved.
func FilterLatest(entries []model.InvoiceLinkEntry) []model.InvoiceLinkEntry {
	index := make(map[string]int, len(entries))
	latest := make([]model.InvoiceLinkEntry, 0, len(entries))

	for _, e := range entries {
		i, seen := index[e.InvoiceNumber]
		if !seen {
			index[e.InvoiceNumber] = len(latest)
			latest = append(latest, e)
			continue
		}
		if e.Timestamp.After(latest[i].Timestamp) {
			latest[i] = e
		}
	}
	return latest
}

// LastDownloadedNumber returns the highest numeric invoice number in the download log, or 0
func LastDownloadedNumber(log []model.DownloadEntry) int64 {
	var max int64
	for _, e := range log {
		n, err := strconv.ParseInt(e.InvoiceNumber, 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max
}

// FilterNew keeps invoices numbered above last. Non-numeric invoice numbers are always kept.
// TODO: drop the threshold; invoices issued out of order below last are never downloaded and
// the download log already prevents duplicates.
func FilterNew(entries []model.InvoiceLinkEntry, last int64) []model.InvoiceLinkEntry {
	if last == 0 {
		return entries
	}
	kept := make([]model.InvoiceLinkEntry, 0, len(entries))
	for _, e := range entries {
		n, err := strconv.ParseInt(e.InvoiceNumber, 10, 64)
		if err != nil || n > last {
			kept = append(kept, e)
		}
	}
	return kept
}

// FilePrefix starts the name of every downloaded invoice PDF
const FilePrefix = "Trendyol_Factura_"

// FileName is the on-disk name of an invoice PDF
func FileName(invoiceNumber string) string {
	return FilePrefix + invoiceNumber + ".pdf"
}
