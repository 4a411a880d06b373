package invoicing

import (
	"strings"

	"github.com/rezonia/trendyol-invoicer/internal/model"
)

const postalCodeLength = 6

// NormalizeCity returns the city Oblio expects for an invoice address.
// Bucharest addresses are mapped to their sector ("Sector 1".."Sector 6") using the first
// two digits of the postal code; anything else keeps the marketplace city.
func NormalizeCity(addr model.InvoiceAddress, bucharestCountyID int64) string {
	if addr.CountyID != bucharestCountyID {
		return addr.City
	}
	if sector, ok := sectorFromPostalCode(addr.PostalCode); ok {
		return sector
	}
	return addr.City
}

func sectorFromPostalCode(code string) (string, bool) {
	if len(code) != postalCodeLength {
		return "", false
	}
	if code[0] != '0' || code[1] < '1' || code[1] > '6' {
		return "", false
	}
	return "Sector " + string(code[1]), true
}

// joinNonEmpty joins the trimmed, non-empty parts with a single space
func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
