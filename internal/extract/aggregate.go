package extract

import (
	"slices"

	"github.com/aurelia-jewels/po-extractor/internal/po"
)

// aggregate folds per-chunk records into one, independent of the order the
// chunk calls completed in: results are sorted by ascending start page so
// item order in the final array matches document order. Header metadata is
// expected to repeat identically across chunks, so the first non-empty value
// wins; total_value is summed.
func aggregate(results []chunkResult) *po.Record {
	sorted := make([]chunkResult, len(results))
	copy(sorted, results)
	slices.SortStableFunc(sorted, func(a, b chunkResult) int {
		return a.rng.StartPage - b.rng.StartPage
	})

	var rec po.Record
	var total float64
	haveTotal := false
	for _, r := range sorted {
		if rec.ClientName == "" {
			rec.ClientName = r.rec.ClientName
		}
		if rec.InvoiceNumber == "" {
			rec.InvoiceNumber = r.rec.InvoiceNumber
		}
		if rec.InvoiceDate == "" {
			rec.InvoiceDate = r.rec.InvoiceDate
		}
		if r.rec.TotalValue != nil {
			total += *r.rec.TotalValue
			haveTotal = true
		}
		rec.Items = append(rec.Items, r.rec.Items...)
	}
	if haveTotal {
		rec.TotalValue = &total
	}
	rec.TotalEntries = len(rec.Items)
	return &rec
}
