package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-jewels/po-extractor/internal/po"
)

func TestAggregateSortsByStartPage(t *testing.T) {
	// completion order reversed relative to page order
	results := []chunkResult{
		{
			rng: po.PageRange{StartPage: 11, EndPage: 20},
			rec: po.Record{InvoiceNumber: "PO-7", Items: items("B-1", "B-2")},
		},
		{
			rng: po.PageRange{StartPage: 1, EndPage: 10},
			rec: po.Record{ClientName: "Acme Corp", InvoiceNumber: "PO-7", Items: items("A-1")},
		},
	}

	rec := aggregate(results)
	require.Len(t, rec.Items, 3)
	assert.Equal(t, "A-1", rec.Items[0].VendorStyleCode)
	assert.Equal(t, "B-1", rec.Items[1].VendorStyleCode)
	assert.Equal(t, "B-2", rec.Items[2].VendorStyleCode)
	assert.Equal(t, 3, rec.TotalEntries)
	assert.Equal(t, "Acme Corp", rec.ClientName)
	assert.Equal(t, "PO-7", rec.InvoiceNumber)
}

func TestAggregateSumsTotalValue(t *testing.T) {
	results := []chunkResult{
		{rng: po.PageRange{StartPage: 1}, rec: po.Record{TotalValue: floatp(100.5)}},
		{rng: po.PageRange{StartPage: 2}, rec: po.Record{}},
		{rng: po.PageRange{StartPage: 3}, rec: po.Record{TotalValue: floatp(49.5)}},
	}

	rec := aggregate(results)
	require.NotNil(t, rec.TotalValue)
	assert.Equal(t, float64(150), *rec.TotalValue)
}

func TestAggregateNoTotalsStaysNil(t *testing.T) {
	rec := aggregate([]chunkResult{
		{rng: po.PageRange{StartPage: 1}, rec: po.Record{Items: items("A-1")}},
	})
	assert.Nil(t, rec.TotalValue)
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	results := []chunkResult{
		{rng: po.PageRange{StartPage: 2}, rec: po.Record{Items: items("B-1")}},
		{rng: po.PageRange{StartPage: 1}, rec: po.Record{Items: items("A-1")}},
	}
	_ = aggregate(results)
	assert.Equal(t, 2, results[0].rng.StartPage)
	assert.Equal(t, 1, results[1].rng.StartPage)
}
