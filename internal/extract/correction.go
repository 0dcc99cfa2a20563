package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/aurelia-jewels/po-extractor/internal/llm"
	"github.com/aurelia-jewels/po-extractor/internal/po"
)

// correctCount runs the single correction pass: one model call asking for
// removal of non-item rows and merging of duplicates, never invention of new
// items. Header fields are restored from the original record afterward so
// the pass cannot re-derive them. The caller enforces the exact-count
// postcondition.
func (o *Orchestrator) correctCount(ctx context.Context, rid string, rec *po.Record, expectedCount int) (*po.Record, error) {
	start := time.Now()
	o.Logger.Info("extract.correction.start",
		"req_id", rid, "got", len(rec.Items), "expected", expectedCount)

	prompt := llm.CorrectionSystemPrompt + "\n\n" + llm.BuildCorrectionPrompt(rec, expectedCount)
	raw, err := o.Service.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("correction call: %w", err)
	}

	dec, err := o.decodeRecord(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("correction response: %w", err)
	}
	corrected := dec.record

	// Header metadata always comes from the original extraction.
	if rec.ClientName != "" {
		corrected.ClientName = rec.ClientName
	}
	if rec.InvoiceNumber != "" {
		corrected.InvoiceNumber = rec.InvoiceNumber
	}
	if rec.InvoiceDate != "" {
		corrected.InvoiceDate = rec.InvoiceDate
	}
	if rec.TotalValue != nil {
		corrected.TotalValue = rec.TotalValue
	}
	corrected.TotalEntries = len(corrected.Items)

	o.Logger.Info("extract.correction.done",
		"req_id", rid, "items", len(corrected.Items),
		"elapsed_ms", time.Since(start).Milliseconds())
	return &corrected, nil
}
