package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aurelia-jewels/po-extractor/internal/po"
)

// promptBase is the fixed schema/task description for purchase-order
// extraction. Enum guidance lives here, not in parsing-time validation: the
// model is told the allowed values, the parser only guarantees structure.
const promptBase = `You are transforming a client's Purchase Order document (PDF or Excel) into my factory's canonical JSON schema.
The PO is FROM the client TO Aurelia Jewels (vendor). The buyer/client is the sender placing the order.

Goal: emit JSON only, matching the exact schema below and using the provided client-to-factory column mapping.

Output schema (use these exact keys):
{
  "total_value": number | null,
  "client_name": string,
  "invoice_number": string,
  "invoice_date": string,
  "total_entries": number,
  "items": [
    {
      "VendorStyleCode": string,
      "Category": string,
      "ItemSize": string | null,
      "OrderQty": number,
      "Metal": string,
      "Tone": string,
      "ItemPoNo": string,
      "ItemRefNo": string,
      "StockType": string | null,
      "MakeType": string | null,
      "CustomerProductionInstruction": string | null,
      "SpecialRemarks": string | null,
      "DesignProductionInstruction": string | null,
      "StampInstruction": string | null
    }
  ]
}

Mapping rules (very important):
- You will receive a client-specific mapping text. Each line looks like "ClientField -> OurField (instruction)".
- Use those rules to fill OUR canonical fields above. Ignore client columns that are not mapped.
- If a rule says to derive from description or convert to an enum, follow it verbatim.
- If a target field is not mapped or not present, set "" for strings or null for nullable fields, never invent data.
- Preserve numeric quantities as numbers (no commas). Treat missing numeric as 0.

Enum field constraints (CRITICAL - extract these primarily from the Description field and match to exact options):
- Category: one of "Ring", "Band", "Pendant", "Necklace", "Bracelet", "Earring", "Bangle". Match case-insensitively (e.g. "EARRINGS" -> "Earring"). If no match, use the extracted value as-is or "" if not present.
- Metal: one of "G09KT", "G10KT", "G14KT", "G18KT", "PT950", "S925". Map variations: "9KT" -> "G09KT", "14K" -> "G14KT", "18K" -> "G18KT", "Platinum"/"950" -> "PT950", "Silver"/"925" -> "S925". If no match, use the extracted value as-is.
- Tone: one of "Y", "R", "W", "YW", "RW", "RY". "Yellow" -> "Y", "Rose" -> "R", "White" -> "W", "Y/W" -> "YW", "R/W" -> "RW", "R/Y" -> "RY". If no match, use the extracted value as-is or "".
- StockType: one of "Normal", "Studded Gold Jewellery IC", "Studded Platinum Jewellery IC", "Plain Gold Jewellery IC", "Plain Platinum Jewellery IC", "Studded Semi Mount Gold Jewellery IC", "Studded Silver Jewellery IC", "Plain Silver Jewellery IC", "Studded Semi Mount Platinum Jewellery IC", "Gold Mount Jewellery IC", "Studded Combination Jewellery IC". Match on keywords (e.g. "Studded" + "Gold" -> "Studded Gold Jewellery IC"). If no match, use null.
- MakeType: one of "CNC", "HOLLOW TUBING", "1 PC CAST", "2 PC CAST", "MULTI CAST", "HIP HOP". Match case-insensitively. If no match, use null.

General guidance:
- Identify the buyer/client name from the PO header (not Aurelia Jewels). Extract the PO/Order/Invoice number from the header as invoice_number. Extract the PO/Order date if present; else leave "".
- Items are presented with serial numbers; extract every serial-numbered row. The count of items MUST match the serial-numbered rows, with no missing or extra items.
- Preserve the serial order of rows in the items array.
- Do not hallucinate or infer extra items; only output what exists.
- Return ONLY valid JSON following the schema; do not include prose or markdown.

STRICT COUNTING PROCEDURE (VERY IMPORTANT):
1) First, scan the document and identify all item rows by their serial numbers (Sr No, S.No, etc.). Do NOT invent serial numbers that are not visible in the document.
2) Then, build the "items" array with EXACTLY one item per serial number. If you realize a serial number is missing or duplicated, re-scan and fix BEFORE you output JSON.
3) Set "total_entries" to the length of the "items" array.`

// BuildExtractionPrompt composes the extraction instruction text: base schema,
// optional client-name hint, optional hard count constraint, optional verbatim
// mapping block. Pure function of its inputs so retries and the correction
// pass see comparably-scoped prompts.
func BuildExtractionPrompt(clientName, mappingText string, expectedItems *int) string {
	parts := []string{promptBase}

	if clientName != "" {
		parts = append(parts,
			"Client name hint: "+clientName+". Use this as client_name if it matches the PO header.")
	}

	if expectedItems != nil {
		parts = append(parts, fmt.Sprintf(
			"CRITICAL: This PO contains exactly %d items. "+
				"Your \"items\" array MUST have exactly %d entries. "+
				"Set \"total_entries\" to %d. Count carefully and match this number exactly.",
			*expectedItems, *expectedItems, *expectedItems))
	}

	if mappingText != "" {
		parts = append(parts,
			"Client mapping (apply these rules to populate the canonical fields above):\n"+
				strings.TrimSpace(mappingText))
	}

	parts = append(parts, "Respond with JSON only, no markdown or explanations.")
	return strings.Join(parts, "\n\n")
}

// BuildChunkInstructions scopes extraction to one page range. A per-range
// expected count is a hard constraint; otherwise a global total is stated so
// the model counts only the rows on these pages.
func BuildChunkInstructions(r po.PageRange, totalExpected *int) string {
	var countConstraint string
	switch {
	case r.ExpectedItems != nil:
		countConstraint = fmt.Sprintf(
			" This chunk MUST contain exactly %d items — no more, no less. Output exactly %d entries in \"items\".",
			*r.ExpectedItems, *r.ExpectedItems)
	case totalExpected != nil:
		countConstraint = fmt.Sprintf(
			" The full document has exactly %d items total across all chunks. "+
				"Extract only the item rows that appear on THESE pages (%d-%d); "+
				"count serial numbers on these pages and output exactly that many items. "+
				"Do not include header rows, subtotal rows, or blank rows as items.",
			*totalExpected, r.StartPage, r.EndPage)
	default:
		countConstraint = " Extract only data rows (serial-numbered item rows); " +
			"do not include header rows, subtotal rows, or blank rows as items."
	}

	return fmt.Sprintf(
		"\n\nIMPORTANT — PDF extraction (Pages %d-%d): "+
			"This is a PDF file containing pages %d to %d of the original document. "+
			"(1) Identify the client name, PO number, and date from the header (if present on these pages). "+
			"(2) Locate the item table on these pages and identify the column headers. "+
			"(3) For EVERY data row (each serial-numbered line), read each cell under the correct column and map to our schema using the client mapping. "+
			"Extract every item row from these pages only; do not skip rows and do not add extra rows.%s"+
			" For each item, use ONLY that row's cell values — do not copy or carry over values from other rows. "+
			"ItemPoNo is the same for all items (from header); all other fields must come from the specific row only.",
		r.StartPage, r.EndPage, r.StartPage, r.EndPage, countConstraint)
}

// BuildPDFInstructions is the single-shot whole-document variant.
func BuildPDFInstructions() string {
	return "\n\nIMPORTANT — PDF extraction: This is a PDF file. " +
		"(1) Identify the client name, PO number, and date from the header. " +
		"(2) Locate the item table on each page and identify the column headers. " +
		"(3) For EVERY data row (each serial-numbered line), read each cell under the correct column and map to our schema using the client mapping. " +
		"Extract EVERY item row across all pages; do not skip rows. " +
		"For each item, use ONLY that row's cell values — do not copy or carry over values from other rows. " +
		"ItemPoNo is the same for all items (from header); all other fields must come from the specific row only."
}

// BuildExcelInstructions is the spreadsheet variant; the workbook text is
// appended by the caller.
func BuildExcelInstructions() string {
	return "\n\nIMPORTANT: This is an Excel file. The file content is provided below as text. " +
		"Read all worksheets, identify header rows, and extract all data rows as items. " +
		"Pay special attention to column names and map them according to the mapping rules provided."
}

// BuildCorrectionPrompt asks the model to reconcile a miscounted record to the
// exact expected count by removing non-item rows and merging duplicates only.
// Header fields are preserved from the input, never re-derived.
func BuildCorrectionPrompt(rec *po.Record, expectedCount int) string {
	got := len(rec.Items)
	input, _ := json.Marshal(rec)

	return fmt.Sprintf(`You are given a JSON object that was extracted from a Purchase Order. The extraction has %d entries in "items", but the PO actually has exactly %d item rows.

Your task:
1. Identify and REMOVE any entries that are NOT real item rows: e.g. header row, column titles, subtotal/total rows, blank rows, or duplicate rows (same VendorStyleCode + OrderQty + key fields as another row).
2. If there are continuation rows (same serial number / same item split across lines), merge them into a single item using the most complete information.
3. Keep only the real, distinct item rows. Preserve the exact order of items as they appear in the document.
4. Output exactly %d items — no more, no less. Set "total_entries" to %d.
5. Preserve client_name, invoice_number, invoice_date, total_value from the input. Only change the "items" array and "total_entries".

Be accurate: do not remove real items. Prefer removing rows that look like headers, subtotals, or duplicates. When in doubt, keep rows that have valid VendorStyleCode and OrderQty and look like product lines.

Return ONLY valid JSON matching this schema (same as input):
{
  "total_value": number | null,
  "client_name": string,
  "invoice_number": string,
  "invoice_date": string,
  "total_entries": number,
  "items": [ { "VendorStyleCode", "Category", "ItemSize", "OrderQty", "Metal", "Tone", "ItemPoNo", "ItemRefNo", "StockType", "MakeType", "CustomerProductionInstruction", "SpecialRemarks", "DesignProductionInstruction", "StampInstruction" }, ... ]
}

Input JSON to correct:
%s`, got, expectedCount, expectedCount, expectedCount, input)
}

// CorrectionSystemPrompt frames the correction call.
const CorrectionSystemPrompt = "You correct PO extraction JSON so the items array has exactly the expected count. " +
	"You remove duplicates and non-item rows only. Output valid JSON only."
