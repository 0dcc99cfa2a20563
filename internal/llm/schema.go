package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRecordJSONSchema returns the canonical purchase-order record schema
// (draft 2020-12 subset) as a generic map. It enforces structure only: items
// must be an array of objects with the canonical keys. Enum membership is a
// prompting concern, not validated here.
func BuildRecordJSONSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}

	itemProps := map[string]any{
		"VendorStyleCode":               map[string]any{"type": "string"},
		"Category":                      map[string]any{"type": "string"},
		"ItemSize":                      nullableString,
		"OrderQty":                      map[string]any{"type": "number"},
		"Metal":                         map[string]any{"type": "string"},
		"Tone":                          map[string]any{"type": "string"},
		"ItemPoNo":                      map[string]any{"type": "string"},
		"ItemRefNo":                     map[string]any{"type": "string"},
		"StockType":                     nullableString,
		"MakeType":                      nullableString,
		"CustomerProductionInstruction": nullableString,
		"SpecialRemarks":                nullableString,
		"DesignProductionInstruction":   nullableString,
		"StampInstruction":              nullableString,
	}

	return map[string]any{
		"type":     "object",
		"required": []string{"client_name", "invoice_number", "total_entries", "items"},
		"properties": map[string]any{
			"total_value":    map[string]any{"type": []string{"number", "null"}},
			"client_name":    map[string]any{"type": "string"},
			"invoice_number": map[string]any{"type": "string"},
			"invoice_date":   map[string]any{"type": "string"},
			"total_entries":  map[string]any{"type": "number"},
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"required":   []string{"VendorStyleCode", "OrderQty"},
					"properties": itemProps,
				},
			},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
