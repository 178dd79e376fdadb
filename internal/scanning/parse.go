package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// extractionSchema bounds what a model may return. Unknown keys are tolerated;
// the normalizer ignores them.
const extractionSchema = `{
  "type": "object",
  "properties": {
    "shopName":        {"type": ["string", "null"]},
    "shopBranch":      {"type": ["string", "null"]},
    "shopAddress":     {"type": ["string", "null"]},
    "shopPhone":       {"type": ["string", "null"]},
    "shopTaxId":       {"type": ["string", "null"]},
    "isVatRegistered": {"type": ["boolean", "null"]},
    "customerName":    {"type": ["string", "null"]},
    "customerAddress": {"type": ["string", "null"]},
    "customerPhone":   {"type": ["string", "null"]},
    "customerTaxId":   {"type": ["string", "null"]},
    "receiptNo":       {"type": ["string", "number", "null"]},
    "refNo":           {"type": ["string", "number", "null"]},
    "date":            {"type": ["string", "null"]},
    "category":        {"type": ["string", "null"]},
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "name":  {"type": ["string", "null"]},
          "qty":   {"type": ["string", "number", "null"]},
          "unit":  {"type": ["string", "null"]},
          "price": {"type": ["string", "number", "null"]}
        }
      }
    },
    "discountTotal": {"type": ["string", "number", "null"]},
    "serviceCharge": {"type": ["string", "number", "null"]},
    "shippingFee":   {"type": ["string", "number", "null"]},
    "vatAmount":     {"type": ["string", "number", "null"]},
    "total":         {"type": ["string", "number", "null"]}
  }
}`

var compiledSchema = jsonschema.MustCompileString("extraction.json", extractionSchema)

// parseFieldsJSON pulls the JSON object out of a model response, checks it
// against the extraction schema and returns it as a field map. Null values are
// dropped so they read as missing.
func parseFieldsJSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := compiledSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}

	fields := raw.(map[string]any)
	for k, v := range fields {
		if v == nil {
			delete(fields, k)
		}
	}
	return fields, nil
}
