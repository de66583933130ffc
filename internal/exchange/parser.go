package exchange

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// decodeJSON unmarshals raw JSON with number preservation: numeric fields
// stay json.Number so they convert losslessly into decimals.
func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// toDecimal converts a venue numeric field (JSON number or numeric
// string) to an exact decimal. Empty and nil values are zero.
func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		if val == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(val.String())
	case string:
		if val == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(val)
	case decimal.Decimal:
		return val, nil
	default:
		return decimal.Zero, &ParserError{Detail: "non-numeric field"}
	}
}

// optionalDecimal treats missing, blank, and zero values as absent.
func optionalDecimal(v any) (*decimal.Decimal, error) {
	d, err := toDecimal(v)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}

// numField pulls a numeric map entry, defaulting missing fields to zero.
func numField(m map[string]any, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok {
		return decimal.Zero, nil
	}
	return toDecimal(v)
}

// strField pulls a string map entry, stringifying numeric IDs.
func strField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
