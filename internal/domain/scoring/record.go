// Package scoring computes a bounded health score from a nutrition record.
package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Nutrient names recognized by the default tables.
const (
	Calories      = "calories"
	Protein       = "protein"
	Fat           = "fat"
	Carbohydrates = "carbohydrates"
	Fiber         = "fiber"
	Sugar         = "sugar"
	Sodium        = "sodium"
	Potassium     = "potassium"
	Calcium       = "calcium"
	Iron          = "iron"
	VitaminA      = "vitamin_a"
	VitaminC      = "vitamin_c"
	VitaminD      = "vitamin_d"
)

// Side-channel keys carried next to the nutrients.
const (
	keyIsRecipe    = "is_recipe"
	keyIsValidFood = "is_valid_food"
	keyInsight     = "insight"

	// totalKey names the sub-field read from grouped nutrients.
	totalKey     = "total"
	defaultTotal = "0g"
)

// Kind tags the shape of a nutrient entry.
type Kind uint8

const (
	// KindScalar is a single measurement such as "12g".
	KindScalar Kind = iota
	// KindComposite is a group such as fat{total, saturated, ...}.
	KindComposite
	// KindMalformed is anything else the upstream produced.
	KindMalformed
)

// Value is one nutrient entry: either a scalar measurement or a composite
// group. Composite entries are always resolved through their "total" part.
type Value struct {
	kind   Kind
	scalar string
	parts  map[string]string
}

// Scalar builds a scalar entry.
func Scalar(s string) Value {
	return Value{kind: KindScalar, scalar: s}
}

// Composite builds a grouped entry. The parts map is copied.
func Composite(parts map[string]string) Value {
	cp := make(map[string]string, len(parts))
	for k, v := range parts {
		cp[k] = v
	}
	return Value{kind: KindComposite, parts: cp}
}

// Kind reports the entry shape.
func (v Value) Kind() Kind { return v.kind }

// Total returns the measurement used for scoring: the scalar itself, or the
// composite's total part ("0g" when absent).
func (v Value) Total() string {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindComposite:
		if t, ok := v.parts[totalKey]; ok {
			return t
		}
		return defaultTotal
	default:
		return ""
	}
}

// Part returns a named sub-field of a composite entry.
func (v Value) Part(name string) (string, bool) {
	if v.kind != KindComposite {
		return "", false
	}
	p, ok := v.parts[name]
	return p, ok
}

// UnmarshalJSON accepts a string, a number or an object of strings/numbers.
// Other shapes decode as KindMalformed instead of failing the whole record.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = Value{kind: KindMalformed}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode nutrient string: %w", err)
		}
		*v = Scalar(s)
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode nutrient group: %w", err)
		}
		parts := make(map[string]string, len(raw))
		for k, r := range raw {
			s, ok := scalarText(r)
			if !ok {
				*v = Value{kind: KindMalformed}
				return nil
			}
			parts[k] = s
		}
		*v = Value{kind: KindComposite, parts: parts}
	default:
		if s, ok := scalarText(data); ok {
			*v = Scalar(s)
			return nil
		}
		*v = Value{kind: KindMalformed}
	}
	return nil
}

// MarshalJSON writes the entry back in the shape it was read.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindScalar:
		return json.Marshal(v.scalar)
	case KindComposite:
		return json.Marshal(v.parts)
	default:
		return []byte("null"), nil
	}
}

// scalarText renders a JSON string or number as text.
func scalarText(r json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(r, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// Record is a nutrition-info record as produced by the upstream lookup.
type Record struct {
	// Nutrients maps nutrient name to its measurement.
	Nutrients map[string]Value
	// IsRecipe marks prepared dishes; raw ingredients are scored with the
	// ingredient rules.
	IsRecipe bool
	// IsValidFood is nil when the upstream did not say; nil means valid.
	IsValidFood *bool
	// Insight is a one-line description. Never scored.
	Insight string
}

// Valid reports whether the record describes a real food item.
func (r Record) Valid() bool {
	return r.IsValidFood == nil || *r.IsValidFood
}

// Get returns the entry for a nutrient.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.Nutrients[name]
	return v, ok
}

// UnmarshalJSON reads the flat upstream shape where nutrients and the side
// channels share one object.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode nutrition record: %w", err)
	}
	out := Record{Nutrients: make(map[string]Value, len(raw))}
	for key, msg := range raw {
		switch key {
		case keyIsRecipe:
			b, err := decodeFlag(msg)
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			out.IsRecipe = b
		case keyIsValidFood:
			if string(bytes.TrimSpace(msg)) == "null" {
				continue
			}
			b, err := decodeFlag(msg)
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			out.IsValidFood = &b
		case keyInsight:
			if s, ok := scalarText(msg); ok {
				out.Insight = s
			}
		default:
			var v Value
			if err := v.UnmarshalJSON(msg); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			out.Nutrients[key] = v
		}
	}
	*r = out
	return nil
}

// MarshalJSON writes the flat upstream shape.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Nutrients)+3)
	for k, v := range r.Nutrients {
		out[k] = v
	}
	out[keyIsRecipe] = r.IsRecipe
	out[keyIsValidFood] = r.Valid()
	out[keyInsight] = r.Insight
	return json.Marshal(out)
}

// decodeFlag accepts a JSON bool or a "true"/"false" string.
func decodeFlag(msg json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(msg, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return false, err
	}
	return strconv.ParseBool(s)
}
