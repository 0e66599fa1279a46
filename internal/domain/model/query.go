// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Units accepted for a food query.
var validUnits = map[string]struct{}{
	"units": {},
	"plate": {},
	"grams": {},
	"ml":    {},
	"bowl":  {},
	"cup":   {},
	"tbsp":  {},
	"tsp":   {},
}

// ValidUnits returns the accepted units in sorted order.
func ValidUnits() []string {
	out := make([]string, 0, len(validUnits))
	for u := range validUnits {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ValidUnit reports whether u is an accepted unit.
func ValidUnit(u string) bool {
	_, ok := validUnits[u]
	return ok
}

// Quantity is the amount of food as sent by clients: either a JSON number or
// a numeric string.
type Quantity string

// UnmarshalJSON accepts numbers and strings.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	if string(data) == "null" {
		*q = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Anything else is kept verbatim and rejected by Validate.
		*q = Quantity(data)
		return nil
	}
	*q = Quantity(n.String())
	return nil
}

// Float parses the quantity. ok is false for non-numeric, non-finite or
// non-positive values.
func (q Quantity) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(q)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// FoodQuery asks for the nutrition of an amount of food.
type FoodQuery struct {
	FoodItem string   `json:"food_item"`
	Quantity Quantity `json:"quantity"`
	Unit     string   `json:"unit"`
}

// Normalize lower-cases and trims the food item and unit.
func (q FoodQuery) Normalize() FoodQuery {
	q.FoodItem = strings.ToLower(strings.TrimSpace(q.FoodItem))
	q.Unit = strings.ToLower(strings.TrimSpace(q.Unit))
	q.Quantity = Quantity(strings.TrimSpace(string(q.Quantity)))
	return q
}

// Validate reports the first problem with the query. Messages are meant for
// API clients.
func (q FoodQuery) Validate() error {
	if q.FoodItem == "" {
		return &ValidationError{Message: MsgFoodRequired}
	}
	if _, ok := q.Quantity.Float(); !ok {
		return &ValidationError{Message: MsgInvalidQuantity}
	}
	if q.Unit == "" {
		return &ValidationError{Message: MsgUnitRequired}
	}
	if !ValidUnit(q.Unit) {
		return &ValidationError{Message: MsgInvalidUnit}
	}
	return nil
}

// Amount returns the parsed quantity, 0 when invalid.
func (q FoodQuery) Amount() float64 {
	f, _ := q.Quantity.Float()
	return f
}

// CacheKey identifies equivalent queries. The quantity is canonicalized so
// "2", "2.0" and 2 share a key.
func (q FoodQuery) CacheKey() string {
	n := q.Normalize()
	amount := strconv.FormatFloat(n.Amount(), 'f', -1, 64)
	return n.FoodItem + "|" + amount + "|" + n.Unit
}
