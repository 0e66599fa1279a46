package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Range is the healthy band for one nutrient per serving. A positive weight
// means more is better, a negative weight marks a penalty nutrient.
type Range struct {
	Min    float64 `koanf:"min" json:"min"`
	Max    float64 `koanf:"max" json:"max"`
	Weight float64 `koanf:"weight" json:"weight"`
}

// Penalty reports whether less of the nutrient is better.
func (r Range) Penalty() bool { return r.Weight < 0 }

func (r Range) validate() error {
	for _, f := range []float64{r.Min, r.Max, r.Weight} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidTable)
		}
	}
	switch {
	case r.Min < 0:
		return fmt.Errorf("%w: min %.2f below zero", ErrInvalidTable, r.Min)
	case r.Max < r.Min:
		return fmt.Errorf("%w: max %.2f below min %.2f", ErrInvalidTable, r.Max, r.Min)
	case r.Weight == 0:
		return fmt.Errorf("%w: zero weight", ErrInvalidTable)
	}
	return nil
}

// RangeTable is an immutable set of nutrient ranges. Names are kept sorted so
// aggregation always sums in the same order.
type RangeTable struct {
	ranges map[string]Range
	names  []string
}

// NewRangeTable validates and copies the given ranges.
func NewRangeTable(ranges map[string]Range) (*RangeTable, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no ranges", ErrInvalidTable)
	}
	t := &RangeTable{
		ranges: make(map[string]Range, len(ranges)),
		names:  make([]string, 0, len(ranges)),
	}
	for name, r := range ranges {
		if name == "" {
			return nil, fmt.Errorf("%w: empty nutrient name", ErrInvalidTable)
		}
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("nutrient %q: %w", name, err)
		}
		t.ranges[name] = r
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, nil
}

// DefaultRangeMap returns the reference ranges. Callers own the map.
func DefaultRangeMap() map[string]Range {
	return map[string]Range{
		Calories:      {Min: 100, Max: 500, Weight: 1.5},
		Protein:       {Min: 5, Max: 30, Weight: 2},
		Fat:           {Min: 5, Max: 20, Weight: 1},
		Carbohydrates: {Min: 15, Max: 60, Weight: 1},
		Fiber:         {Min: 3, Max: 10, Weight: 1.5},
		Sugar:         {Min: 0, Max: 10, Weight: -1.5},
		Sodium:        {Min: 0, Max: 400, Weight: -1},
		VitaminC:      {Min: 10, Max: 90, Weight: 0.5},
		Potassium:     {Min: 200, Max: 1000, Weight: 0.5},
	}
}

// DefaultRanges returns the reference range table.
func DefaultRanges() *RangeTable {
	t, err := NewRangeTable(DefaultRangeMap())
	if err != nil {
		panic(err) // static data
	}
	return t
}

// Lookup returns the range for a nutrient.
func (t *RangeTable) Lookup(name string) (Range, bool) {
	r, ok := t.ranges[name]
	return r, ok
}

// Names returns the scoreable nutrient names in aggregation order.
func (t *RangeTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of scoreable nutrients.
func (t *RangeTable) Len() int { return len(t.names) }

// Tier is one feedback band.
type Tier struct {
	Threshold float64 `json:"threshold"`
	Color     string  `json:"color"`
	Message   string  `json:"message"`
}

// FeedbackTable maps a final score to its tier. Tiers are held in descending
// threshold order.
type FeedbackTable struct {
	tiers []Tier
}

// NewFeedbackTable validates, copies and sorts the tiers.
func NewFeedbackTable(tiers []Tier) (*FeedbackTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: no feedback tiers", ErrInvalidTable)
	}
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	seen := make(map[float64]struct{}, len(out))
	for _, t := range out {
		if math.IsNaN(t.Threshold) || math.IsInf(t.Threshold, 0) {
			return nil, fmt.Errorf("%w: non-finite threshold", ErrInvalidTable)
		}
		if _, dup := seen[t.Threshold]; dup {
			return nil, fmt.Errorf("%w: duplicate threshold %.1f", ErrInvalidTable, t.Threshold)
		}
		seen[t.Threshold] = struct{}{}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Threshold > out[j].Threshold })
	return &FeedbackTable{tiers: out}, nil
}

// DefaultFeedback returns the reference tiers.
func DefaultFeedback() *FeedbackTable {
	t, err := NewFeedbackTable([]Tier{
		{Threshold: 8.0, Color: "#22c55e", Message: "Excellent nutritional value!"},
		{Threshold: 6.0, Color: "#3b82f6", Message: "Good nutritional value"},
		{Threshold: 4.0, Color: "#eab308", Message: "Moderate nutritional value"},
		{Threshold: 0.0, Color: "#ef4444", Message: "Limited nutritional value"},
	})
	if err != nil {
		panic(err) // static data
	}
	return t
}

// Lookup returns the first tier whose threshold is <= score, falling back to
// the lowest tier.
func (t *FeedbackTable) Lookup(score float64) Tier {
	for _, tier := range t.tiers {
		if score >= tier.Threshold {
			return tier
		}
	}
	return t.tiers[len(t.tiers)-1]
}

// Tiers returns a copy of the tiers in descending order.
func (t *FeedbackTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}
