package scoring

import "math"

// PolicyVersion identifies the reference scoring policy.
const PolicyVersion = "range-v2"

// FoodClass separates prepared dishes from raw ingredients.
type FoodClass uint8

const (
	// ClassRecipe is a prepared dish; the generic formula applies.
	ClassRecipe FoodClass = iota
	// ClassIngredient is a raw or simple food such as a fruit.
	ClassIngredient
)

func (c FoodClass) String() string {
	if c == ClassIngredient {
		return "ingredient"
	}
	return "recipe"
}

// ClassOf is the single place that decides which rule set a record gets.
func ClassOf(r Record) FoodClass {
	if r.IsRecipe {
		return ClassRecipe
	}
	return ClassIngredient
}

// IngredientRules override the generic formula for raw ingredients.
type IngredientRules struct {
	// Relaxed nutrients occur naturally in raw food (fruit sugar, starch).
	// Their upper bound is widened by RelaxedLimitFactor and their score
	// never drops below the policy floor.
	Relaxed            []string
	RelaxedLimitFactor float64
	// Boosted nutrients never score below BoostFloor.
	Boosted    []string
	BoostFloor float64
}

// Policy holds every constant of the scoring formula.
type Policy struct {
	Version string
	// Floor is the in-range score at the unfavorable end of the band,
	// Ceiling at the favorable end.
	Floor   float64
	Ceiling float64
	// Baseline is the score a positive nutrient approaches from below as
	// it reaches min.
	Baseline float64
	// MinScore and MaxScore bound per-nutrient and final scores.
	MinScore float64
	MaxScore float64
	// PenaltySteepening is the multiple of max after which penalty decay
	// becomes quadratic.
	PenaltySteepening float64
	Ingredient        IngredientRules
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() Policy {
	return Policy{
		Version:           PolicyVersion,
		Floor:             5,
		Ceiling:           10,
		Baseline:          5,
		MinScore:          1,
		MaxScore:          10,
		PenaltySteepening: 2,
		Ingredient: IngredientRules{
			Relaxed:            []string{Sugar, Carbohydrates},
			RelaxedLimitFactor: 2,
			Boosted:            []string{Fiber, VitaminC, Potassium},
			BoostFloor:         7,
		},
	}
}

// compiledPolicy is a Policy with its name lists turned into sets.
type compiledPolicy struct {
	Policy
	relaxed map[string]struct{}
	boosted map[string]struct{}
}

func compilePolicy(p Policy) compiledPolicy {
	c := compiledPolicy{
		Policy:  p,
		relaxed: make(map[string]struct{}, len(p.Ingredient.Relaxed)),
		boosted: make(map[string]struct{}, len(p.Ingredient.Boosted)),
	}
	for _, n := range p.Ingredient.Relaxed {
		c.relaxed[n] = struct{}{}
	}
	for _, n := range p.Ingredient.Boosted {
		c.boosted[n] = struct{}{}
	}
	c.Ingredient.Relaxed = append([]string(nil), p.Ingredient.Relaxed...)
	c.Ingredient.Boosted = append([]string(nil), p.Ingredient.Boosted...)
	return c
}

// score returns the per-nutrient score for value v.
func (p compiledPolicy) score(name string, v float64, r Range, class FoodClass) float64 {
	if class == ClassIngredient {
		if _, ok := p.relaxed[name]; ok {
			widened := r
			if p.Ingredient.RelaxedLimitFactor > 1 {
				widened.Max = r.Max * p.Ingredient.RelaxedLimitFactor
			}
			return math.Max(p.generic(v, widened), p.Floor)
		}
		if _, ok := p.boosted[name]; ok {
			return math.Max(p.generic(v, r), p.Ingredient.BoostFloor)
		}
	}
	return p.generic(v, r)
}

// generic is the range formula shared by every nutrient.
func (p compiledPolicy) generic(v float64, r Range) float64 {
	switch {
	case v < r.Min:
		if r.Penalty() {
			return p.MaxScore
		}
		return math.Min(v/r.Min, 1) * p.Baseline
	case v <= r.Max:
		frac := 1.0
		if span := r.Max - r.Min; span > 0 {
			frac = (v - r.Min) / span
		}
		if r.Penalty() {
			return p.Ceiling - frac*(p.Ceiling-p.Floor)
		}
		return p.Floor + frac*(p.Ceiling-p.Floor)
	default:
		if !r.Penalty() {
			return math.Max(p.MinScore, p.Ceiling*r.Max/v)
		}
		s := p.Floor * r.Max / v
		if limit := p.PenaltySteepening * r.Max; limit > 0 && v > limit {
			s *= limit / v
		}
		return math.Max(p.MinScore, s)
	}
}
