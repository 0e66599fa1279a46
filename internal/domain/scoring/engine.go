package scoring

import (
	"context"
	"math"

	"github.com/okian/nutriscore/pkg/logger"
)

// Fixed results that bypass aggregation.
const (
	defaultScore   = 5.0
	defaultMessage = "Moderate nutritional value (limited data)"
	defaultColor   = "#eab308"

	invalidScore   = 0
	invalidMessage = "Not a valid food item"
	invalidColor   = "#6b7280"
)

// HealthScore is the engine output embedded in API responses.
type HealthScore struct {
	Score   float64 `json:"score"`
	Message string  `json:"message"`
	Color   string  `json:"color"`
}

// DefaultHealthScore is returned when no nutrient could be scored.
func DefaultHealthScore() HealthScore {
	return HealthScore{Score: defaultScore, Message: defaultMessage, Color: defaultColor}
}

// InvalidFoodScore is returned for records flagged as not being food.
func InvalidFoodScore() HealthScore {
	return HealthScore{Score: invalidScore, Message: invalidMessage, Color: invalidColor}
}

// Outcome tells how a report was produced.
type Outcome string

const (
	OutcomeScored    Outcome = "scored"
	OutcomeDefault   Outcome = "default"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeRecovered Outcome = "recovered"
)

// Contribution is one scored nutrient.
type Contribution struct {
	Nutrient string  `json:"nutrient"`
	Value    float64 `json:"value"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
}

// Report is a HealthScore plus the breakdown that produced it.
type Report struct {
	HealthScore
	Outcome       Outcome        `json:"outcome"`
	Class         string         `json:"food_class,omitempty"`
	Contributions []Contribution `json:"contributions,omitempty"`
	Unparsable    []string       `json:"unparsable,omitempty"`
}

// Engine scores nutrition records against immutable reference tables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	ranges   *RangeTable
	feedback *FeedbackTable
	policy   compiledPolicy
	logger   logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRanges replaces the reference range table.
func WithRanges(t *RangeTable) Option {
	return func(e *Engine) {
		if t != nil {
			e.ranges = t
		}
	}
}

// WithFeedback replaces the feedback tiers.
func WithFeedback(t *FeedbackTable) Option {
	return func(e *Engine) {
		if t != nil {
			e.feedback = t
		}
	}
}

// WithPolicy replaces the scoring policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = compilePolicy(p)
	}
}

// WithLogger sets the logger used for scoring warnings.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine builds an engine with the reference tables and policy unless
// overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		ranges:   DefaultRanges(),
		feedback: DefaultFeedback(),
		policy:   compilePolicy(DefaultPolicy()),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculateHealthScore scores a record. It never fails: malformed values
// count as zero, a record with nothing scoreable gets DefaultHealthScore and
// internal faults are recovered into DefaultHealthScore.
func (e *Engine) CalculateHealthScore(ctx context.Context, r Record) HealthScore {
	return e.Evaluate(ctx, r).HealthScore
}

// Evaluate is CalculateHealthScore with the per-nutrient breakdown.
func (e *Engine) Evaluate(ctx context.Context, r Record) (rep Report) {
	defer func() {
		if p := recover(); p != nil {
			e.log().Warn(ctx, "scoring fault recovered", logger.Any("panic", p))
			rep = Report{HealthScore: DefaultHealthScore(), Outcome: OutcomeRecovered}
		}
	}()

	if !r.Valid() {
		return Report{HealthScore: InvalidFoodScore(), Outcome: OutcomeInvalid}
	}

	class := ClassOf(r)
	rep.Class = class.String()

	var sum, total float64
	for _, name := range e.ranges.names {
		entry, ok := r.Nutrients[name]
		if !ok {
			continue
		}
		v, err := ExtractValue(entry)
		if err != nil {
			e.log().Warn(ctx, "nutrient value treated as zero",
				logger.String("nutrient", name),
				logger.Error(err),
			)
			rep.Unparsable = append(rep.Unparsable, name)
		}
		rg := e.ranges.ranges[name]
		s := e.policy.score(name, v, rg, class)
		w := math.Abs(rg.Weight)
		sum += s * w
		total += w
		rep.Contributions = append(rep.Contributions, Contribution{
			Nutrient: name,
			Value:    v,
			Score:    s,
			Weight:   rg.Weight,
		})
	}

	if total == 0 {
		rep.HealthScore = DefaultHealthScore()
		rep.Outcome = OutcomeDefault
		return rep
	}

	score := math.Max(e.policy.MinScore, math.Min(e.policy.MaxScore, sum/total))
	score = math.Round(score*10) / 10
	tier := e.feedback.Lookup(score)
	rep.HealthScore = HealthScore{Score: score, Message: tier.Message, Color: tier.Color}
	rep.Outcome = OutcomeScored
	return rep
}

// ScoreNutrient scores a single value for the named nutrient. ok is false
// when the nutrient is not in the range table.
func (e *Engine) ScoreNutrient(name string, v float64, class FoodClass) (float64, bool) {
	rg, ok := e.ranges.Lookup(name)
	if !ok {
		return 0, false
	}
	return e.policy.score(name, v, rg, class), true
}

// Feedback returns the tier for a final score.
func (e *Engine) Feedback(score float64) Tier {
	return e.feedback.Lookup(score)
}

// Ranges returns the range table in use.
func (e *Engine) Ranges() *RangeTable { return e.ranges }

// Policy returns the policy in use.
func (e *Engine) Policy() Policy { return e.policy.Policy }

func (e *Engine) log() logger.Logger {
	if e == nil || e.logger == nil {
		return logger.Nop()
	}
	return e.logger
}
