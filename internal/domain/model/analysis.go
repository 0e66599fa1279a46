package model

import (
	"time"

	"github.com/okian/nutriscore/internal/domain/scoring"
)

// Source tells where an analysis request came from.
type Source string

const (
	SourceText   Source = "text"
	SourceImage  Source = "image"
	SourceDirect Source = "direct"
)

// Video is a recipe video suggestion.
type Video struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	ID    string `json:"id"`
}

// Analysis is the result of one nutrition request.
type Analysis struct {
	ID            string              `json:"id"`
	FoodItem      string              `json:"food_item"`
	Quantity      float64             `json:"quantity"`
	Unit          string              `json:"unit"`
	NutritionInfo scoring.Record      `json:"nutrition_info"`
	Insight       string              `json:"insight"`
	IsRecipe      bool                `json:"is_recipe"`
	IsValidFood   bool                `json:"is_valid_food"`
	RecipeURLs    []Video             `json:"recipe_urls"`
	HealthScore   scoring.HealthScore `json:"health_score"`
	ImageKey      string              `json:"image_key,omitempty"`
	Status        string              `json:"status"`
}

// StatusSuccess is the status of every completed analysis.
const StatusSuccess = "success"

// HistoryEntry is the persisted summary of an analysis. It is the payload
// carried by the history queue.
type HistoryEntry struct {
	ID          string    `json:"id"`
	FoodItem    string    `json:"food_item"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Score       float64   `json:"score"`
	Message     string    `json:"message"`
	Color       string    `json:"color"`
	IsRecipe    bool      `json:"is_recipe"`
	IsValidFood bool      `json:"is_valid_food"`
	Source      Source    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry summarizes the analysis for history.
func (a *Analysis) Entry(src Source, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:          a.ID,
		FoodItem:    a.FoodItem,
		Quantity:    a.Quantity,
		Unit:        a.Unit,
		Score:       a.HealthScore.Score,
		Message:     a.HealthScore.Message,
		Color:       a.HealthScore.Color,
		IsRecipe:    a.IsRecipe,
		IsValidFood: a.IsValidFood,
		Source:      src,
		CreatedAt:   at.UTC(),
	}
}

// FoodRank is a food's best recorded score.
type FoodRank struct {
	FoodItem  string  `json:"food_item"`
	BestScore float64 `json:"best_score"`
	Analyses  int     `json:"analyses"`
}
