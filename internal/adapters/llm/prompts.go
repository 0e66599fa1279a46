package llm

import "fmt"

const (
	suggestionsTemperature = 0.5
	nutritionTemperature   = 0.3
	identifyTemperature    = 0.2
)

const suggestionsPrompt = "Provide a mix of list of top 20 popular dishes eaten in breakfast, lunch, and dinner mostly in Indian households. " +
	"IMPORTANT: Respond only with JSON in this exact format without any explanation or extra text or numbers: " +
	`{"suggestions": [<string>, ...]}`

const nutritionSystemPrompt = "You are a highly accurate and reliable nutritionist providing data from reputable sources, such as the USDA. " +
	"Provide nutritional information in JSON format for calories, protein, fat, carbohydrates, fiber, sugar, sodium, vitamin A, vitamin C, calcium, and iron " +
	"with units based on the specified quantity and unit. " +
	"Ensure that values are accurate, consistent, and scaled proportionally from a standard serving size. " +
	"Include an insightful one-sentence description of the food item. " +
	"If the food item is a prepared dish/recipe (not a simple ingredient), set is_recipe to true. " +
	"If the food item is not a valid food item, set is_valid_food to false. " +
	"IMPORTANT: Respond only with valid JSON in this exact format without any extra text: " +
	`{"calories": <string>, "protein": <string>, "fat": <string>, "carbohydrates": <string>, "fiber": <string>, ` +
	`"sugar": <string>, "sodium": <string>, "vitamin_a": <string>, "vitamin_c": <string>, "calcium": <string>, ` +
	`"iron": <string>, "insight": <string>, "is_recipe": <boolean>, "is_valid_food": <boolean>}`

const identifySystemPrompt = "You identify food in photos. Name the main dish or ingredient and estimate the portion shown. " +
	"Use one of these units: %s. " +
	"IMPORTANT: Respond only with JSON in this exact format without any extra text: " +
	`{"food_item": <string>, "quantity": <number>, "unit": <string>}`

func nutritionUserPrompt(food string, quantity float64, unit string) string {
	return fmt.Sprintf("Provide precise nutritional information for %g %s of %s based on a standard serving size. Ensure values scale accurately.",
		quantity, unit, food)
}
