package handler

import (
	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/actuallystonmai/nutrigrade/internal/grade"
)

// NutrientRequest carries the eight nutrient values of one product per 100g.
// Pointers distinguish a missing field from an explicit zero.
type NutrientRequest struct {
	Energy        *float64 `json:"energy"`
	Fat           *float64 `json:"fat"`
	SaturatedFat  *float64 `json:"saturated_fat"`
	Sugars        *float64 `json:"sugars"`
	Salt          *float64 `json:"salt"`
	Protein       *float64 `json:"protein"`
	Fiber         *float64 `json:"fiber"`
	Carbohydrates *float64 `json:"carbohydrates"`
}

// Vector converts the request into a nutrient vector. Every field is required.
func (r NutrientRequest) Vector() (domain.NutrientVector, error) {
	values := make(map[string]float64, domain.FeatureCount)
	for name, p := range map[string]*float64{
		"energy":        r.Energy,
		"fat":           r.Fat,
		"saturated_fat": r.SaturatedFat,
		"sugars":        r.Sugars,
		"salt":          r.Salt,
		"protein":       r.Protein,
		"fiber":         r.Fiber,
		"carbohydrates": r.Carbohydrates,
	} {
		if p != nil {
			values[name] = *p
		}
	}
	return domain.NutrientVectorFromMap(values)
}

type BatchRequest struct {
	Items []NutrientRequest `json:"items"`
}

type ResponseMeta struct {
	GeneratedAt string `json:"generated_at"`
}

type PredictionResponse struct {
	Prediction *domain.PredictionResult `json:"prediction"`
	Metadata   ResponseMeta             `json:"metadata"`
}

type BatchResponse struct {
	Results  []domain.BatchItemResult `json:"results"`
	Summary  domain.BatchSummary      `json:"summary"`
	Metadata ResponseMeta             `json:"metadata"`
}

type NutrientsResponse struct {
	Fields []domain.Field `json:"fields"`
}

type GradesResponse struct {
	Grades []grade.Presentation `json:"grades"`
}

type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Input   *domain.NutrientVector `json:"input,omitempty"`
}
