package domain

import (
	"fmt"
	"math"
)

// FeatureCount is the number of nutrient fields the classifier was trained on.
const FeatureCount = 8

// Field describes one nutrient input: its wire name, how it is shown to the user,
// and the range the input boundary accepts.
type Field struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
	Help    string  `json:"help"`
}

// Fields lists the nutrient fields in model column order. The order is fixed.
var Fields = [FeatureCount]Field{
	{Name: "energy", Label: "Energy", Unit: "kcal/100g", Min: 0, Max: 5000, Default: 250, Step: 10, Help: "Energy content in kilocalories per 100g"},
	{Name: "fat", Label: "Fat", Unit: "g/100g", Min: 0, Max: 100, Default: 5, Step: 0.1, Help: "Total fat content in grams per 100g"},
	{Name: "saturated_fat", Label: "Saturated Fat", Unit: "g/100g", Min: 0, Max: 100, Default: 2, Step: 0.1, Help: "Saturated fat content in grams per 100g"},
	{Name: "sugars", Label: "Sugars", Unit: "g/100g", Min: 0, Max: 100, Default: 10, Step: 0.1, Help: "Sugar content in grams per 100g"},
	{Name: "salt", Label: "Salt", Unit: "g/100g", Min: 0, Max: 100, Default: 0.5, Step: 0.01, Help: "Salt content in grams per 100g"},
	{Name: "protein", Label: "Protein", Unit: "g/100g", Min: 0, Max: 100, Default: 8, Step: 0.1, Help: "Protein content in grams per 100g"},
	{Name: "fiber", Label: "Fiber", Unit: "g/100g", Min: 0, Max: 100, Default: 3, Step: 0.1, Help: "Fiber content in grams per 100g"},
	{Name: "carbohydrates", Label: "Carbohydrates", Unit: "g/100g", Min: 0, Max: 100, Default: 15, Step: 0.1, Help: "Carbohydrate content in grams per 100g"},
}

// FeatureNames returns the field names in model column order.
func FeatureNames() []string {
	names := make([]string, FeatureCount)
	for i, f := range Fields {
		names[i] = f.Name
	}
	return names
}

// NutrientVector holds the nutrition facts of one product per 100g.
type NutrientVector struct {
	Energy        float64 `json:"energy"`
	Fat           float64 `json:"fat"`
	SaturatedFat  float64 `json:"saturated_fat"`
	Sugars        float64 `json:"sugars"`
	Salt          float64 `json:"salt"`
	Protein       float64 `json:"protein"`
	Fiber         float64 `json:"fiber"`
	Carbohydrates float64 `json:"carbohydrates"`
}

// NewNutrientVector builds a vector from values in model column order.
func NewNutrientVector(values []float64) (NutrientVector, error) {
	if len(values) != FeatureCount {
		return NutrientVector{}, &InvalidInputError{
			Reason: fmt.Sprintf("expected %d nutrient values, got %d", FeatureCount, len(values)),
		}
	}
	v := NutrientVector{
		Energy:        values[0],
		Fat:           values[1],
		SaturatedFat:  values[2],
		Sugars:        values[3],
		Salt:          values[4],
		Protein:       values[5],
		Fiber:         values[6],
		Carbohydrates: values[7],
	}
	if err := v.Validate(); err != nil {
		return NutrientVector{}, err
	}
	return v, nil
}

// NutrientVectorFromMap builds a vector from named values. Every field is required.
func NutrientVectorFromMap(values map[string]float64) (NutrientVector, error) {
	ordered := make([]float64, FeatureCount)
	for i, f := range Fields {
		v, ok := values[f.Name]
		if !ok {
			return NutrientVector{}, &InvalidInputError{Field: f.Name, Reason: "missing"}
		}
		ordered[i] = v
	}
	return NewNutrientVector(ordered)
}

// DefaultNutrientVector returns the vector made of every field's default value.
func DefaultNutrientVector() NutrientVector {
	values := make([]float64, FeatureCount)
	for i, f := range Fields {
		values[i] = f.Default
	}
	v, _ := NewNutrientVector(values)
	return v
}

// Features returns a copy of the values in model column order.
func (v NutrientVector) Features() []float64 {
	return []float64{
		v.Energy,
		v.Fat,
		v.SaturatedFat,
		v.Sugars,
		v.Salt,
		v.Protein,
		v.Fiber,
		v.Carbohydrates,
	}
}

// Validate checks that every value is finite and inside its field's range.
func (v NutrientVector) Validate() error {
	for i, x := range v.Features() {
		f := Fields[i]
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &InvalidInputError{Field: f.Name, Reason: "must be a finite number"}
		}
		if x < f.Min || x > f.Max {
			return &InvalidInputError{
				Field:  f.Name,
				Reason: fmt.Sprintf("must be between %g and %g %s", f.Min, f.Max, f.Unit),
			}
		}
	}
	return nil
}
