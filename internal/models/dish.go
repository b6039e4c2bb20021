package models

import "encoding/json"

// DishRecord is one dish inside a meal, populated progressively as it moves
// through the pipeline: detection sets identity and the weight estimate,
// portion refinement sets the final weight, nutrition enrichment sets the
// per-100g vector, aggregation sets the dish total.
//
// Optional attributes are pointers so that "not yet set" is distinguishable
// from a legitimate zero; stage boundaries check presence, not value.
type DishRecord struct {
	DishID          string `json:"dish_id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	PortionLevel    string `json:"portion_level,omitempty"`
	DetectionReason string `json:"reason,omitempty"`

	EstimatedWeightG float64 `json:"estimated_weight_g,omitempty"`

	FinalWeightG       *float64 `json:"final_weight_g,omitempty"`
	IsReasonable       *bool    `json:"is_reasonable,omitempty"`
	VerificationReason string   `json:"verification_reason,omitempty"`

	NutritionPer100g *NutritionVector `json:"nutrition_per_100g,omitempty"`
	NutritionTotal   *NutritionVector `json:"nutrition_total,omitempty"`

	// NutritionSource marks where the per-100g vector came from: "lookup"
	// for a collaborator response, "fallback" for the category table.
	NutritionSource string `json:"nutrition_source,omitempty"`

	// Extra carries fields this pipeline does not interpret. Stages are
	// pass-through permissive: unknown keys survive a decode/encode cycle.
	Extra map[string]json.RawMessage `json:"-"`
}

// dishKnownKeys lists the JSON keys owned by the struct fields above. Keys
// outside this set land in Extra.
var dishKnownKeys = []string{
	"dish_id", "name", "category", "portion_level", "reason",
	"estimated_weight_g", "final_weight_g", "is_reasonable",
	"verification_reason", "nutrition_per_100g", "nutrition_total",
	"nutrition_source",
}

type dishRecordAlias DishRecord

func (d *DishRecord) UnmarshalJSON(data []byte) error {
	var a dishRecordAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range dishKnownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*d = DishRecord(a)
	return nil
}

func (d DishRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(dishRecordAlias(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, owned := merged[k]; !owned {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
