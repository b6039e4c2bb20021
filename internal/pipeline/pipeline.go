// Package pipeline threads a detected meal through portion refinement,
// nutrition enrichment, and aggregation.
//
// The early stages degrade gracefully: the external models may legitimately
// be unavailable, so partial or failed responses are replaced with
// deterministic fallbacks and flagged. Aggregation is the last stage before
// persistence and is pedantic instead: a missing weight or nutrition vector
// there means an upstream bug and aborts the run.
package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

// Detection is the payload exchanged between stages: the ordered dish list
// plus the opaque image token, carried but never interpreted.
type Detection struct {
	Dishes    []models.DishRecord `json:"dishes"`
	ImagePath string              `json:"image_path,omitempty"`
}

// Detector is the external vision collaborator.
type Detector interface {
	DetectDishes(ctx context.Context, imagePath string) (*Detection, error)
}

// PortionQuery is the stripped per-dish view sent to the portion
// verification collaborator.
type PortionQuery struct {
	DishID           string  `json:"dish_id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	EstimatedWeightG float64 `json:"estimated_weight_g"`
}

// PortionVerdict is one verified portion keyed back by dish id.
type PortionVerdict struct {
	DishID       string  `json:"dish_id"`
	FinalWeightG float64 `json:"final_weight_g"`
	IsReasonable bool    `json:"is_reasonable"`
	Reason       string  `json:"reason"`
}

// PortionVerifier is the external portion verification collaborator.
type PortionVerifier interface {
	VerifyPortions(ctx context.Context, dishes []PortionQuery) ([]PortionVerdict, error)
}

// NutritionLookup is the external per-100g nutrition collaborator.
type NutritionLookup interface {
	LookupNutrition(ctx context.Context, dishName string) (models.NutritionVector, error)
}

type Pipeline struct {
	verifier PortionVerifier
	lookup   NutritionLookup
	log      *logrus.Logger
}

func New(verifier PortionVerifier, lookup NutritionLookup, log *logrus.Logger) *Pipeline {
	return &Pipeline{verifier: verifier, lookup: lookup, log: log}
}

// defaultWeightG is assumed when a dish reaches portion fallback without
// even a detection-time estimate.
const defaultWeightG = 200

// RefinePortions asks the collaborator to verify each dish's estimated
// weight and merges the verdicts back by dish id. Dishes without a matching
// verdict, and the whole meal on collaborator failure, keep the original
// estimate. This stage never hard-fails.
func (p *Pipeline) RefinePortions(ctx context.Context, det *Detection) *Detection {
	queries := make([]PortionQuery, 0, len(det.Dishes))
	for i := range det.Dishes {
		d := &det.Dishes[i]
		queries = append(queries, PortionQuery{
			DishID:           d.DishID,
			Name:             d.Name,
			Category:         d.Category,
			EstimatedWeightG: d.EstimatedWeightG,
		})
	}

	verdicts, err := p.verifier.VerifyPortions(ctx, queries)
	if err != nil {
		p.log.WithError(err).Warn("portion verification failed, keeping estimates")
		for i := range det.Dishes {
			applyPortionDefault(&det.Dishes[i], "verification failed, using initial estimate")
		}
		return det
	}

	byID := make(map[string]PortionVerdict, len(verdicts))
	for _, v := range verdicts {
		byID[v.DishID] = v
	}

	for i := range det.Dishes {
		d := &det.Dishes[i]
		v, ok := byID[d.DishID]
		if !ok {
			applyPortionDefault(d, "not verified")
			continue
		}
		w := v.FinalWeightG
		if w <= 0 {
			w = d.EstimatedWeightG
		}
		reasonable := v.IsReasonable
		d.FinalWeightG = &w
		d.IsReasonable = &reasonable
		d.VerificationReason = v.Reason
	}
	return det
}

func applyPortionDefault(d *models.DishRecord, reason string) {
	w := d.EstimatedWeightG
	if w <= 0 {
		w = defaultWeightG
	}
	reasonable := true
	d.FinalWeightG = &w
	d.IsReasonable = &reasonable
	d.VerificationReason = reason
}

// EnrichNutrition looks up the per-100g vector for each dish. A failed or
// all-zero response is replaced by the category fallback table and flagged
// via NutritionSource so degraded data stays observable. This stage never
// hard-fails.
func (p *Pipeline) EnrichNutrition(ctx context.Context, det *Detection) *Detection {
	for i := range det.Dishes {
		d := &det.Dishes[i]

		n, err := p.lookup.LookupNutrition(ctx, d.Name)
		if err != nil || n.IsZero() {
			fb := fallbackNutrition(d.Category, d.Name)
			d.NutritionPer100g = &fb
			d.NutritionSource = NutritionSourceFallback
			p.log.WithFields(logrus.Fields{
				"dish": d.Name,
			}).WithError(err).Warn("nutrition lookup failed, using category fallback")
			continue
		}
		d.NutritionPer100g = &n
		d.NutritionSource = NutritionSourceLookup
	}
	return det
}
