package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
	"github.com/severin-ye/NutriFlow---AI/internal/pipeline"
	"github.com/severin-ye/NutriFlow---AI/internal/trend"
)

type AnalyzeMealParams struct {
	ImagePath string `json:"image_path" description:"Path to the meal image to analyze"`
}

type ComputeMealNutritionParams struct {
	Dishes []models.DishRecord `json:"dishes" description:"Dishes with final_weight_g and nutrition_per_100g set"`
}

type GetRecentMealsParams struct {
	Days int `json:"days,omitempty" description:"Window size in days (defaults to the configured recent window)"`
}

type GetDailySummaryParams struct {
	Date string `json:"date,omitempty" description:"Date to summarize (YYYY-MM-DD, defaults to today)"`
}

type InferMealTypeParams struct {
	Timestamp string `json:"timestamp,omitempty" description:"ISO timestamp to classify (defaults to now)"`
}

// extractParams safely extracts parameters from the request arguments.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	return nil
}

// handleAnalyzeMeal runs the full pipeline on one image and persists the
// resulting meal.
func (s *NutriFlowServer) handleAnalyzeMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AnalyzeMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if params.ImagePath == "" {
		return nil, fmt.Errorf("image_path is required")
	}

	meal, err := s.runner.Analyze(ctx, params.ImagePath)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(meal)
}

// handleComputeMealNutrition aggregates an already-enriched dish list
// without persisting anything.
func (s *NutriFlowServer) handleComputeMealNutrition(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ComputeMealNutritionParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if len(params.Dishes) == 0 {
		return nil, fmt.Errorf("dishes are required")
	}

	agg, err := pipeline.Aggregate(&pipeline.Detection{Dishes: params.Dishes})
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(agg)
}

// handleGetRecentMeals returns the recent-history window plus its trend
// statistics.
func (s *NutriFlowServer) handleGetRecentMeals(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetRecentMealsParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	days := params.Days
	if days <= 0 {
		days = s.recentDays
	}

	window := s.store.RecentDays(days)
	return s.createJSONResponse(trend.Analyze(window, days))
}

func (s *NutriFlowServer) handleGetDailySummary(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetDailySummaryParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return s.createJSONResponse(s.store.DailySummary(params.Date))
}

func (s *NutriFlowServer) handleInferMealType(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params InferMealTypeParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	at := time.Now()
	if params.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, params.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp format: %w", err)
		}
		at = parsed
	}

	history := s.store.RecentDays(s.recentDays)
	label := s.classifier.Classify(ctx, at, history)
	return s.createJSONResponse(map[string]string{
		"meal_type": label,
		"timestamp": at.Format(time.RFC3339),
	})
}

// registerTools records the tool surface; routing itself happens in the
// stdio loop.
func (s *NutriFlowServer) registerTools() {
	for _, name := range []string{
		"analyze_meal",
		"compute_meal_nutrition",
		"get_recent_meals",
		"get_daily_summary",
		"infer_meal_type",
	} {
		s.log.WithField("tool", name).Debug("registered tool")
	}
}
