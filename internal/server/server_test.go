package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/mealtype"
	"github.com/severin-ye/NutriFlow---AI/internal/models"
	"github.com/severin-ye/NutriFlow---AI/internal/pipeline"
	"github.com/severin-ye/NutriFlow---AI/internal/storage"
)

type staticDetector struct{ det *pipeline.Detection }

func (d *staticDetector) DetectDishes(_ context.Context, imagePath string) (*pipeline.Detection, error) {
	d.det.ImagePath = imagePath
	return d.det, nil
}

type staticVerifier struct{}

func (staticVerifier) VerifyPortions(_ context.Context, queries []pipeline.PortionQuery) ([]pipeline.PortionVerdict, error) {
	verdicts := make([]pipeline.PortionVerdict, 0, len(queries))
	for _, q := range queries {
		verdicts = append(verdicts, pipeline.PortionVerdict{
			DishID:       q.DishID,
			FinalWeightG: q.EstimatedWeightG,
			IsReasonable: true,
			Reason:       "plausible",
		})
	}
	return verdicts, nil
}

type staticLookup struct{}

func (staticLookup) LookupNutrition(_ context.Context, _ string) (models.NutritionVector, error) {
	return models.NutritionVector{Calories: 100, Protein: 5, Fat: 4, Carbs: 12, Sodium: 200}, nil
}

func newTestServer(t *testing.T, in io.Reader, out io.Writer) *NutriFlowServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := storage.NewStore(filepath.Join(t.TempDir(), "meals.json"), "user001", log)
	classifier := mealtype.NewClassifier(nil, log)
	detector := &staticDetector{det: &pipeline.Detection{Dishes: []models.DishRecord{
		{Name: "steamed rice", Category: "staple", EstimatedWeightG: 180},
	}}}
	stages := pipeline.New(staticVerifier{}, staticLookup{}, log)
	runner := pipeline.NewRunner(detector, stages, classifier, nil, nil, store, 7, log)

	return NewNutriFlowServer(runner, store, classifier, 7, log, in, out)
}

func callTool(t *testing.T, srv *NutriFlowServer, name string, args map[string]interface{}) string {
	t.Helper()
	result, err := srv.handleRequest(context.Background(), &protocol.CallToolRequest{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("tool %s: %v", name, err)
	}
	text, ok := result.Content[0].(protocol.TextContent)
	if !ok {
		t.Fatalf("tool %s: unexpected content type %T", name, result.Content[0])
	}
	return text.Text
}

func TestInferMealTypeTool(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, strings.NewReader(""), io.Discard)

	out := callTool(t, srv, "infer_meal_type", map[string]interface{}{
		"timestamp": "2025-12-08T07:30:00Z",
	})

	var resp map[string]string
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["meal_type"] != mealtype.Breakfast {
		t.Fatalf("expected breakfast, got %q", resp["meal_type"])
	}
}

func TestComputeMealNutritionTool(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, strings.NewReader(""), io.Discard)

	out := callTool(t, srv, "compute_meal_nutrition", map[string]interface{}{
		"dishes": []map[string]interface{}{{
			"dish_id":        "dish_1",
			"name":           "steamed rice",
			"category":       "staple",
			"final_weight_g": 180,
			"nutrition_per_100g": map[string]float64{
				"calories": 116, "protein": 2.6, "fat": 0.3, "carbs": 25.6, "sodium": 2,
			},
		}},
	})

	var agg pipeline.AggregateResult
	if err := json.Unmarshal([]byte(out), &agg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if agg.MealNutritionTotal.Calories != 208.8 {
		t.Fatalf("unexpected calories: %v", agg.MealNutritionTotal.Calories)
	}
}

func TestUnknownToolRejected(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, strings.NewReader(""), io.Discard)

	if _, err := srv.handleRequest(context.Background(), &protocol.CallToolRequest{Name: "drop_tables"}); err == nil {
		t.Fatal("expected unknown tool error")
	}
}

func TestStdioLoopAnalyzesAndStops(t *testing.T) {
	t.Parallel()

	req, err := json.Marshal(protocol.CallToolRequest{
		Name:      "analyze_meal",
		Arguments: map[string]interface{}{"image_path": "/tmp/meal.jpg"},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	var out bytes.Buffer
	srv := newTestServer(t, bytes.NewReader(req), &out)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("stdio loop: %v", err)
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Content) == 0 || result.Content[0].Text == "" {
		t.Fatal("empty tool result")
	}
}
