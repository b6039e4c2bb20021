// Package llm implements every external model collaborator against one
// OpenAI-compatible chat gateway: vision detection, portion verification,
// nutrition lookup, meal-slot inference, scoring, and recommendation.
//
// Methods return errors on transport or parse failure; fallback policy
// belongs to the callers.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
	"github.com/severin-ye/NutriFlow---AI/internal/pipeline"
	"github.com/severin-ye/NutriFlow---AI/internal/trend"
)

type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	textModel   string
	visionModel string
	log         *logrus.Logger
}

func NewClient(baseURL, apiKey, textModel, visionModel string, log *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		textModel:   textModel,
		visionModel: visionModel,
		log:         log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chat performs one blocking, single-attempt completion call and returns
// the raw assistant content.
func (c *Client) chat(ctx context.Context, model string, temperature float64, system string, user any) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion request returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("model returned empty content")
	}
	return parsed.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences, falling back to the span between
// the first opening brace/bracket and the matching last one.
func extractJSON(content string) string {
	if idx := strings.Index(content, "```json"); idx != -1 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(content, "```"); idx != -1 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	// Whichever opener comes first decides whether this is an object or an
	// array; trying "{" first would cut a bare array down to its first
	// element's braces.
	pairs := [][2]string{{"{", "}"}, {"[", "]"}}
	if arr := strings.Index(content, "["); arr != -1 {
		if obj := strings.Index(content, "{"); obj == -1 || arr < obj {
			pairs = [][2]string{{"[", "]"}, {"{", "}"}}
		}
	}
	for _, pair := range pairs {
		start := strings.Index(content, pair[0])
		end := strings.LastIndex(content, pair[1])
		if start != -1 && end > start {
			return content[start : end+1]
		}
	}
	return strings.TrimSpace(content)
}

const detectPrompt = `You are a food recognition assistant. Identify every dish in the image.
Respond with a JSON array only, one object per dish:
[{"name": "...", "category": "staple|meat|vegetable|soup|other", "estimated_weight_g": number, "portion_level": "small|medium|large", "reason": "..."}]`

// DetectDishes sends the image to the vision model and returns the detected
// dishes with sequential dish ids assigned.
func (c *Client) DetectDishes(ctx context.Context, imagePath string) (*pipeline.Detection, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	user := []map[string]any{
		{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw),
			},
		},
		{
			"type": "text",
			"text": "Identify all dishes in the image and output JSON.",
		},
	}

	content, err := c.chat(ctx, c.visionModel, 0.3, detectPrompt, user)
	if err != nil {
		return nil, err
	}

	var dishes []models.DishRecord
	if err := json.Unmarshal([]byte(extractJSON(content)), &dishes); err != nil {
		return nil, fmt.Errorf("failed to parse detection response: %w", err)
	}
	for i := range dishes {
		dishes[i].DishID = fmt.Sprintf("dish_%d", i+1)
	}
	return &pipeline.Detection{Dishes: dishes, ImagePath: imagePath}, nil
}

const portionPrompt = `You are a portion estimation expert. For each dish, judge whether the
estimated weight in grams is plausible for a single serving; correct it when it is not.
Respond with a JSON array only:
[{"dish_id": "...", "final_weight_g": number, "is_reasonable": true|false, "reason": "..."}]`

// VerifyPortions asks the text model to sanity-check the estimated weights.
func (c *Client) VerifyPortions(ctx context.Context, dishes []pipeline.PortionQuery) ([]pipeline.PortionVerdict, error) {
	payload, err := json.Marshal(dishes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal portion queries: %w", err)
	}

	content, err := c.chat(ctx, c.textModel, 0.2, portionPrompt, string(payload))
	if err != nil {
		return nil, err
	}

	extracted := extractJSON(content)
	var verdicts []pipeline.PortionVerdict
	if err := json.Unmarshal([]byte(extracted), &verdicts); err != nil {
		// Some models return a bare object when there is a single dish.
		var single pipeline.PortionVerdict
		if err2 := json.Unmarshal([]byte(extracted), &single); err2 != nil || single.DishID == "" {
			return nil, fmt.Errorf("failed to parse portion response: %w", err)
		}
		verdicts = []pipeline.PortionVerdict{single}
	}
	return verdicts, nil
}

const nutritionPrompt = `You are a nutrition data assistant. Look up nutrition facts per 100 grams
for the dish the user names. Respond with JSON only, all five fields required, numbers without units:
{"calories": kcal, "protein": g, "fat": g, "carbs": g, "sodium": mg}`

// LookupNutrition fetches the per-100g vector for one dish name. Every
// field must be present in the response.
func (c *Client) LookupNutrition(ctx context.Context, dishName string) (models.NutritionVector, error) {
	content, err := c.chat(ctx, c.textModel, 0.1, nutritionPrompt, dishName)
	if err != nil {
		return models.NutritionVector{}, err
	}

	var parsed struct {
		Calories *float64 `json:"calories"`
		Protein  *float64 `json:"protein"`
		Fat      *float64 `json:"fat"`
		Carbs    *float64 `json:"carbs"`
		Sodium   *float64 `json:"sodium"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return models.NutritionVector{}, fmt.Errorf("failed to parse nutrition response: %w", err)
	}
	for name, f := range map[string]*float64{
		"calories": parsed.Calories, "protein": parsed.Protein, "fat": parsed.Fat,
		"carbs": parsed.Carbs, "sodium": parsed.Sodium,
	} {
		if f == nil {
			return models.NutritionVector{}, fmt.Errorf("nutrition response missing field %q", name)
		}
	}
	return models.NutritionVector{
		Calories: *parsed.Calories,
		Protein:  *parsed.Protein,
		Fat:      *parsed.Fat,
		Carbs:    *parsed.Carbs,
		Sodium:   *parsed.Sodium,
	}, nil
}

const mealTypePrompt = `You analyze a user's eating schedule. Given their recent meal records and
the current time, decide which meal slot this is. Answer with exactly one label from:
breakfast, lunch, dinner, late-night-snack, snack, afternoon-tea, brunch,
morning-snack, afternoon-snack, evening-snack. Output the label only.`

// ClassifyHistory delegates meal-slot inference to the text model. The raw
// label comes back untrimmed; validation is the caller's job.
func (c *Client) ClassifyHistory(ctx context.Context, at time.Time, history []models.Day) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"current_time": at.Format(time.RFC3339),
		"recent_meals": history,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}
	return c.chat(ctx, c.textModel, 0.3, mealTypePrompt, string(payload))
}

const scorePrompt = `You are a nutritionist. Score this single meal's nutrition from 0 to 100 and
give one sentence of advice. Respond with JSON only: {"score": number, "advice": "..."}`

const trendScorePrompt = `You are a nutritionist. Score this meal from 0 to 100 considering the
user's recent per-meal averages, and give one sentence of advice.
Respond with JSON only: {"score": number, "advice": "..."}`

func (c *Client) ScoreMeal(ctx context.Context, total models.NutritionVector) (int, string, error) {
	payload, _ := json.Marshal(total)
	return c.scoreCall(ctx, scorePrompt, string(payload))
}

func (c *Client) ScoreWeekAdjusted(ctx context.Context, total models.NutritionVector, weeklyTrend map[string]float64) (int, string, error) {
	payload, err := json.Marshal(map[string]any{
		"current_meal": total,
		"weekly_trend": weeklyTrend,
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to marshal trend input: %w", err)
	}
	return c.scoreCall(ctx, trendScorePrompt, string(payload))
}

func (c *Client) scoreCall(ctx context.Context, system, user string) (int, string, error) {
	content, err := c.chat(ctx, c.textModel, 0.3, system, user)
	if err != nil {
		return 0, "", err
	}
	var parsed struct {
		Score  *int   `json:"score"`
		Advice string `json:"advice"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return 0, "", fmt.Errorf("failed to parse score response: %w", err)
	}
	if parsed.Score == nil {
		return 0, "", fmt.Errorf("score response missing score field")
	}
	return *parsed.Score, parsed.Advice, nil
}

const recommendPrompt = `You are a meal planning assistant. Based on the meal just eaten and the
user's recent trend, suggest options for the next meal. Respond with JSON only:
{"options": [{"title": "...", "recommended_dishes": ["..."], "reason": "..."}], "overall_reason": "..."}`

func (c *Client) RecommendNextMeal(ctx context.Context, total models.NutritionVector, report *trend.Report) (*models.NextMealRecommendation, error) {
	payload, err := json.Marshal(map[string]any{
		"current_meal": total,
		"total_meals":  report.TotalMeals,
		"weekly_trend": report.WeeklyTrend,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommendation input: %w", err)
	}

	content, err := c.chat(ctx, c.textModel, 0.3, recommendPrompt, string(payload))
	if err != nil {
		return nil, err
	}

	var rec models.NextMealRecommendation
	if err := json.Unmarshal([]byte(extractJSON(content)), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse recommendation response: %w", err)
	}
	if len(rec.Options) == 0 {
		return nil, fmt.Errorf("recommendation response has no options")
	}
	return &rec, nil
}
