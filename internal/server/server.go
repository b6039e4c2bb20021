package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/mealtype"
	"github.com/severin-ye/NutriFlow---AI/internal/pipeline"
	"github.com/severin-ye/NutriFlow---AI/internal/storage"
)

// NutriFlowServer exposes the analysis pipeline and the document store as
// MCP tools over a stdio request loop. There is no HTTP surface; an agent
// host drives the process through stdin/stdout.
type NutriFlowServer struct {
	runner     *pipeline.Runner
	store      *storage.Store
	classifier *mealtype.Classifier
	recentDays int
	log        *logrus.Logger

	in  io.Reader
	out io.Writer
}

func NewNutriFlowServer(
	runner *pipeline.Runner,
	store *storage.Store,
	classifier *mealtype.Classifier,
	recentDays int,
	log *logrus.Logger,
	in io.Reader,
	out io.Writer,
) *NutriFlowServer {
	s := &NutriFlowServer{
		runner:     runner,
		store:      store,
		classifier: classifier,
		recentDays: recentDays,
		log:        log,
		in:         in,
		out:        out,
	}
	s.registerTools()
	return s
}

// Start reads tool-call requests from the input stream until EOF or
// cancellation, executing each to completion before reading the next.
// Requests are never processed concurrently: the document store assumes a
// single writer.
func (s *NutriFlowServer) Start(ctx context.Context) error {
	dec := json.NewDecoder(s.in)
	enc := json.NewEncoder(s.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var req protocol.CallToolRequest
		if err := dec.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to decode request: %w", err)
		}

		result, err := s.handleRequest(ctx, &req)
		if err != nil {
			s.log.WithError(err).WithField("tool", req.Name).Error("tool call failed")
			result, err = s.createJSONResponse(map[string]string{"error": err.Error()})
			if err != nil {
				return err
			}
		}
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
	}
}

func (s *NutriFlowServer) handleRequest(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	switch req.Name {
	case "analyze_meal":
		return s.handleAnalyzeMeal(ctx, req)
	case "compute_meal_nutrition":
		return s.handleComputeMealNutrition(req)
	case "get_recent_meals":
		return s.handleGetRecentMeals(req)
	case "get_daily_summary":
		return s.handleGetDailySummary(req)
	case "infer_meal_type":
		return s.handleInferMealType(ctx, req)
	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Name)
	}
}

func (s *NutriFlowServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
