package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"complianceiq/internal/config"
	"complianceiq/internal/engine"
	"complianceiq/internal/model"
)

// FollowUpService generates clarifying follow-up questions via the Gemini
// API. It implements engine.FollowUpProvider. Errors are returned as-is;
// the engine degrades them to "no follow-up" so an assessment stays
// completable with the AI service down.
type FollowUpService struct {
	config *config.AIConfig
	client *http.Client
}

// NewFollowUpService creates a new follow-up service
func NewFollowUpService() *FollowUpService {
	cfg := config.DefaultAIConfig()
	return &FollowUpService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// followUpGeneration is the AI response schema
type followUpGeneration struct {
	None      bool   `json:"none"`
	Prompt    string `json:"prompt"`
	Rationale string `json:"rationale,omitempty"`
}

// GenerateFollowUp asks the model for one clarifying question, or nil when
// the answer needs no further probing. Without an API key a heuristic
// single-round fallback keeps local development working.
func (s *FollowUpService) GenerateFollowUp(ctx context.Context, req *engine.FollowUpRequest) (*model.Question, error) {
	if !s.config.IsEnabled() {
		return s.heuristicFollowUp(req), nil
	}

	prompt := s.buildFollowUpPrompt(req)
	response, err := s.callGemini(ctx, s.config.Models.FollowUp, prompt)
	if err != nil {
		return nil, err
	}

	var gen followUpGeneration
	if err := json.Unmarshal([]byte(response), &gen); err != nil {
		return nil, fmt.Errorf("malformed follow-up response: %w", err)
	}
	if gen.None || strings.TrimSpace(gen.Prompt) == "" {
		return nil, nil
	}
	return &model.Question{Text: strings.TrimSpace(gen.Prompt)}, nil
}

// callGemini makes a request to the Gemini API
func (s *FollowUpService) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(modelName), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", fmt.Errorf("empty response from gemini")
}

func (s *FollowUpService) buildFollowUpPrompt(req *engine.FollowUpRequest) string {
	history := ""
	if len(req.History) > 0 {
		var sb strings.Builder
		sb.WriteString("\nEarlier follow-up answers:\n")
		for _, ans := range req.History {
			sb.WriteString(fmt.Sprintf("- %q\n", ans.Value.String()))
		}
		history = sb.String()
	}

	return fmt.Sprintf(`You are a compliance auditor reviewing a self-assessment answer.
Decide whether ONE clarifying follow-up question is needed. Return ONLY valid JSON:
{
  "none": false,
  "prompt": "the follow-up question",
  "rationale": "why this clarification matters"
}
Return {"none": true} when the answer needs no clarification.

Assessment question: %s
Question category: %s
Respondent's answer: %q
Follow-up round: %d of at most 3
%s
Instructions:
1. Ask only about what the answer left unclear or unsupported (evidence, scope, dates, owners).
2. Do not repeat anything already covered by earlier follow-up answers.
3. Keep it short and specific to this control.`,
		req.Question.Text, req.Question.Category, req.Answer.Value.String(), req.Index+1, history)
}

// heuristicFollowUp is the offline fallback: one generic probe on the first
// round, nothing afterwards.
func (s *FollowUpService) heuristicFollowUp(req *engine.FollowUpRequest) *model.Question {
	if req.Index > 0 {
		return nil
	}
	return &model.Question{
		Text: fmt.Sprintf("Can you describe the evidence or process behind your answer to %q?", req.Question.Text),
	}
}
