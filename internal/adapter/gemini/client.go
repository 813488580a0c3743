// Package gemini implements the analysis provider against the Google
// generative language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
)

// Client implements classify.Analyzer using the Gemini generateContent API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Gemini analysis client.
func NewClient(apiKey, model string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		logger:     logger,
	}
}

// Analyze sends one event for severity assessment and decodes the model's
// structured reply.
func (c *Client) Analyze(ctx context.Context, ev domain.Event) (domain.AnalysisResult, error) {
	prompt := buildPrompt(ev)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("encode request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return domain.AnalysisResult{}, fmt.Errorf("gemini API error: status %d: %s", resp.StatusCode, respBody)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("empty model response")
	}

	text := gen.Candidates[0].Content.Parts[0].Text
	result, err := parseResult(text)
	if err != nil {
		c.logger.Warn("unparseable analysis payload", "event_id", ev.ID, "error", err)
		return domain.AnalysisResult{}, err
	}
	return result, nil
}

// buildPrompt assembles the analysis request. The model is asked for a
// strict JSON object so the reply survives round-tripping; the narrative
// field carries the free-text assessment.
func buildPrompt(ev domain.Event) string {
	var b strings.Builder
	b.WriteString("DISASTER ANALYSIS REQUEST:\n")
	fmt.Fprintf(&b, "**Event**: %s\n", ev.Title)
	fmt.Fprintf(&b, "**Description**: %s\n", ev.Description)
	fmt.Fprintf(&b, "**Type**: %s\n", ev.Type)
	fmt.Fprintf(&b, "**Location**: [%.4f, %.4f]\n", ev.Lon, ev.Lat)
	fmt.Fprintf(&b, "**Date**: %s\n", ev.OccurredAt.UTC().Format(time.RFC3339))
	b.WriteString(`
YOUR TASKS:
1. Severity score (1-10)
2. Structured impact evidence
3. Narrative assessment covering primary risks and response priorities

Reply with a single JSON object and nothing else:
{
  "severity": <number 1-10>,
  "evidence": {
    "fatalities": <int>,
    "injuries": <int>,
    "displaced": <int>,
    "economic_loss_usd": <number>,
    "emergency_declared": <bool>,
    "regional_emergency_only": <bool>,
    "international_aid": <bool>,
    "cross_border_impact": <bool>,
    "infrastructure_disruption": <bool>,
    "environmental_hazard": <bool>,
    "rapid_escalation": <bool>
  },
  "narrative": "<free-text assessment>"
}
Use 0 or false for anything the source material does not support.
`)
	return b.String()
}

// parseResult decodes the model reply, tolerating markdown code fences
// around the JSON object.
func parseResult(text string) (domain.AnalysisResult, error) {
	payload := extractJSON(text)
	if payload == "" {
		return domain.AnalysisResult{}, fmt.Errorf("no JSON object in reply")
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode analysis: %w", err)
	}
	return result, nil
}

// extractJSON returns the first top-level JSON object in the text, fenced
// or bare. Empty string when none is found.
func extractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// Gemini generateContent request and response types.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
