package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/revisia/revisia-backend/internal/pkg/errors"
	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/types"
)

// ComparisonInput is everything the comparator needs to judge a recall
// against the original summary.
type ComparisonInput struct {
	SummaryContent       string
	UserRecall           string
	SpecificInstructions string
	RequirementLevel     types.RequirementLevel
	CustomSettings       *types.CustomSettings
}

// ComparisonResult is the comparator's classification. The two lists are
// exhaustive and disjoint: every identified concept appears in exactly one.
type ComparisonResult struct {
	UnderstoodConcepts []types.UnderstoodConcept `json:"understood_concepts"`
	MissingConcepts    []types.MissingConcept    `json:"missing_concepts"`
	OverallScore       int                       `json:"overall_score"`
	Feedback           string                    `json:"feedback"`
}

// AIComparator judges how much of the original summary a user's recall
// covers.
type AIComparator interface {
	Compare(ctx context.Context, input ComparisonInput) (*ComparisonResult, error)
}

type openAIComparator struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIComparator builds the OpenAI-backed comparator. The per-call
// timeout is deliberate hardening: the workflow must never hang on an
// unbounded upstream call. No retries either; the orchestrator contract is
// at most one comparator call per invocation.
func NewOpenAIComparator(log *logger.Logger) (AIComparator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeoutSec := 60
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &openAIComparator{
		log:        log.With("service", "OpenAIComparator"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int { return e.StatusCode }

const comparatorSystemPrompt = `You are a strict revision evaluator. Compare the user's free recall against the original summary of their study material. Identify every atomic concept of the summary and classify each into exactly one of two lists: understood_concepts (concept, user_phrasing, source_text) when the recall covers it, or missing_concepts (concept, source_text, reason) when it does not. reason is one of: absent, incomplete, factual-error, contradiction. A concept must never appear in both lists. Also return overall_score (0-100) and a short feedback text in the user's language.`

func (c *openAIComparator) Compare(ctx context.Context, input ComparisonInput) (*ComparisonResult, error) {
	userPrompt := buildComparatorPrompt(input)

	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": comparatorSystemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.2,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: comparator call: %v", pkgerrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read comparator response: %v", pkgerrors.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &openAIHTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrUpstream, httpErr)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: malformed comparator response", pkgerrors.ErrUpstream)
	}

	var result ComparisonResult
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("%w: comparator returned invalid JSON: %v", pkgerrors.ErrUpstream, err)
	}
	if err := validateComparisonResult(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUpstream, err)
	}
	return &result, nil
}

func buildComparatorPrompt(input ComparisonInput) string {
	var sb strings.Builder
	sb.WriteString("Requirement level: ")
	sb.WriteString(string(input.RequirementLevel))
	sb.WriteString("\n")
	if input.RequirementLevel == types.LevelCustom && input.CustomSettings != nil {
		fmt.Fprintf(&sb, "Custom thresholds: definitions=%d concepts=%d data=%d\n",
			input.CustomSettings.DefinitionsThreshold,
			input.CustomSettings.ConceptsThreshold,
			input.CustomSettings.DataThreshold)
	}
	if instr := strings.TrimSpace(input.SpecificInstructions); instr != "" {
		sb.WriteString("Specific instructions: ")
		sb.WriteString(instr)
		sb.WriteString("\n")
	}
	sb.WriteString("\n--- ORIGINAL SUMMARY ---\n")
	sb.WriteString(input.SummaryContent)
	sb.WriteString("\n\n--- USER RECALL ---\n")
	sb.WriteString(input.UserRecall)
	return sb.String()
}

// validateComparisonResult enforces the classification contract: lists
// disjoint, reason tags known, score within range.
func validateComparisonResult(result *ComparisonResult) error {
	seen := make(map[string]struct{}, len(result.UnderstoodConcepts))
	for _, uc := range result.UnderstoodConcepts {
		key := strings.ToLower(strings.TrimSpace(uc.Concept))
		if key == "" {
			return fmt.Errorf("understood concept with empty name")
		}
		seen[key] = struct{}{}
	}
	for _, mc := range result.MissingConcepts {
		key := strings.ToLower(strings.TrimSpace(mc.Concept))
		if key == "" {
			return fmt.Errorf("missing concept with empty name")
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("concept %q classified in both lists", mc.Concept)
		}
		switch mc.Reason {
		case types.MissReasonAbsent, types.MissReasonIncomplete, types.MissReasonFactualError, types.MissReasonContradiction:
		default:
			return fmt.Errorf("unknown miss reason %q", mc.Reason)
		}
	}
	if result.OverallScore < 0 || result.OverallScore > 100 {
		return fmt.Errorf("overall score %d out of range", result.OverallScore)
	}
	return nil
}
