package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Pricing per million tokens, used to estimate call cost from the usage
// metadata Gemini returns. Rough flash-tier figures; overridable in config.
const (
	defaultInputCostPerMTok  = 0.30
	defaultOutputCostPerMTok = 2.50
)

// GeminiConfig configures the Gemini-backed oracle.
type GeminiConfig struct {
	APIKey            string
	Model             string
	InputCostPerMTok  float64
	OutputCostPerMTok float64
}

// Gemini implements Oracle against the Gemini API. Responses are
// requested as JSON and validated against the caller's schema before
// being returned.
type Gemini struct {
	client     *genai.Client
	model      string
	inputCost  float64
	outputCost float64
}

// NewGemini creates a Gemini oracle.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini oracle: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	inputCost := cfg.InputCostPerMTok
	if inputCost <= 0 {
		inputCost = defaultInputCostPerMTok
	}
	outputCost := cfg.OutputCostPerMTok
	if outputCost <= 0 {
		outputCost = defaultOutputCostPerMTok
	}
	return &Gemini{client: client, model: model, inputCost: inputCost, outputCost: outputCost}, nil
}

// Ask sends one prompt and returns the schema-validated JSON reply.
func (g *Gemini) Ask(ctx context.Context, prompt, schema string) (json.RawMessage, float64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, 0, fmt.Errorf("gemini generate: %w", err)
	}

	cost := g.costOf(resp)
	text := resp.Text()
	if text == "" {
		return nil, cost, fmt.Errorf("gemini returned empty output")
	}

	raw := json.RawMessage(text)
	if !json.Valid(raw) {
		extracted, ok := ExtractJSON([]byte(text))
		if !ok {
			return nil, cost, fmt.Errorf("gemini output is not valid JSON")
		}
		raw = extracted
	}
	if schema != "" {
		if err := ValidateAgainstSchema(raw, schema); err != nil {
			return nil, cost, err
		}
	}
	log.Debug().Str("model", g.model).Float64("cost", cost).Int("bytes", len(raw)).Msg("oracle reply")
	return raw, cost, nil
}

func (g *Gemini) costOf(resp *genai.GenerateContentResponse) float64 {
	if resp == nil || resp.UsageMetadata == nil {
		return 0
	}
	in := float64(resp.UsageMetadata.PromptTokenCount)
	out := float64(resp.UsageMetadata.CandidatesTokenCount)
	return (in*g.inputCost + out*g.outputCost) / 1e6
}
