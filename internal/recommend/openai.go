package recommend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// UpdateToolName is the function the model calls to request plan changes.
const UpdateToolName = "update_user_plan"

var updateTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        UpdateToolName,
		Description: "Update the user's training focus, daily calorie target or goals.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"trainingFocus": {
					Type:        jsonschema.String,
					Description: "New focus label of the training cycle",
				},
				"dailyCalories": {
					Type:        jsonschema.Number,
					Description: "New daily calorie target in kcal",
				},
				"goals": {
					Type:        jsonschema.Array,
					Description: "Replacement list of user goals",
					Items:       &jsonschema.Definition{Type: jsonschema.String},
				},
				"justification": {
					Type:        jsonschema.String,
					Description: "Why the change is recommended, shown to the user",
				},
			},
			Required: []string{"justification"},
		},
	},
}

// OpenAI generates replies with the chat completions API.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates a generator. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, model string, maxTokens int) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

type updateArgs struct {
	TrainingFocus *string  `json:"trainingFocus"`
	DailyCalories *float64 `json:"dailyCalories"`
	Goals         []string `json:"goals"`
	Justification string   `json:"justification"`
}

// Generate sends p and decodes the first choice.
func (o *OpenAI) Generate(ctx context.Context, p Prompt) (Reply, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Tools:     []openai.Tool{updateTool},
		MaxTokens: o.maxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name != UpdateToolName {
			return nil, fmt.Errorf("model called unknown function %q", call.Function.Name)
		}
		var args updateArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("decoding %s arguments: %w", UpdateToolName, err)
		}
		return UpdateRequest{
			Text:          msg.Content,
			TrainingFocus: args.TrainingFocus,
			DailyCalories: args.DailyCalories,
			Goals:         args.Goals,
			Justification: args.Justification,
		}, nil
	}
	return TextReply{Text: msg.Content}, nil
}
