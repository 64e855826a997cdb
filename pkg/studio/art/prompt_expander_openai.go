package art

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
)

const (
	expanderTemperature = 1
	expanderMaxTokens   = 256
)

type OpenAiPromptExpander struct {
	apiKey string
	model  string
	client *openai.Client
}

var _ PromptExpander = (*OpenAiPromptExpander)(nil)

func NewOpenAiPromptExpander(opts OpenAiOptions) *OpenAiPromptExpander {
	if opts.Model == "" {
		opts.Model = DefaultChatModel
	}
	return &OpenAiPromptExpander{
		apiKey: opts.ApiKey,
		model:  opts.Model,
		client: newOpenAiClient(opts),
	}
}

func (e *OpenAiPromptExpander) ExpandPrompt(ctx context.Context, prompt string, h holiday.Holiday) (string, error) {
	if err := ValidateApiKey(e.apiKey); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: h.Instruction()},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		N:           1,
		Temperature: expanderTemperature,
		MaxTokens:   expanderMaxTokens,
	}

	slog.Debug("expanding prompt", "model", e.model, "holiday", h.String())

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &UpstreamError{Op: "prompt expansion", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Op: "prompt expansion", Err: errNoChoices}
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &UpstreamError{Op: "prompt expansion", Err: ErrEmptyExpansion}
	}

	return content, nil
}
