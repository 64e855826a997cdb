package art

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

type OpenAiGenerator struct {
	apiKey string
	model  string
	client *openai.Client
}

var _ ArtGenerator = (*OpenAiGenerator)(nil)

func NewOpenAiGenerator(opts OpenAiOptions) *OpenAiGenerator {
	if opts.Model == "" {
		opts.Model = DefaultImageModel
	}
	return &OpenAiGenerator{
		apiKey: opts.ApiKey,
		model:  opts.Model,
		client: newOpenAiClient(opts),
	}
}

func (g *OpenAiGenerator) GenerateUrl(ctx context.Context, prompt string) (string, error) {
	if err := ValidateApiKey(g.apiKey); err != nil {
		return "", err
	}

	req := openai.ImageRequest{
		Prompt:         prompt,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
		Model:          g.model,
	}

	slog.Debug("requesting image", "model", g.model, "size", req.Size)

	resp, err := g.client.CreateImage(ctx, req)
	if err != nil {
		return "", &UpstreamError{Op: "image generation", Err: err}
	}

	if len(resp.Data) == 0 {
		return "", &UpstreamError{Op: "image generation", Err: errNoImageData}
	}

	if resp.Data[0].URL == "" {
		return "", &UpstreamError{Op: "image generation", Err: errors.New("image url is empty")}
	}

	return resp.Data[0].URL, nil
}
