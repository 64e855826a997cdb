package art

import (
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultChatModel  = openai.GPT4
	DefaultImageModel = openai.CreateImageModelDallE3
)

type OpenAiOptions struct {
	ApiKey     string
	BaseUrl    string
	Model      string
	HttpClient *http.Client
}

func newOpenAiClient(opts OpenAiOptions) *openai.Client {
	config := openai.DefaultConfig(opts.ApiKey)
	if opts.BaseUrl != "" {
		config.BaseURL = opts.BaseUrl
	}
	if opts.HttpClient != nil {
		config.HTTPClient = opts.HttpClient
	}
	return openai.NewClientWithConfig(config)
}
