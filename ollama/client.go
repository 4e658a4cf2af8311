package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"mdpilot/model"
)

const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3.1:latest"
)

type Client struct {
	client  *api.Client
	model   string
	baseURL string
}

// StreamCallback receives each streamed chunk; done is set on the last one.
type StreamCallback func(chunk string, done bool) error

func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	client := api.NewClient(parsedURL, http.DefaultClient)

	return &Client{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// ChatOptions tune a single chat request. Zero values use the client's
// defaults.
type ChatOptions struct {
	Model       string
	Temperature *float64
}

// Chat streams a chat completion.
func (c *Client) Chat(ctx context.Context, messages []api.Message, opts ChatOptions, callback StreamCallback) error {
	modelName := opts.Model
	if modelName == "" {
		modelName = c.model
	}

	req := &api.ChatRequest{
		Model:    modelName,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(true),
	}
	if opts.Temperature != nil {
		req.Options = map[string]any{"temperature": *opts.Temperature}
	}

	respFunc := func(resp api.ChatResponse) error {
		if callback != nil {
			return callback(resp.Message.Content, resp.Done)
		}
		return nil
	}

	return c.client.Chat(ctx, req, respFunc)
}

func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:     m.Name,
			Size:     m.Size,
			Provider: "ollama",
		}
	}

	return models, nil
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}
