package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/siherrmann/hybridqa/helper"
)

// Defaults target Groq's OpenAI-compatible endpoint.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Config holds the chat completion configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewConfigFromEnv reads the configuration from the environment
// (GROQ_API_KEY, optional LLM_BASE_URL and LLM_MODEL). A missing API key
// returns ErrConfiguration.
func NewConfigFromEnv() (*Config, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil, helper.NewError("read llm configuration", fmt.Errorf("missing environment variable GROQ_API_KEY: %w", helper.ErrConfiguration))
	}

	config := &Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("LLM_BASE_URL"),
		Model:   os.Getenv("LLM_MODEL"),
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	return config, nil
}

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// Client performs chat completions against an OpenAI-compatible endpoint.
// Failures propagate to the caller; there is no retry layer.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a chat completion client.
func NewClient(config *Config) (*Client, error) {
	if config == nil || config.APIKey == "" {
		return nil, helper.NewError("create llm client", fmt.Errorf("api key is required: %w", helper.ErrConfiguration))
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Complete performs a streamed chat completion and returns the concatenated
// response text.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	return c.CompleteStream(ctx, messages, nil)
}

// CompleteStream performs a streamed chat completion, writing each token
// delta to w as it arrives (w may be nil), and returns the concatenated
// response text.
func (c *Client) CompleteStream(ctx context.Context, messages []Message, w io.Writer) (string, error) {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: llmMessages,
		Stream:   true,
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", helper.NewError("create chat completion stream", err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", helper.NewError("receive chat completion delta", err)
		}
		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta.Content
		builder.WriteString(delta)
		if w != nil && delta != "" {
			fmt.Fprint(w, delta)
		}
	}

	return builder.String(), nil
}
