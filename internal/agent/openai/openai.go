// Package openai provides an agent backend driven by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jason-s-yu/nomic/internal/agent"
	"github.com/jason-s-yu/nomic/internal/models"
)

// Options configure the OpenAI agent backend. Fields mirror a minimal
// subset of Chat Completion parameters; extend via functional options
// without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Agent wraps the OpenAI Chat Completions API behind the agent.Agent
// capability interface.
type Agent struct {
	client    *openaisdk.Client
	opts      Options
	available bool
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openaisdk.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// New creates an OpenAI-backed agent using the official client. The API
// key must arrive through Options; the backend never reads the process
// environment itself.
func New(optFns ...func(o *Options)) *Agent {
	opts := applyOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openaisdk.NewClient(clientOpts...)

	return &Agent{
		client:    &client,
		opts:      opts,
		available: opts.APIKey != "",
	}
}

// NewFromClient creates an OpenAI-backed agent from an existing client,
// assumed to already carry its credentials.
func NewFromClient(client *openaisdk.Client, optFns ...func(o *Options)) *Agent {
	return &Agent{
		client:    client,
		opts:      applyOptions(optFns),
		available: true,
	}
}

// Propose asks the model for a proposal block. The raw text is returned
// untrusted; the caller validates it against the markup grammar.
func (a *Agent) Propose(ctx context.Context, snapshot models.GameSnapshot) (string, error) {
	return a.complete(ctx, agent.BuildProposePrompt(snapshot))
}

// Vote asks the model for a stance and validates it before returning.
func (a *Agent) Vote(ctx context.Context, proposalText string, snapshot models.GameSnapshot) (models.VoteChoice, error) {
	text, err := a.complete(ctx, agent.BuildVotePrompt(proposalText, snapshot))
	if err != nil {
		return "", err
	}
	return agent.ParseVoteChoice(text)
}

// IsAvailable reports whether an API key was configured.
func (a *Agent) IsAvailable() bool { return a.available }

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: a.opts.Model,
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(agent.SystemPrompt),
			openaisdk.UserMessage(prompt),
		},
		Temperature:         openaisdk.Float(a.opts.Temperature),
		MaxCompletionTokens: openaisdk.Int(a.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
