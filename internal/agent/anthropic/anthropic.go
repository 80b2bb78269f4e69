// Package anthropic provides an agent backend driven by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jason-s-yu/nomic/internal/agent"
	"github.com/jason-s-yu/nomic/internal/models"
)

// Options configures the Anthropic agent backend (model id, temperature,
// max tokens, API key). Extend via functional options to preserve
// stability.
type Options struct {
	Model       anthropicsdk.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Agent wraps the Anthropic Messages API behind the agent.Agent
// capability interface.
type Agent struct {
	client    *anthropicsdk.Client
	opts      Options
	available bool
}

// New creates an Anthropic-backed agent using the official client. The
// API key must arrive through Options; the backend never reads the
// process environment itself.
func New(optFns ...func(o *Options)) *Agent {
	opts := Options{
		Model:       anthropicsdk.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropicsdk.NewClient(clientOpts...)

	return &Agent{
		client:    &client,
		opts:      opts,
		available: opts.APIKey != "",
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
	resp, err := a.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:       a.opts.Model,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: anthropicsdk.Float(a.opts.Temperature),
		System: []anthropicsdk.TextBlockParam{
			{Text: agent.SystemPrompt},
		},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	return b.String(), nil
}
