package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// Turn is one prior exchange restored from the conversation cache.
type Turn struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Engine runs the tool-calling loop against the Anthropic Messages API.
// Each inbound message gets one Run; the loop re-queries the model with
// tool results until it answers in plain text or the turn budget runs out.
type Engine struct {
	client    anthropic.Client
	registry  *Registry
	model     string
	maxTokens int64
	maxTurns  int
	logger    zerolog.Logger
}

func NewEngine(apiKey, model string, registry *Registry, logger zerolog.Logger) *Engine {
	return &Engine{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		registry:  registry,
		model:     model,
		maxTokens: 1024,
		maxTurns:  8,
		logger:    logger.With().Str("component", "agent").Logger(),
	}
}

// Run processes one user message and returns the assistant's final text.
// Tool handler failures are fed back to the model as error tool results,
// never surfaced as a Run error; only transport and budget failures are.
func (e *Engine) Run(ctx context.Context, userID int, systemPrompt string, history []Turn, userMessage string) (string, error) {
	messages := historyToParams(history)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	for turn := 0; turn < e.maxTurns; turn++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(e.model),
			MaxTokens: e.maxTokens,
			Messages:  messages,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
		}
		if tools := e.registry.APITools(); len(tools) > 0 {
			params.Tools = tools
		}

		resp, err := e.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic api: %w", err)
		}
		messages = append(messages, resp.ToParam())

		var textResponse strings.Builder
		var toolResults []anthropic.ContentBlockParamUnion

		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textResponse.WriteString(block.Text)

			case "tool_use":
				tool, ok := e.registry.Get(ToolName(block.Name))
				if !ok {
					toolResults = append(toolResults, anthropic.NewToolResultBlock(
						block.ID, fmt.Sprintf("unknown tool: %s", block.Name), true))
					continue
				}

				result, err := tool.Handler(ctx, userID, block.Input)
				if err != nil {
					e.logger.Warn().Err(err).
						Int("user_id", userID).
						Str("tool", block.Name).
						Msg("tool call failed")
					toolResults = append(toolResults, anthropic.NewToolResultBlock(
						block.ID, "error: "+err.Error(), true))
					continue
				}

				e.logger.Debug().
					Int("user_id", userID).
					Str("tool", block.Name).
					Msg("tool call succeeded")
				toolResults = append(toolResults, anthropic.NewToolResultBlock(
					block.ID, result, false))
			}
		}

		if len(toolResults) == 0 {
			return strings.TrimSpace(textResponse.String()), nil
		}
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}

	return "", fmt.Errorf("exceeded maximum turns (%d)", e.maxTurns)
}

// Judge asks the model a yes/no question with no tools attached. The
// waiting-check matcher uses it to decide whether a message fulfils a watch.
func (e *Engine) Judge(ctx context.Context, systemPrompt, question string) (bool, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: 8,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	})
	if err != nil {
		return false, fmt.Errorf("anthropic api: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	answer := strings.ToLower(strings.TrimSpace(text.String()))
	return strings.HasPrefix(answer, "yes"), nil
}

func historyToParams(history []Turn) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(block))
		} else {
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	return params
}
