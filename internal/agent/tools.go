package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// ToolName is a closed enum of the tools the assistant may call. Dispatch
// goes through the registry map, so an unknown name can only come from the
// model and is answered with an error tool result.
type ToolName string

const (
	ToolFetchEmails        ToolName = "fetch_emails"
	ToolFetchMessages      ToolName = "fetch_messages"
	ToolSendMessage        ToolName = "send_message"
	ToolFetchCalendar      ToolName = "fetch_calendar_events"
	ToolGetDirections      ToolName = "get_directions"
	ToolWebSearch          ToolName = "web_search"
	ToolCreateWaitingCheck ToolName = "create_waiting_check"
)

// Handler executes one tool call for a user. The returned string is shown
// to the model as the tool result, so it should read as plain text.
type Handler func(ctx context.Context, userID int, input json.RawMessage) (string, error)

type Tool struct {
	Name        ToolName
	Description string
	Schema      anthropic.ToolInputSchemaParam
	Handler     Handler
}

// Registry holds the registered tools in a stable order.
type Registry struct {
	tools map[ToolName]Tool
	order []ToolName
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[ToolName]Tool)}
}

func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

func (r *Registry) Get(name ToolName) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []ToolName {
	return append([]ToolName(nil), r.order...)
}

// APITools converts the registry into Anthropic tool parameters.
func (r *Registry) APITools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        string(t.Name),
				Description: anthropic.String(t.Description),
				InputSchema: t.Schema,
			},
		})
	}
	return out
}

// Schema helpers for building JSON Schema tool definitions.

func ObjectSchema(properties map[string]interface{}, required ...string) anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: properties,
		Required:   required,
	}
}

func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func StringEnumProperty(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

func IntegerProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// Services is what the tools need from the rest of the application. The
// usecases layer provides the real implementation.
type Services interface {
	FetchEmails(ctx context.Context, userID, limit int) (string, error)
	FetchMessages(ctx context.Context, userID, limit int) (string, error)
	SendChatMessage(ctx context.Context, userID int, recipient, body string) (string, error)
	FetchCalendarEvents(ctx context.Context, userID, days int) (string, error)
	GetDirections(ctx context.Context, from, to, mode string) (string, error)
	WebSearch(ctx context.Context, query string) (string, error)
	CreateWaitingCheck(ctx context.Context, userID int, phrase, service string) (string, error)
}

// BuildRegistry wires the assistant's tool set against the given services.
func BuildRegistry(svc Services) *Registry {
	r := NewRegistry()

	r.Register(Tool{
		Name:        ToolFetchEmails,
		Description: "Fetch the user's most recent emails. Returns sender, subject and a short snippet for each.",
		Schema: ObjectSchema(map[string]interface{}{
			"limit": IntegerProperty("Number of emails to return (default 5, max 10)"),
		}),
		Handler: func(ctx context.Context, userID int, input json.RawMessage) (string, error) {
			var in struct {
				Limit int `json:"limit"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			return svc.FetchEmails(ctx, userID, clampLimit(in.Limit, 5, 10))
		},
	})

	r.Register(Tool{
		Name:        ToolFetchMessages,
		Description: "Fetch the user's recent WhatsApp messages. Returns sender and content, newest first.",
		Schema: ObjectSchema(map[string]interface{}{
			"limit": IntegerProperty("Number of messages to return (default 10, max 20)"),
		}),
		Handler: func(ctx context.Context, userID int, input json.RawMessage) (string, error) {
			var in struct {
				Limit int `json:"limit"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			return svc.FetchMessages(ctx, userID, clampLimit(in.Limit, 10, 20))
		},
	})

	r.Register(Tool{
		Name:        ToolSendMessage,
		Description: "Send a WhatsApp message on the user's behalf. Only use this when the user explicitly asked to send a message.",
		Schema: ObjectSchema(map[string]interface{}{
			"recipient": StringProperty("Recipient phone number in international format, digits only or with leading +"),
			"body":      StringProperty("The message text to send"),
		}, "recipient", "body"),
		Handler: func(ctx context.Context, userID int, input json.RawMessage) (string, error) {
			var in struct {
				Recipient string `json:"recipient"`
				Body      string `json:"body"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			if in.Recipient == "" || in.Body == "" {
				return "", fmt.Errorf("recipient and body are required")
			}
			return svc.SendChatMessage(ctx, userID, in.Recipient, in.Body)
		},
	})

	r.Register(Tool{
		Name:        ToolFetchCalendar,
		Description: "Fetch the user's upcoming calendar events for the next days.",
		Schema: ObjectSchema(map[string]interface{}{
			"days": IntegerProperty("How many days ahead to look (default 7, max 31)"),
		}),
		Handler: func(ctx context.Context, userID int, input json.RawMessage) (string, error) {
			var in struct {
				Days int `json:"days"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			return svc.FetchCalendarEvents(ctx, userID, clampLimit(in.Days, 7, 31))
		},
	})

	r.Register(Tool{
		Name:        ToolGetDirections,
		Description: "Get travel directions between two places. Returns distance, duration and the main steps.",
		Schema: ObjectSchema(map[string]interface{}{
			"from": StringProperty("Starting address or place name"),
			"to":   StringProperty("Destination address or place name"),
			"mode": StringEnumProperty("Travel mode", "drive", "walk", "bicycle", "transit"),
		}, "from", "to"),
		Handler: func(ctx context.Context, userID int, input json.RawMessage) (string, error) {
			var in struct {
				From string `json:"from"`
				To   string `json:"to"`
				Mode string `json:"mode"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			if in.Mode == "" {
				in.Mode = "drive"
			}
			return svc.GetDirections(ctx, in.From, in.To, in.Mode)
		},
	})

	r.Register(Tool{
		Name:        ToolWebSearch,
		Description: "Search the web and return the top results with short summaries. Use for questions about current facts, businesses, opening hours and the like.",
		Schema: ObjectSchema(map[string]interface{}{
			"query": StringProperty("The search query"),
		}, "query"),
		Handler: func(ctx context.Context, userID int, input json.RawMessage) (string, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			if in.Query == "" {
				return "", fmt.Errorf("query is required")
			}
			return svc.WebSearch(ctx, in.Query)
		},
	})

	r.Register(Tool{
		Name:        ToolCreateWaitingCheck,
		Description: "Set up a watch that notifies the user when a message matching the given phrase arrives. Use when the user says things like 'tell me when Anna replies about the tickets'.",
		Schema: ObjectSchema(map[string]interface{}{
			"phrase":  StringProperty("What to watch for, in the user's words"),
			"service": StringEnumProperty("Which message source to watch", "whatsapp", "email"),
		}, "phrase", "service"),
		Handler: func(ctx context.Context, userID int, input json.RawMessage) (string, error) {
			var in struct {
				Phrase  string `json:"phrase"`
				Service string `json:"service"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
			if in.Phrase == "" || in.Service == "" {
				return "", fmt.Errorf("phrase and service are required")
			}
			return svc.CreateWaitingCheck(ctx, userID, in.Phrase, in.Service)
		},
	})

	return r
}

func clampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
