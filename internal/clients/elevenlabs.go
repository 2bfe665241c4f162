package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabsClient covers the conversational-AI endpoints the voice
// reconciler needs: list, fetch details, delete.
type ElevenLabsClient struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewElevenLabsClient(apiKey string) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: elevenLabsBaseURL,
	}
}

type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

type ConversationDetail struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	Metadata       struct {
		CallDurationSecs int `json:"call_duration_secs"`
	} `json:"metadata"`
	Analysis struct {
		CallSuccessful string `json:"call_successful"` // "success", "failure", "unknown"
	} `json:"analysis"`
	ConversationInitiationClientData struct {
		DynamicVariables map[string]string `json:"dynamic_variables"`
	} `json:"conversation_initiation_client_data"`
}

// UserID returns the user id carried in the call's dynamic variables, empty
// when the call was started without one.
func (d *ConversationDetail) UserID() string {
	return d.ConversationInitiationClientData.DynamicVariables["user_id"]
}

type listConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

func (c *ElevenLabsClient) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var lr listConversationsResponse
	if err := c.get(ctx, "/convai/conversations", &lr); err != nil {
		return nil, err
	}
	return lr.Conversations, nil
}

func (c *ElevenLabsClient) GetConversation(ctx context.Context, id string) (*ConversationDetail, error) {
	var detail ConversationDetail
	if err := c.get(ctx, "/convai/conversations/"+id, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *ElevenLabsClient) DeleteConversation(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/convai/conversations/"+id, nil)
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("elevenlabs delete status %d: %s", resp.StatusCode, truncateBody(payload))
	}
	return nil
}

func (c *ElevenLabsClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, truncateBody(payload))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode elevenlabs response: %w", err)
	}
	return nil
}
