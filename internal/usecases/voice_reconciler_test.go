package usecases

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
)

type fakeConversationAPI struct {
	summaries []clients.ConversationSummary
	details   map[string]*clients.ConversationDetail
	deleted   []string
}

func (f *fakeConversationAPI) ListConversations(context.Context) ([]clients.ConversationSummary, error) {
	return f.summaries, nil
}

func (f *fakeConversationAPI) GetConversation(_ context.Context, id string) (*clients.ConversationDetail, error) {
	return f.details[id], nil
}

func (f *fakeConversationAPI) DeleteConversation(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func detailWithUser(id, userID string, secs int) *clients.ConversationDetail {
	d := &clients.ConversationDetail{ConversationID: id, Status: "done"}
	d.Metadata.CallDurationSecs = secs
	if userID != "" {
		d.ConversationInitiationClientData.DynamicVariables = map[string]string{"user_id": userID}
	}
	return d
}

// A finished call without a user id must be discarded without any billing.
// The reconciler is built with nil repositories here, so reaching the
// billing path would panic the test.
func TestVoiceReconciler_DiscardsUnattributedCalls(t *testing.T) {
	api := &fakeConversationAPI{
		summaries: []clients.ConversationSummary{
			{ConversationID: "conv-1", Status: "done"},
			{ConversationID: "conv-2", Status: "done"},
		},
		details: map[string]*clients.ConversationDetail{
			"conv-1": detailWithUser("conv-1", "", 120),
			"conv-2": detailWithUser("conv-2", "not-a-number", 60),
		},
	}

	r := NewVoiceReconciler(api, nil, nil, zerolog.Nop())
	if err := r.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(api.deleted) != 2 {
		t.Fatalf("expected both conversations deleted, got %v", api.deleted)
	}
}

// Calls still in progress are left alone entirely.
func TestVoiceReconciler_SkipsUnfinishedCalls(t *testing.T) {
	api := &fakeConversationAPI{
		summaries: []clients.ConversationSummary{
			{ConversationID: "conv-1", Status: "in-progress"},
			{ConversationID: "conv-2", Status: "initiated"},
		},
	}

	r := NewVoiceReconciler(api, nil, nil, zerolog.Nop())
	if err := r.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(api.deleted) != 0 {
		t.Fatalf("expected no deletions, got %v", api.deleted)
	}
}
