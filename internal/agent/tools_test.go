package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type fakeServices struct {
	calls []string
}

func (f *fakeServices) FetchEmails(_ context.Context, userID, limit int) (string, error) {
	f.record("fetch_emails", userID, limit)
	return "1. boss: meeting moved", nil
}

func (f *fakeServices) FetchMessages(_ context.Context, userID, limit int) (string, error) {
	f.record("fetch_messages", userID, limit)
	return "anna: see you at 5", nil
}

func (f *fakeServices) SendChatMessage(_ context.Context, userID int, recipient, body string) (string, error) {
	f.calls = append(f.calls, "send_message:"+recipient+":"+body)
	return "sent", nil
}

func (f *fakeServices) FetchCalendarEvents(_ context.Context, userID, days int) (string, error) {
	f.record("fetch_calendar_events", userID, days)
	return "Mon: dentist 10:00", nil
}

func (f *fakeServices) GetDirections(_ context.Context, from, to, mode string) (string, error) {
	f.calls = append(f.calls, "get_directions:"+from+":"+to+":"+mode)
	return "12 km, about 18 min", nil
}

func (f *fakeServices) WebSearch(_ context.Context, query string) (string, error) {
	f.calls = append(f.calls, "web_search:"+query)
	return "1. result", nil
}

func (f *fakeServices) CreateWaitingCheck(_ context.Context, userID int, phrase, service string) (string, error) {
	f.calls = append(f.calls, "create_waiting_check:"+phrase+":"+service)
	return "watching", nil
}

func (f *fakeServices) record(name string, userID, n int) {
	f.calls = append(f.calls, name)
}

func TestRegistryHasAllTools(t *testing.T) {
	r := BuildRegistry(&fakeServices{})

	want := []ToolName{
		ToolFetchEmails, ToolFetchMessages, ToolSendMessage,
		ToolFetchCalendar, ToolGetDirections, ToolWebSearch,
		ToolCreateWaitingCheck,
	}
	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("got %d tools, want %d", len(names), len(want))
	}
	for _, name := range want {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
	if len(r.APITools()) != len(want) {
		t.Errorf("APITools returned %d entries, want %d", len(r.APITools()), len(want))
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := BuildRegistry(&fakeServices{})
	if _, ok := r.Get("delete_account"); ok {
		t.Fatal("unexpected tool registered")
	}
}

func TestToolDispatch(t *testing.T) {
	tests := []struct {
		name       ToolName
		input      string
		wantCall   string
		wantResult string
	}{
		{ToolSendMessage, `{"recipient":"+358401234567","body":"on my way"}`,
			"send_message:+358401234567:on my way", "sent"},
		{ToolGetDirections, `{"from":"Kamppi","to":"Airport"}`,
			"get_directions:Kamppi:Airport:drive", "12 km"},
		{ToolWebSearch, `{"query":"pharmacy open now"}`,
			"web_search:pharmacy open now", "1. result"},
		{ToolCreateWaitingCheck, `{"phrase":"anna replies about tickets","service":"whatsapp"}`,
			"create_waiting_check:anna replies about tickets:whatsapp", "watching"},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			svc := &fakeServices{}
			r := BuildRegistry(svc)
			tool, ok := r.Get(tt.name)
			if !ok {
				t.Fatalf("tool %q not registered", tt.name)
			}

			result, err := tool.Handler(context.Background(), 7, json.RawMessage(tt.input))
			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			if !strings.Contains(result, tt.wantResult) {
				t.Errorf("result = %q, want substring %q", result, tt.wantResult)
			}
			if len(svc.calls) != 1 || svc.calls[0] != tt.wantCall {
				t.Errorf("calls = %v, want [%s]", svc.calls, tt.wantCall)
			}
		})
	}
}

func TestToolDispatchRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  ToolName
		input string
	}{
		{ToolSendMessage, `{"recipient":"","body":""}`},
		{ToolWebSearch, `{}`},
		{ToolCreateWaitingCheck, `{"phrase":"x"}`},
		{ToolSendMessage, `not json`},
	}

	for _, tt := range tests {
		t.Run(string(tt.name)+"/"+tt.input, func(t *testing.T) {
			r := BuildRegistry(&fakeServices{})
			tool, _ := r.Get(tt.name)
			if _, err := tool.Handler(context.Background(), 7, json.RawMessage(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		n, def, max, want int
	}{
		{0, 5, 10, 5},
		{-3, 5, 10, 5},
		{7, 5, 10, 7},
		{25, 5, 10, 10},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.n, tt.def, tt.max); got != tt.want {
			t.Errorf("clampLimit(%d, %d, %d) = %d, want %d", tt.n, tt.def, tt.max, got, tt.want)
		}
	}
}
