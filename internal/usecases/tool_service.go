package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/entities"
	"github.com/lightfriend/lightfriend/internal/infrastructure"
	"github.com/lightfriend/lightfriend/internal/repository"
)

// ToolService backs the assistant's tools with the real integrations. Every
// method returns plain text shaped for reading back over SMS.
type ToolService struct {
	connRepo  *repository.ConnectionRepository
	msgRepo   *repository.MessageRepository
	checkRepo *repository.WaitingCheckRepository
	userRepo  *repository.UserRepository
	google    *clients.GoogleClient
	geoapify  *clients.GeoapifyClient
	firecrawl *clients.FirecrawlClient
	whatsapp  *infrastructure.WhatsAppManager
	logger    zerolog.Logger
}

func NewToolService(connRepo *repository.ConnectionRepository, msgRepo *repository.MessageRepository,
	checkRepo *repository.WaitingCheckRepository, userRepo *repository.UserRepository,
	google *clients.GoogleClient, geoapify *clients.GeoapifyClient, firecrawl *clients.FirecrawlClient,
	whatsapp *infrastructure.WhatsAppManager, logger zerolog.Logger) *ToolService {
	return &ToolService{
		connRepo:  connRepo,
		msgRepo:   msgRepo,
		checkRepo: checkRepo,
		userRepo:  userRepo,
		google:    google,
		geoapify:  geoapify,
		firecrawl: firecrawl,
		whatsapp:  whatsapp,
		logger:    logger.With().Str("component", "tools").Logger(),
	}
}

// RecentInbox returns the user's newest inbox emails in raw form. The
// waiting-check matcher judges these directly.
func (s *ToolService) RecentInbox(ctx context.Context, userID, limit int) ([]clients.GmailMessage, error) {
	token, err := s.accessToken(ctx, userID, entities.ProviderGmail)
	if err != nil {
		return nil, err
	}
	return s.google.RecentEmails(ctx, token, limit)
}

func (s *ToolService) FetchEmails(ctx context.Context, userID, limit int) (string, error) {
	emails, err := s.RecentInbox(ctx, userID, limit)
	if err != nil {
		return "", fmt.Errorf("fetch emails: %w", err)
	}
	if len(emails) == 0 {
		return "No new emails.", nil
	}

	var b strings.Builder
	for i, m := range emails {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, m.From, m.Subject)
		if m.Snippet != "" {
			fmt.Fprintf(&b, " (%s)", m.Snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *ToolService) FetchMessages(ctx context.Context, userID, limit int) (string, error) {
	msgs, err := s.msgRepo.Recent(ctx, userID, limit)
	if err != nil {
		return "", fmt.Errorf("fetch messages: %w", err)
	}
	if len(msgs) == 0 {
		return "No recent messages.", nil
	}

	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s %s: %s\n", m.Timestamp.Format("Jan 2 15:04"), m.Sender, m.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *ToolService) SendChatMessage(ctx context.Context, userID int, recipient, body string) (string, error) {
	client := s.whatsapp.GetClient(userID)
	if client == nil || !client.IsLoggedIn() {
		return "", errors.New("WhatsApp is not connected. Link it from the dashboard first.")
	}

	to := strings.TrimPrefix(strings.TrimSpace(recipient), "+")
	if err := client.SendMessage(to, body); err != nil {
		return "", fmt.Errorf("send whatsapp message: %w", err)
	}

	if err := s.msgRepo.Store(ctx, &entities.Message{
		UserID:    userID,
		Platform:  "whatsapp",
		Sender:    "me",
		Content:   body,
		Outbound:  true,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("failed to store outbound message")
	}
	return "Message sent to " + recipient + ".", nil
}

func (s *ToolService) FetchCalendarEvents(ctx context.Context, userID, days int) (string, error) {
	token, err := s.accessToken(ctx, userID, entities.ProviderGoogleCalendar)
	if err != nil {
		return "", err
	}

	events, err := s.google.UpcomingEvents(ctx, token, days)
	if err != nil {
		return "", fmt.Errorf("fetch calendar: %w", err)
	}
	if len(events) == 0 {
		return fmt.Sprintf("No events in the next %d days.", days), nil
	}

	var b strings.Builder
	for _, ev := range events {
		b.WriteString(formatEvent(ev))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *ToolService) GetDirections(ctx context.Context, from, to, mode string) (string, error) {
	return s.geoapify.Directions(ctx, from, to, mode)
}

func (s *ToolService) WebSearch(ctx context.Context, query string) (string, error) {
	return s.firecrawl.Search(ctx, query)
}

func (s *ToolService) CreateWaitingCheck(ctx context.Context, userID int, phrase, service string) (string, error) {
	if service == "whatsapp" {
		service = "messaging"
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("user not found")
	}

	check := &entities.WaitingCheck{
		UserID:      userID,
		Phrase:      phrase,
		Service:     service,
		NotifyVia:   user.NotifyVia,
		LastScanned: time.Now().UTC(),
	}
	if err := s.checkRepo.Create(ctx, check); err != nil {
		return "", fmt.Errorf("create waiting check: %w", err)
	}
	return fmt.Sprintf("Got it. I'll let you know when a message about %q arrives.", phrase), nil
}

// accessToken returns a valid access token for the provider, refreshing and
// persisting it when expired.
func (s *ToolService) accessToken(ctx context.Context, userID int, provider string) (string, error) {
	conn, err := s.connRepo.Get(ctx, userID, provider)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", fmt.Errorf("%s is not connected. Link it from the dashboard first.", provider)
	}
	if !conn.Expired() {
		return conn.AccessToken, nil
	}

	tok, err := s.google.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh %s token: %w", provider, err)
	}
	expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := s.connRepo.UpdateAccessToken(ctx, userID, provider, tok.AccessToken, expiresAt); err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Str("provider", provider).
			Msg("failed to persist refreshed token")
	}
	return tok.AccessToken, nil
}

func formatEvent(ev clients.CalendarEvent) string {
	when := ev.Start.DateTime
	if when == "" {
		when = ev.Start.Date
	}
	if t, err := time.Parse(time.RFC3339, when); err == nil {
		when = t.Format("Mon Jan 2 15:04")
	}
	out := when + ": " + ev.Summary
	if ev.Location != "" {
		out += " @ " + ev.Location
	}
	return out
}
