package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/entities"
)

const judgePrompt = `You decide whether an incoming message fulfils what a user is waiting for.
Answer with a single word: yes or no.`

// How many inbox emails a single email-check pass judges.
const emailScanLimit = 5

// NotifyPayload is the outbox job body for a waiting-check notification.
type NotifyPayload struct {
	UserID int    `json:"user_id"`
	Via    string `json:"via"`
	Text   string `json:"text"`
}

// WaitingCheckStore is the check persistence the matcher needs.
type WaitingCheckStore interface {
	GetAll(ctx context.Context) ([]entities.WaitingCheck, error)
	MarkScanned(ctx context.Context, id int, at time.Time) error
	Delete(ctx context.Context, id, userID int) error
}

// MessageSource provides stored chat messages newer than a point in time.
type MessageSource interface {
	Since(ctx context.Context, userID int, since time.Time) ([]entities.Message, error)
}

// EmailSource provides a user's newest inbox emails.
type EmailSource interface {
	RecentInbox(ctx context.Context, userID, limit int) ([]clients.GmailMessage, error)
}

// MatchJudge answers whether a message fulfils a watch phrase.
type MatchJudge interface {
	Judge(ctx context.Context, systemPrompt, question string) (bool, error)
}

// CheckMatcher scans new messages and emails against waiting checks. A match
// enqueues a notification and removes the check; one check fires at most once.
type CheckMatcher struct {
	checks   WaitingCheckStore
	messages MessageSource
	emails   EmailSource
	outbox   JobQueue
	judge    MatchJudge
	logger   zerolog.Logger
}

func NewCheckMatcher(checks WaitingCheckStore, messages MessageSource, emails EmailSource,
	outbox JobQueue, judge MatchJudge, logger zerolog.Logger) *CheckMatcher {
	return &CheckMatcher{
		checks:   checks,
		messages: messages,
		emails:   emails,
		outbox:   outbox,
		judge:    judge,
		logger:   logger.With().Str("component", "checks").Logger(),
	}
}

// Tick runs one scan pass over all waiting checks.
func (m *CheckMatcher) Tick(ctx context.Context) error {
	checks, err := m.checks.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, check := range checks {
		var err error
		switch check.Service {
		case "messaging":
			err = m.scanMessages(ctx, check)
		case "email":
			err = m.scanEmails(ctx, check)
		default:
			m.logger.Warn().Int("check_id", check.ID).Str("service", check.Service).
				Msg("check with unknown service skipped")
			continue
		}
		if err != nil {
			m.logger.Error().Err(err).Int("check_id", check.ID).Msg("scan failed")
		}
	}
	return nil
}

func (m *CheckMatcher) scanMessages(ctx context.Context, check entities.WaitingCheck) error {
	msgs, err := m.messages.Since(ctx, check.UserID, check.LastScanned)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	for _, msg := range msgs {
		matched, err := m.judge.Judge(ctx, judgePrompt, fmt.Sprintf(
			"The user is waiting for: %q\nIncoming message from %s: %q\nDoes this message fulfil what the user is waiting for?",
			check.Phrase, msg.Sender, msg.Content))
		if err != nil {
			// Leave last_scanned untouched so this message is retried.
			return err
		}
		if !matched {
			continue
		}

		text := fmt.Sprintf("lightfriend: %s replied about %q: %s",
			msg.Sender, check.Phrase, msg.Content)
		return m.fire(ctx, check, msg.Sender, text)
	}

	return m.checks.MarkScanned(ctx, check.ID, msgs[len(msgs)-1].Timestamp)
}

// scanEmails judges the newest inbox slice. Gmail snippets carry no
// timestamp in our projection, so every pass looks at the current head of
// the inbox; the check is removed on the first match.
func (m *CheckMatcher) scanEmails(ctx context.Context, check entities.WaitingCheck) error {
	emails, err := m.emails.RecentInbox(ctx, check.UserID, emailScanLimit)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		return nil
	}

	for _, em := range emails {
		matched, err := m.judge.Judge(ctx, judgePrompt, fmt.Sprintf(
			"The user is waiting for: %q\nIncoming email from %s, subject %q: %s\nDoes this email fulfil what the user is waiting for?",
			check.Phrase, em.From, em.Subject, em.Snippet))
		if err != nil {
			return err
		}
		if !matched {
			continue
		}

		text := fmt.Sprintf("lightfriend: email from %s about %q: %s",
			em.From, check.Phrase, em.Subject)
		return m.fire(ctx, check, em.From, text)
	}

	return m.checks.MarkScanned(ctx, check.ID, time.Now().UTC())
}

func (m *CheckMatcher) fire(ctx context.Context, check entities.WaitingCheck, sender, text string) error {
	m.logger.Info().
		Int("check_id", check.ID).
		Int("user_id", check.UserID).
		Str("sender", sender).
		Msg("waiting check matched")

	payload := NotifyPayload{
		UserID: check.UserID,
		Via:    check.NotifyVia,
		Text:   text,
	}
	if err := m.outbox.Enqueue(ctx, entities.JobNotify, payload); err != nil {
		return err
	}
	return m.checks.Delete(ctx, check.ID, check.UserID)
}
