package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/agent"
	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/entities"
	"github.com/lightfriend/lightfriend/internal/infrastructure"
	"github.com/lightfriend/lightfriend/internal/repository"
)

const systemPromptTemplate = `You are lightfriend, a personal assistant reached over SMS from a basic phone.
The user cannot open links or see images, so answer in short plain text that fits in one or two SMS messages.
Use the available tools to check email, messages, calendar, directions and the web when the question needs them.
Today is %s. The user's phone number is %s.`

// MessageService runs the inbound SMS pipeline: rate limit, credit gate,
// agent loop, reply, deduction. A newer message from the same user cancels
// the reply of an in-flight older one.
type MessageService struct {
	userRepo *repository.UserRepository
	billing  *BillingUsecase
	engine   *agent.Engine
	cache    infrastructure.ConversationCache
	pending  *infrastructure.PendingRegistry
	limiter  *infrastructure.SMSRateLimiter
	twilio   *clients.TwilioClient
	logger   zerolog.Logger
}

func NewMessageService(userRepo *repository.UserRepository, billing *BillingUsecase,
	engine *agent.Engine, cache infrastructure.ConversationCache,
	pending *infrastructure.PendingRegistry, limiter *infrastructure.SMSRateLimiter,
	twilio *clients.TwilioClient, logger zerolog.Logger) *MessageService {
	return &MessageService{
		userRepo: userRepo,
		billing:  billing,
		engine:   engine,
		cache:    cache,
		pending:  pending,
		limiter:  limiter,
		twilio:   twilio,
		logger:   logger.With().Str("component", "messages").Logger(),
	}
}

// HandleInbound processes one SMS from a user. The Twilio webhook answers
// immediately; this runs in its own goroutine with a fresh context.
func (s *MessageService) HandleInbound(ctx context.Context, from, to, body string) {
	log := s.logger.With().Str("from", from).Logger()

	user, err := s.userRepo.GetByPhone(ctx, from)
	if err != nil {
		log.Error().Err(err).Msg("lookup user")
		return
	}
	if user == nil {
		log.Info().Msg("message from unknown number ignored")
		return
	}

	if !s.limiter.Allow(from) {
		log.Warn().Int("user_id", user.ID).Msg("rate limited")
		return
	}

	cost := s.billing.MessageCost(user)
	if err := s.billing.CheckCredits(user, cost); err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			s.reply(ctx, user, to,
				"You're out of credits. Top up from the lightfriend dashboard to keep texting.")
			return
		}
		log.Error().Err(err).Int("user_id", user.ID).Msg("credit check")
		return
	}

	// A newer message from the same user closes this channel; the stale
	// reply is then dropped instead of sent.
	cancelCh := s.pending.Register(user.ID)
	defer s.pending.Release(user.ID, cancelCh)

	history, err := s.cache.Recent(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("load conversation")
	}

	answer, err := s.engine.Run(ctx, user.ID, s.systemPrompt(user), toTurns(history), body)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("agent run failed")
		s.reply(ctx, user, to, "Sorry, something went wrong. Please try again.")
		return
	}
	if answer == "" {
		answer = "Sorry, I could not come up with an answer."
	}

	select {
	case <-cancelCh:
		log.Info().Int("user_id", user.ID).Msg("reply superseded by newer message")
		return
	default:
	}

	sid, err := s.twilio.SendSMS(ctx, s.senderFor(user, to), user.PhoneNumber, answer)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("send reply")
		return
	}

	if err := s.cache.Append(ctx, user.ID, agent.RoleUser, body); err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("cache user turn")
	}
	if err := s.cache.Append(ctx, user.ID, agent.RoleAssistant, answer); err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("cache assistant turn")
	}

	if err := s.billing.Deduct(ctx, user, cost, entities.UsageMessage, sid, true); err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("deduct message cost")
	}
}

// reply sends an out-of-band service message. Not billed.
func (s *MessageService) reply(ctx context.Context, user *entities.User, inboundTo, text string) {
	if _, err := s.twilio.SendSMS(ctx, s.senderFor(user, inboundTo), user.PhoneNumber, text); err != nil {
		s.logger.Error().Err(err).Int("user_id", user.ID).Msg("send service message")
	}
}

// senderFor picks the number to reply from. The number the user texted wins,
// then their preferred number, then the regional default.
func (s *MessageService) senderFor(user *entities.User, inboundTo string) string {
	if inboundTo != "" {
		return inboundTo
	}
	if user.PreferredNumber != "" {
		return user.PreferredNumber
	}
	return s.twilio.SenderNumber("usa")
}

func (s *MessageService) systemPrompt(user *entities.User) string {
	return fmt.Sprintf(systemPromptTemplate,
		time.Now().UTC().Format("Monday, January 2, 2006"), user.PhoneNumber)
}

func toTurns(history []infrastructure.CachedTurn) []agent.Turn {
	turns := make([]agent.Turn, 0, len(history))
	for _, h := range history {
		turns = append(turns, agent.Turn{Role: h.Role, Content: h.Content})
	}
	return turns
}
