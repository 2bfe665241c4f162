package usecases

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/entities"
	"github.com/lightfriend/lightfriend/internal/repository"
)

// ConversationAPI is the slice of the ElevenLabs client the reconciler uses.
type ConversationAPI interface {
	ListConversations(ctx context.Context) ([]clients.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (*clients.ConversationDetail, error)
	DeleteConversation(ctx context.Context, id string) error
}

// VoiceReconciler polls ElevenLabs for finished calls, bills them by
// duration and deletes the conversation so it is never billed twice.
// Deletion is the billing commit point: a conversation still listed is a
// conversation not yet charged.
type VoiceReconciler struct {
	elevenlabs ConversationAPI
	userRepo   *repository.UserRepository
	billing    *BillingUsecase
	logger     zerolog.Logger
}

func NewVoiceReconciler(el ConversationAPI, userRepo *repository.UserRepository,
	billing *BillingUsecase, logger zerolog.Logger) *VoiceReconciler {
	return &VoiceReconciler{
		elevenlabs: el,
		userRepo:   userRepo,
		billing:    billing,
		logger:     logger.With().Str("component", "voice").Logger(),
	}
}

// Tick runs one reconciliation pass.
func (r *VoiceReconciler) Tick(ctx context.Context) error {
	conversations, err := r.elevenlabs.ListConversations(ctx)
	if err != nil {
		return err
	}

	for _, summary := range conversations {
		if summary.Status != "done" {
			continue
		}
		if err := r.settle(ctx, summary.ConversationID); err != nil {
			r.logger.Error().Err(err).
				Str("conversation_id", summary.ConversationID).
				Msg("failed to settle call")
		}
	}
	return nil
}

func (r *VoiceReconciler) settle(ctx context.Context, conversationID string) error {
	detail, err := r.elevenlabs.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}

	log := r.logger.With().Str("conversation_id", conversationID).Logger()

	// Calls started without a user id cannot be attributed. Drop them
	// without touching anyone's balance.
	rawUserID := detail.UserID()
	if rawUserID == "" {
		log.Warn().Msg("call has no user id, discarding")
		return r.elevenlabs.DeleteConversation(ctx, conversationID)
	}

	userID, err := strconv.Atoi(rawUserID)
	if err != nil {
		log.Warn().Str("user_id", rawUserID).Msg("call has malformed user id, discarding")
		return r.elevenlabs.DeleteConversation(ctx, conversationID)
	}

	user, err := r.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		log.Warn().Int("user_id", userID).Msg("call references unknown user, discarding")
		return r.elevenlabs.DeleteConversation(ctx, conversationID)
	}

	seconds := detail.Metadata.CallDurationSecs
	cost := r.billing.VoiceCost(seconds)
	if cost > 0 {
		success := detail.Analysis.CallSuccessful != "failure"
		if err := r.billing.Deduct(ctx, user, cost, entities.UsageVoice, conversationID, success); err != nil {
			// Leave the conversation in place so the next pass retries.
			return err
		}
	}

	log.Info().
		Int("user_id", userID).
		Int("seconds", seconds).
		Float64("cost", cost).
		Str("outcome", detail.Analysis.CallSuccessful).
		Msg("call billed")
	return r.elevenlabs.DeleteConversation(ctx, conversationID)
}
