package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/lightfriend/lightfriend/internal/agent"
	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/config"
	"github.com/lightfriend/lightfriend/internal/entities"
	"github.com/lightfriend/lightfriend/internal/infrastructure"
	api "github.com/lightfriend/lightfriend/internal/interfaces/http"
	"github.com/lightfriend/lightfriend/internal/repository"
	"github.com/lightfriend/lightfriend/internal/scheduler"
	"github.com/lightfriend/lightfriend/internal/usecases"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadAll()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}

	pg, err := infrastructure.NewPostgresClient(cfg.Database.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pg.Close()

	cipher, err := infrastructure.NewTokenCipher(cfg.Auth.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid encryption key")
	}

	// Repositories
	userRepo := repository.NewUserRepository(pg.Pool)
	subRepo := repository.NewSubscriptionRepository(pg.Pool)
	checkRepo := repository.NewWaitingCheckRepository(pg.Pool)
	bridgeRepo := repository.NewBridgeRepository(pg.Pool)
	connRepo := repository.NewConnectionRepository(pg.Pool, cipher)
	msgRepo := repository.NewMessageRepository(pg.Pool)
	usageRepo := repository.NewUsageRepository(pg.Pool)
	outboxRepo := repository.NewOutboxRepository(pg.Pool)

	// Conversation cache
	var cache infrastructure.ConversationCache = infrastructure.NoopConversationCache{}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, running without conversation cache")
		} else {
			cache = infrastructure.NewRedisConversationCache(rdb, cfg.Redis.TTL)
		}
	}

	// External clients
	twilioClient := clients.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.Numbers)
	lsClient := clients.NewLemonSqueezyClient(cfg.Billing.LemonSqueezyAPIKey, cfg.Billing.LemonSqueezyStoreID,
		cfg.Billing.LemonSqueezyVariantID, cfg.Billing.LemonSqueezyWebhookSecret)
	paddleClient := clients.NewPaddleClient(cfg.Billing.PaddleAPIKey, cfg.Billing.PaddleWebhookSecret, cfg.Billing.PaddlePriceID)
	elevenClient := clients.NewElevenLabsClient(cfg.Voice.ElevenLabsAPIKey)
	googleClient := clients.NewGoogleClient(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	geoapifyClient := clients.NewGeoapifyClient(cfg.Geoapify.APIKey)
	firecrawlClient := clients.NewFirecrawlClient(cfg.Firecrawl.APIKey)

	telegramNotifier, err := clients.NewTelegramNotifier(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram disabled")
	}

	// WhatsApp bridge: incoming direct messages are persisted so the
	// fetch_messages tool and the waiting-check matcher can read them.
	waManager := infrastructure.NewWhatsAppManager(cfg.WhatsApp.DeviceDir, logger)
	waManager.HandlerFactory = func(userID int) func(interface{}) {
		return func(evt interface{}) {
			v, ok := evt.(*events.Message)
			if !ok || v.Info.IsGroup {
				return
			}
			client := waManager.GetClient(userID)
			if client == nil {
				return
			}
			sender, content := client.ParseMessage(v)
			if content == "" {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := msgRepo.Store(ctx, &entities.Message{
				UserID:    userID,
				Platform:  "whatsapp",
				Sender:    sender,
				Content:   content,
				Outbound:  v.Info.IsFromMe,
				Timestamp: v.Info.Timestamp,
			}); err != nil {
				logger.Error().Err(err).Int("user_id", userID).Msg("failed to store bridged message")
			}
		}
	}

	// Agent
	toolService := usecases.NewToolService(connRepo, msgRepo, checkRepo, userRepo,
		googleClient, geoapifyClient, firecrawlClient, waManager, logger)
	registry := agent.BuildRegistry(toolService)
	engine := agent.NewEngine(cfg.Anthropic.APIKey, cfg.Anthropic.Model, registry, logger)

	// Usecases
	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.Auth.JWTSecret)
	billing := usecases.NewBillingUsecase(userRepo, usageRepo, outboxRepo, cfg.Rates, logger)
	pending := infrastructure.NewPendingRegistry()
	smsLimiter := infrastructure.NewSMSRateLimiter(0.5, 3)
	messageService := usecases.NewMessageService(userRepo, billing, engine, cache,
		pending, smsLimiter, twilioClient, logger)

	// Background schedulers
	reconciler := usecases.NewVoiceReconciler(elevenClient, userRepo, billing, logger)
	matcher := usecases.NewCheckMatcher(checkRepo, msgRepo, toolService, outboxRepo, engine, logger)
	dispatcher := usecases.NewOutboxDispatcher(outboxRepo, userRepo, subRepo, billing,
		paddleClient, twilioClient, telegramNotifier, logger)

	schedulers := make([]*scheduler.Scheduler, 0, 3)
	for _, def := range []struct {
		name     string
		interval time.Duration
		tick     func(context.Context) error
	}{
		{"voice", cfg.Schedulers.VoiceInterval, reconciler.Tick},
		{"checks", cfg.Schedulers.CheckInterval, matcher.Tick},
		{"outbox", cfg.Schedulers.OutboxInterval, dispatcher.Tick},
	} {
		s, err := scheduler.New(def.name, def.interval, def.tick, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("scheduler", def.name).Msg("invalid scheduler")
		}
		s.Start()
		schedulers = append(schedulers, s)
	}

	// HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	deps := api.Deps{
		Auth:         authUsecase,
		Billing:      billing,
		Messages:     messageService,
		UserRepo:     userRepo,
		UsageRepo:    usageRepo,
		CheckRepo:    checkRepo,
		SubRepo:      subRepo,
		ConnRepo:     connRepo,
		BridgeRepo:   bridgeRepo,
		Cache:        cache,
		WhatsApp:     waManager,
		Twilio:       twilioClient,
		LemonSqueezy: lsClient,
		Paddle:       paddleClient,
		Google:       googleClient,
		PublicURL:    cfg.Server.PublicURL,
		MonthlyQuota: cfg.Rates.MonthlyQuota,
		Logger:       logger,
	}
	api.SetupRoutes(router, deps, api.NewMiddleware(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}

	for _, s := range schedulers {
		s.Stop()
	}
	waManager.DisconnectAll()
}
