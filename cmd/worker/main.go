package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/database"
	"github.com/prepview/prepview/internal/logger"
	"github.com/prepview/prepview/internal/pubsub"
	"github.com/prepview/prepview/internal/queue"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/service"
	"github.com/prepview/prepview/internal/storage"
	"github.com/rs/zerolog/log"
)

// popTimeout bounds each blocking queue read so shutdown stays responsive.
const popTimeout = 5 * time.Second

func main() {
	logger.Init()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect database")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect redis")
	}

	store, err := storage.NewOSSStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init audio store")
	}

	stt, err := service.NewGoogleSpeechService(store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init speech client")
	}

	gemini, err := service.NewGeminiLLMService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init Gemini client")
	}

	audioEvents := queue.NewAudioEvents(rdb)
	summaryBuilds := queue.NewSummaryBuilds(rdb)
	publisher := pubsub.NewPublisher(rdb)

	sessionRepo := repository.NewSessionRepository(db)
	qaRepo := repository.NewQARepository(db)
	summaryRepo := repository.NewSummaryRepository(db)

	rubric := service.NewRubricService()
	keywords := service.NewKeywordService()
	readiness := service.NewReadinessService(sessionRepo, qaRepo, summaryRepo, summaryBuilds)
	transcription := service.NewTranscriptionService(stt, qaRepo, readiness, cfg)
	summaries := service.NewSummaryService(sessionRepo, qaRepo, summaryRepo, gemini, rubric, keywords, publisher, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	log.Info().Msg("Worker started, draining audio_events and summary_builds")

	go drainAudioEvents(ctx, audioEvents, transcription)
	drainSummaryBuilds(ctx, summaryBuilds, summaries)

	log.Info().Msg("Worker stopped")
}

func drainAudioEvents(ctx context.Context, q *queue.AudioEvents, transcription service.TranscriptionService) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := q.Pop(ctx, popTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("Failed to pop audio event")
				time.Sleep(time.Second)
				continue
			}
			if msg == nil {
				continue
			}
			if err := transcription.HandleAudioEvent(ctx, msg); err != nil {
				log.Error().Err(err).Str("path", msg.Path).Msg("Audio event processing failed")
			}
		}
	}
}

func drainSummaryBuilds(ctx context.Context, q *queue.SummaryBuilds, summaries service.SummaryService) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := q.Pop(ctx, popTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("Failed to pop summary build job")
				time.Sleep(time.Second)
				continue
			}
			if msg == nil {
				continue
			}
			if err := summaries.Build(ctx, msg.SessionID); err != nil {
				// Build already wrote the error into the summary record.
				log.Error().Err(err).Str("sessionId", msg.SessionID).Msg("Summary build failed")
			}
		}
	}
}
