package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/database"
	"github.com/prepview/prepview/internal/controller"
	"github.com/prepview/prepview/internal/logger"
	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/pubsub"
	"github.com/prepview/prepview/internal/queue"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/service"
	"github.com/prepview/prepview/internal/storage"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title PrepView Interview Practice API
// @version 1.0
// @description API for mock-interview practice sessions: answer ingestion, transcription pipeline and AI summary generation.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewRedisClient,
			NewGinEngine,
		),

		fx.Provide(
			storage.NewOSSStore,
			queue.NewAudioEvents,
			queue.NewSummaryBuilds,
			pubsub.NewPublisher,
		),

		fx.Provide(
			repository.NewSessionRepository,
			repository.NewQARepository,
			repository.NewSummaryRepository,
		),

		fx.Provide(
			service.NewGeminiLLMService,
			service.NewKeywordService,
			service.NewRubricService,
			func(sr repository.SessionRepository, qr repository.QARepository, sumr repository.SummaryRepository, builds *queue.SummaryBuilds) service.ReadinessService {
				return service.NewReadinessService(sr, qr, sumr, builds)
			},
			func(
				sr repository.SessionRepository,
				qr repository.QARepository,
				sumr repository.SummaryRepository,
				gemini service.GeminiLLMService,
				rubric service.RubricService,
				keywords service.KeywordService,
				publisher *pubsub.Publisher,
				cfg *config.Config,
			) service.SummaryService {
				return service.NewSummaryService(sr, qr, sumr, gemini, rubric, keywords, publisher, cfg)
			},
			func(sr repository.SessionRepository, qr repository.QARepository, store storage.AudioStore, events *queue.AudioEvents) service.IngestionService {
				return service.NewIngestionService(sr, qr, store, events)
			},
			service.NewJDService,
		),

		fx.Provide(
			controller.NewSessionController,
			controller.NewSummaryController,
			controller.NewEventController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	sessionCtrl *controller.SessionController,
	summaryCtrl *controller.SummaryController,
	eventCtrl *controller.EventController,
) {
	api := router.Group("/api/v1")
	{
		sessions := api.Group("/sessions")
		sessions.POST("", sessionCtrl.CreateSession)
		sessions.GET("/:session_id", sessionCtrl.GetSession)
		sessions.POST("/:session_id/questions/:question_id/answers", sessionCtrl.SubmitAnswer)
		sessions.POST("/:session_id/questions/:question_id/skip", sessionCtrl.SkipQuestion)
		sessions.POST("/:session_id/jd", sessionCtrl.ParseJD)
		sessions.POST("/:session_id/summary", summaryCtrl.BuildSummary)
		sessions.GET("/:session_id/summary", summaryCtrl.GetSummary)

		api.POST("/tags/extract", sessionCtrl.ExtractTags)
		api.POST("/events/audio", eventCtrl.ReceiveAudioEvent)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("PrepView API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Session{},
		&model.QuestionAnswer{},
		&model.Summary{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
