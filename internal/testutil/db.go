package testutil

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prepview/prepview/internal/model"
)

// SetupTestDB opens an in-memory SQLite database with all models migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect test database: %v", err)
	}

	// A pooled second connection would see its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.Session{},
		&model.QuestionAnswer{},
		&model.Summary{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the underlying connection.
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

// NewSession returns a session fixture with sane defaults.
func NewSession(id, ownerID string, expectedQuestions int) *model.Session {
	return &model.Session{
		ID:                id,
		OwnerID:           ownerID,
		Role:              "iOS",
		CompanyID:         "generic",
		ExpectedQuestions: expectedQuestions,
		Status:            model.SessionStatusActive,
	}
}

// NewProcessedQA returns a QA fixture that already went through transcription.
func NewProcessedQA(sessionID, questionID, transcript string) *model.QuestionAnswer {
	now := time.Now()
	metrics := &model.SpeechMetrics{
		DurationSec:      45,
		WPM:              130,
		FillerCount:      2,
		FillerRatePerMin: 2.67,
		Sentiment:        "neutral",
	}
	return &model.QuestionAnswer{
		SessionID:    sessionID,
		QuestionID:   questionID,
		OwnerID:      "owner-1",
		QuestionText: "question " + questionID,
		Transcript:   &transcript,
		Metrics:      metrics,
		Status:       model.QAStatusProcessed,
		ProcessedAt:  &now,
	}
}
