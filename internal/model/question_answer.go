package model

import (
	"time"

	"gorm.io/gorm"
)

// QA statuses. uploaded -> processed exactly once; skipped is terminal from creation.
const (
	QAStatusUploaded  = "uploaded"
	QAStatusProcessed = "processed"
	QAStatusSkipped   = "skipped"
)

// SpeechMetrics are derived from the transcription word timestamps.
type SpeechMetrics struct {
	DurationSec      float64  `json:"duration_sec"`
	WPM              int      `json:"wpm"`
	FillerCount      int      `json:"filler_count"`
	FillerRatePerMin float64  `json:"filler_rate_per_min"`
	AvgPauseSec      *float64 `json:"avg_pause_sec,omitempty"`
	Sentiment        string   `json:"sentiment,omitempty"`
}

// QuestionAnswer is one question plus the user's recorded response, keyed by
// (session id, question id). Transcript and metrics are nil until the
// transcription worker marks the record processed.
type QuestionAnswer struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	SessionID    string         `json:"session_id" gorm:"not null;uniqueIndex:idx_session_question"`
	QuestionID   string         `json:"question_id" gorm:"not null;uniqueIndex:idx_session_question"`
	OwnerID      string         `json:"owner_id" gorm:"index"`
	QuestionText string         `json:"question_text" gorm:"type:text"`
	AudioPath    string         `json:"audio_path,omitempty"`
	AudioURL     string         `json:"audio_url,omitempty"`
	Transcript   *string        `json:"transcript,omitempty" gorm:"type:text"`
	Metrics      *SpeechMetrics `json:"metrics,omitempty" gorm:"serializer:json"`
	Status       string         `json:"status" gorm:"default:'uploaded';index"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
