package model

import (
	"time"
)

// Summary statuses. pending -> processing -> ready|error; an explicit rebuild
// re-enters processing and fully replaces the previous payload.
const (
	SummaryStatusPending    = "pending"
	SummaryStatusProcessing = "processing"
	SummaryStatusReady      = "ready"
	SummaryStatusError      = "error"
)

// Performance levels derived from the overall score.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

// QAFeedback is the per-question entry of a finished summary. QuestionID and
// QuestionText always mirror the source QA record.
type QAFeedback struct {
	QuestionID        string   `json:"id"`
	QuestionText      string   `json:"questionText"`
	AnswerSummary     string   `json:"answerSummary,omitempty"`
	ModelAnswer       string   `json:"modelAnswer,omitempty"`
	Feedback          string   `json:"feedback,omitempty"`
	Score             int      `json:"score"`
	Tags              []string `json:"tags,omitempty"`
	JDKeywordCoverage bool     `json:"jdKeywordCoverage"`
	MetricSpecificity bool     `json:"metricSpecificity"`
}

// QAFeedbackList is stored as a JSON array column.
type QAFeedbackList []QAFeedback

// Summary is the terminal aggregated result for a session, keyed 1:1 by
// session id. It is a derived projection: the builder fully replaces its
// content on every (re)build.
type Summary struct {
	SessionID        string         `gorm:"primarykey" json:"session_id"`
	OwnerID          string         `json:"owner_id" gorm:"index"`
	Status           string         `json:"status" gorm:"default:'pending';index"`
	OverallScore     int            `json:"overall_score"`
	Level            string         `json:"level,omitempty"`
	Strengths        StringList     `json:"strengths,omitempty" gorm:"serializer:json"`
	Improvements     StringList     `json:"improvements,omitempty" gorm:"serializer:json"`
	Tips             StringList     `json:"tips,omitempty" gorm:"serializer:json"`
	QAFeedback       QAFeedbackList `json:"qa,omitempty" gorm:"serializer:json"`
	TotalQuestions   int            `json:"total_questions"`
	TotalSpeakingSec float64        `json:"total_speaking_sec"`
	ErrorMessage     string         `json:"error,omitempty"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	EndedAt          *time.Time     `json:"ended_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// LevelForScore maps an overall score to a performance level.
// Thresholds: >=80 Advanced, >=60 Intermediate, else Beginner.
func LevelForScore(score int) string {
	switch {
	case score >= 80:
		return LevelAdvanced
	case score >= 60:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}
