package dto

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type SessionResponse struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	Role              string     `json:"role"`
	CompanyID         string     `json:"company_id"`
	ExpectedQuestions int        `json:"expected_questions"`
	Status            string     `json:"status"`
	IsPro             bool       `json:"is_pro"`
	JDKeywords        []string   `json:"jd_keywords,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

type QuestionAnswerResponse struct {
	QuestionID   string     `json:"question_id"`
	QuestionText string     `json:"question_text"`
	AudioPath    string     `json:"audio_path,omitempty"`
	AudioURL     string     `json:"audio_url,omitempty"`
	Transcript   *string    `json:"transcript,omitempty"`
	Status       string     `json:"status"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// SessionDetailResponse is the session with its per-question progress.
type SessionDetailResponse struct {
	Session SessionResponse          `json:"session"`
	QA      []QuestionAnswerResponse `json:"qa"`
}

type SubmitAnswerResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type BuildSummaryResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

type QAFeedbackResponse struct {
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

type SummaryResponse struct {
	SessionID        string               `json:"session_id"`
	Status           string               `json:"status"`
	OverallScore     int                  `json:"overall_score"`
	Level            string               `json:"level,omitempty"`
	Strengths        []string             `json:"strengths,omitempty"`
	Improvements     []string             `json:"improvements,omitempty"`
	Tips             []string             `json:"tips,omitempty"`
	QA               []QAFeedbackResponse `json:"qa,omitempty"`
	TotalQuestions   int                  `json:"total_questions"`
	TotalSpeakingSec float64              `json:"total_speaking_sec"`
	ErrorMessage     string               `json:"error,omitempty"`
	StartedAt        *time.Time           `json:"started_at,omitempty"`
	EndedAt          *time.Time           `json:"ended_at,omitempty"`
}

type JDParseResponse struct {
	SessionID string   `json:"session_id"`
	Keywords  []string `json:"keywords"`
}

type TagExtractResponse struct {
	Tags []string `json:"tags"`
}
