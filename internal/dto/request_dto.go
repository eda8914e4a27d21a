package dto

// CreateSessionRequest starts (or idempotently re-creates) a practice session.
type CreateSessionRequest struct {
	SessionID         string `json:"session_id" binding:"required"`
	OwnerID           string `json:"owner_id" binding:"required"`
	Role              string `json:"role"`
	CompanyID         string `json:"company_id"`
	ExpectedQuestions int    `json:"expected_questions" binding:"required,min=1,max=20"`
	IsPro             bool   `json:"is_pro"`
}

// SubmitAnswerForm is the multipart form accompanying the audio file.
type SubmitAnswerForm struct {
	OwnerID      string `form:"owner_id" binding:"required"`
	QuestionText string `form:"question_text"`
	Language     string `form:"language"`
}

// SkipQuestionRequest records a question answered without audio.
type SkipQuestionRequest struct {
	OwnerID      string `json:"owner_id" binding:"required"`
	QuestionText string `json:"question_text"`
}

// AudioEventRequest is the storage object-created callback payload.
type AudioEventRequest struct {
	Bucket      string            `json:"bucket"`
	Path        string            `json:"path" binding:"required"`
	ContentType string            `json:"content_type" binding:"required"`
	Metadata    map[string]string `json:"metadata"`
}

// JDParseRequest carries a job description as a URL or raw text.
type JDParseRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
	Role string `json:"role"`
}

// TagExtractRequest asks for tags for one question, biased by the session
// role and any JD keywords already extracted.
type TagExtractRequest struct {
	Question   string   `json:"question" binding:"required"`
	Role       string   `json:"role"`
	JDKeywords []string `json:"jd_keywords"`
	TopK       int      `json:"top_k"`
}
