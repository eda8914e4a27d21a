package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/pubsub"
	"github.com/prepview/prepview/internal/repository"
	"github.com/rs/zerolog/log"
)

// ProgressPublisher fans summary status transitions out to connected clients.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// modelSummaryPayload is the JSON shape the generation model must return.
type modelSummaryPayload struct {
	OverallScore int                `json:"overallScore"`
	Level        string             `json:"level"`
	Strengths    []string           `json:"strengths"`
	Improvements []string           `json:"improvements"`
	Tips         []string           `json:"tips"`
	QA           []model.QAFeedback `json:"qa"`
}

// SummaryService builds the aggregated session summary. Build is idempotent:
// re-invoking it for the same session fully replaces the previous payload,
// and the structural fields (overall score, level, feedback length) are
// derived deterministically from the QA records rather than taken from the
// model output.
type SummaryService interface {
	Build(ctx context.Context, sessionID string) error
}

type summaryService struct {
	sessionRepo repository.SessionRepository
	qaRepo      repository.QARepository
	summaryRepo repository.SummaryRepository
	gemini      GeminiLLMService
	rubric      RubricService
	keywords    KeywordService
	progress    ProgressPublisher
	cfg         *config.Config
}

func NewSummaryService(
	sessionRepo repository.SessionRepository,
	qaRepo repository.QARepository,
	summaryRepo repository.SummaryRepository,
	gemini GeminiLLMService,
	rubric RubricService,
	keywords KeywordService,
	progress ProgressPublisher,
	cfg *config.Config,
) SummaryService {
	return &summaryService{
		sessionRepo: sessionRepo,
		qaRepo:      qaRepo,
		summaryRepo: summaryRepo,
		gemini:      gemini,
		rubric:      rubric,
		keywords:    keywords,
		progress:    progress,
		cfg:         cfg,
	}
}

func (s *summaryService) Build(ctx context.Context, sessionID string) error {
	log.Info().Str("sessionId", sessionID).Msg("Starting summary build")

	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return s.fail(ctx, sessionID, "", fmt.Sprintf("session not found: %s", sessionID))
	}
	ownerID := session.OwnerID

	if err := s.summaryRepo.SetProcessing(sessionID, ownerID); err != nil {
		return fmt.Errorf("failed to mark summary processing: %w", err)
	}
	s.publish(ctx, sessionID, ownerID, model.SummaryStatusProcessing, "")

	qas, err := s.qaRepo.FindBySession(sessionID)
	if err != nil {
		return s.fail(ctx, sessionID, ownerID, fmt.Sprintf("failed to load QA records: %v", err))
	}
	if len(qas) == 0 {
		return s.fail(ctx, sessionID, ownerID, fmt.Sprintf("no QA records found for session %s", sessionID))
	}

	pro := session.IsPro && len(session.JDKeywords) > 0
	jdKeywords := []string(nil)
	if pro {
		jdKeywords = session.JDKeywords
	}

	weights, ok := s.cfg.RubricWeights[session.CompanyID]
	if !ok {
		weights = config.DefaultRubricWeights()
	}

	scores := make([]AnswerScore, len(qas))
	inputs := make([]SummaryQAInput, len(qas))
	var totalSpeakingSec float64
	for i := range qas {
		scores[i] = s.rubric.ScoreAnswer(&qas[i], session.JDKeywords, pro, weights)
		transcript := ""
		if qas[i].Transcript != nil {
			transcript = *qas[i].Transcript
		}
		inputs[i] = SummaryQAInput{
			ID:           qas[i].QuestionID,
			QuestionText: qas[i].QuestionText,
			Transcript:   transcript,
		}
		if qas[i].Metrics != nil {
			totalSpeakingSec += qas[i].Metrics.DurationSec
		}
	}

	timeout := time.Duration(s.cfg.Summary.BuildTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := s.gemini.GenerateInterviewSummary(genCtx, &SummaryRequest{
		Role:       session.Role,
		CompanyID:  session.CompanyID,
		IsPro:      pro,
		JDKeywords: jdKeywords,
		QA:         inputs,
	})
	if err != nil {
		return s.fail(ctx, sessionID, ownerID, fmt.Sprintf("summary generation failed: %v", err))
	}

	var payload modelSummaryPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Str("rawResponse", raw).Msg("Model returned malformed JSON")
		return s.fail(ctx, sessionID, ownerID, "model returned malformed summary JSON")
	}
	if len(payload.QA) != len(qas) {
		// Known model quirk. The feedback list below is rebuilt from the QA
		// records, so a mismatch only loses some model text.
		log.Warn().
			Str("sessionId", sessionID).
			Int("expected", len(qas)).
			Int("got", len(payload.QA)).
			Msg("Model feedback count does not match QA count")
	}

	modelFeedback := make(map[string]*model.QAFeedback, len(payload.QA))
	for i := range payload.QA {
		modelFeedback[payload.QA[i].QuestionID] = &payload.QA[i]
	}

	feedback := make(model.QAFeedbackList, len(qas))
	tagSettings := TagSettings{Role: session.Role, JDKeywords: session.JDKeywords}
	for i := range qas {
		entry := model.QAFeedback{
			QuestionID:        qas[i].QuestionID,
			QuestionText:      qas[i].QuestionText,
			Score:             scores[i].Score,
			JDKeywordCoverage: scores[i].JDKeywordCoverage,
			MetricSpecificity: scores[i].MetricSpecificity,
		}
		if mf := modelFeedback[qas[i].QuestionID]; mf != nil {
			entry.AnswerSummary = mf.AnswerSummary
			entry.ModelAnswer = mf.ModelAnswer
			entry.Feedback = mf.Feedback
			entry.Tags = mf.Tags
		}
		if len(entry.Tags) == 0 {
			entry.Tags = s.keywords.ExtractTags(qas[i].QuestionText, tagSettings, defaultTagTopK)
		}
		feedback[i] = entry
	}

	overall := s.rubric.OverallScore(scores)
	endedAt := session.EndedAt
	if endedAt == nil {
		now := time.Now()
		endedAt = &now
	}

	summary := &model.Summary{
		SessionID:        sessionID,
		OwnerID:          ownerID,
		OverallScore:     overall,
		Level:            model.LevelForScore(overall),
		Strengths:        model.StringList(payload.Strengths),
		Improvements:     model.StringList(payload.Improvements),
		Tips:             model.StringList(payload.Tips),
		QAFeedback:       feedback,
		TotalQuestions:   len(qas),
		TotalSpeakingSec: totalSpeakingSec,
		StartedAt:        &session.StartedAt,
		EndedAt:          endedAt,
	}
	if err := s.summaryRepo.Publish(summary); err != nil {
		return s.fail(ctx, sessionID, ownerID, fmt.Sprintf("failed to store summary: %v", err))
	}

	if err := s.sessionRepo.MarkFinal(sessionID, model.SessionStatusReady); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to mark session ready")
	}
	s.publish(ctx, sessionID, ownerID, model.SummaryStatusReady, "")

	log.Info().Str("sessionId", sessionID).Int("overallScore", overall).Msg("Summary build completed")
	return nil
}

// fail writes the error into the summary record before surfacing it, so
// failure state is observable without logs.
func (s *summaryService) fail(ctx context.Context, sessionID, ownerID, message string) error {
	log.Error().Str("sessionId", sessionID).Str("reason", message).Msg("Summary build failed")

	if _, err := s.summaryRepo.UpsertPending(sessionID, ownerID); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to ensure summary record for error state")
	}
	if err := s.summaryRepo.MarkError(sessionID, message); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to record summary error state")
	}
	if err := s.sessionRepo.MarkFinal(sessionID, model.SessionStatusError); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to mark session errored")
	}
	s.publish(ctx, sessionID, ownerID, model.SummaryStatusError, message)
	return fmt.Errorf("summary build for session %s: %s", sessionID, message)
}

func (s *summaryService) publish(ctx context.Context, sessionID, ownerID, status, errMsg string) {
	if s.progress == nil {
		return
	}
	msg := &pubsub.ProgressMessage{
		SessionID: sessionID,
		OwnerID:   ownerID,
		Status:    status,
		Error:     errMsg,
	}
	if err := s.progress.PublishProgress(ctx, msg); err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("Failed to publish summary progress")
	}
}
