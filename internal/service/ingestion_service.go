package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/queue"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/storage"
	"github.com/rs/zerolog/log"
)

// AudioEventEnqueuer hands an object-created notification to the
// transcription worker queue.
type AudioEventEnqueuer interface {
	Push(ctx context.Context, msg *queue.AudioEventMessage) error
}

// SubmitAnswerInput is one recorded answer arriving from the client.
type SubmitAnswerInput struct {
	OwnerID      string
	SessionID    string
	QuestionID   string
	QuestionText string
	Language     string
	ContentType  string
	Audio        []byte
}

// SubmitAnswerResult echoes where the recording landed.
type SubmitAnswerResult struct {
	Path string
	URL  string
}

// IngestionService accepts sessions and answers from the client. All writes
// use merge semantics so a retried submission converges on the same records.
type IngestionService interface {
	CreateSession(ctx context.Context, session *model.Session) error
	SubmitAnswer(ctx context.Context, input *SubmitAnswerInput) (*SubmitAnswerResult, error)
	SkipQuestion(ctx context.Context, ownerID, sessionID, questionID, questionText string) error
}

type ingestionService struct {
	sessionRepo repository.SessionRepository
	qaRepo      repository.QARepository
	store       storage.AudioStore
	events      AudioEventEnqueuer
}

func NewIngestionService(sessionRepo repository.SessionRepository, qaRepo repository.QARepository, store storage.AudioStore, events AudioEventEnqueuer) IngestionService {
	return &ingestionService{
		sessionRepo: sessionRepo,
		qaRepo:      qaRepo,
		store:       store,
		events:      events,
	}
}

func (s *ingestionService) CreateSession(ctx context.Context, session *model.Session) error {
	if session.ID == "" || session.OwnerID == "" {
		return fmt.Errorf("session id and owner id are required")
	}
	if session.ExpectedQuestions <= 0 {
		return fmt.Errorf("expected question count must be positive")
	}
	if session.Role == "" {
		session.Role = "general"
	}
	if session.CompanyID == "" {
		session.CompanyID = "generic"
	}
	if err := s.sessionRepo.Upsert(session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	log.Info().Str("sessionId", session.ID).Str("ownerId", session.OwnerID).Int("expectedQuestions", session.ExpectedQuestions).Msg("Session created")
	return nil
}

func (s *ingestionService) SubmitAnswer(ctx context.Context, input *SubmitAnswerInput) (*SubmitAnswerResult, error) {
	session, err := s.sessionRepo.FindByID(input.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s not found: %w", input.SessionID, err)
	}
	if session.OwnerID != input.OwnerID {
		return nil, fmt.Errorf("session %s does not belong to this owner", input.SessionID)
	}
	if err := validateQuestionID(input.QuestionID, session.ExpectedQuestions); err != nil {
		return nil, err
	}
	if len(input.Audio) == 0 {
		return nil, fmt.Errorf("audio payload is empty")
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "audio/m4a"
	}
	language := input.Language

	key := storage.AudioKey(input.OwnerID, input.SessionID, input.QuestionID)
	metadata := map[string]string{
		"ownerId":    input.OwnerID,
		"sessionId":  input.SessionID,
		"questionId": input.QuestionID,
	}
	if language != "" {
		metadata["language"] = language
	}

	url, err := s.store.PutAudio(key, input.Audio, contentType, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	qa := &model.QuestionAnswer{
		SessionID:    input.SessionID,
		QuestionID:   input.QuestionID,
		OwnerID:      input.OwnerID,
		QuestionText: input.QuestionText,
		AudioPath:    key,
		AudioURL:     url,
	}
	if err := s.qaRepo.UpsertUploaded(qa); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	// The upload itself is the object-created event source. At-least-once:
	// a duplicate event just reprocesses into the same record state.
	event := &queue.AudioEventMessage{
		Path:        key,
		ContentType: contentType,
		Metadata:    metadata,
	}
	if err := s.events.Push(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to enqueue transcription: %w", err)
	}

	log.Info().Str("sessionId", input.SessionID).Str("questionId", input.QuestionID).Str("path", key).Msg("Answer submitted")
	return &SubmitAnswerResult{Path: key, URL: url}, nil
}

func (s *ingestionService) SkipQuestion(ctx context.Context, ownerID, sessionID, questionID, questionText string) error {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return fmt.Errorf("session %s not found: %w", sessionID, err)
	}
	if err := validateQuestionID(questionID, session.ExpectedQuestions); err != nil {
		return err
	}
	qa := &model.QuestionAnswer{
		SessionID:    sessionID,
		QuestionID:   questionID,
		OwnerID:      ownerID,
		QuestionText: questionText,
	}
	if err := s.qaRepo.UpsertSkipped(qa); err != nil {
		return fmt.Errorf("failed to record skipped question: %w", err)
	}
	log.Info().Str("sessionId", sessionID).Str("questionId", questionID).Msg("Question skipped")
	return nil
}

var questionIDRe = regexp.MustCompile(`^[qQ]?([0-9]+)$`)

// validateQuestionID accepts ids of the form q1..qN (or a bare index) within
// the session's expected question count.
func validateQuestionID(questionID string, expected int) error {
	m := questionIDRe.FindStringSubmatch(questionID)
	if m == nil {
		return fmt.Errorf("invalid question id %q", questionID)
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return fmt.Errorf("invalid question id %q", questionID)
	}
	if idx < 1 || idx > expected {
		return fmt.Errorf("question id %q out of range 1..%d", questionID, expected)
	}
	return nil
}
